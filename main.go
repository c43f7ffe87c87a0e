package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/junaidrashid-git/bookstore-api/config"
	checkoutControllers "github.com/junaidrashid-git/bookstore-api/controllers/checkout"
	momoControllers "github.com/junaidrashid-git/bookstore-api/controllers/momo"
	orderControllers "github.com/junaidrashid-git/bookstore-api/controllers/order"
	"github.com/junaidrashid-git/bookstore-api/events"
	"github.com/junaidrashid-git/bookstore-api/middleware"
	"github.com/junaidrashid-git/bookstore-api/models"
	"github.com/junaidrashid-git/bookstore-api/pkg/logkey"
	"github.com/junaidrashid-git/bookstore-api/routes"
	"github.com/junaidrashid-git/bookstore-api/seed"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	seedFlag := flag.Bool("seed", false, "reset counters and load demo catalog and vouchers")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	slog.Info("starting application")

	// Load environment variables
	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}

	db, err := initDatabase(cfg.Database)
	if err != nil {
		slog.Error("database connection failed", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		slog.Error("automigrate failed", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *seedFlag {
		if err := seed.Run(ctx, db, time.Now()); err != nil {
			slog.Error("seed failed", slog.String(logkey.ERROR, err.Error()))
			os.Exit(1)
		}
	}

	hub := orderControllers.NewHub()
	broker, closeBroker, err := initBroker(cfg.Events)
	if err != nil {
		slog.Error("event broker unavailable", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
	defer closeBroker()

	gateway := momoControllers.NewClient(cfg.Momo, db)
	checkout := checkoutControllers.NewService(db, gateway, events.Multi{hub, broker})

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(middleware.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-KEY", middleware.TraceHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.TraceHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.SetupRoutes(r, routes.Deps{
		DB:          db,
		Checkout:    checkout,
		Hub:         hub,
		JWTSecret:   cfg.JWTSecret,
		AdminAPIKey: cfg.AdminAPIKey,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server running", slog.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.String(logkey.ERROR, err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String(logkey.ERROR, err.Error()))
	}
	slog.Info("server stopped")
}

// initDatabase sets up the GORM DB connection
func initDatabase(cfg config.Database) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
}

// initBroker picks the settlement event sink named by EVENTS_BROKER.
func initBroker(cfg config.Events) (events.Publisher, func(), error) {
	switch cfg.Broker {
	case "rabbitmq":
		mq, err := events.NewRabbitMQ(cfg.RabbitMQURL, cfg.RabbitMQQueue, 4)
		if err != nil {
			return nil, nil, err
		}
		return mq, mq.Close, nil
	case "kafka":
		k, err := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, nil, err
		}
		return k, k.Close, nil
	default:
		return events.Nop{}, func() {}, nil
	}
}
