package routes

import (
	"github.com/gin-gonic/gin"
	checkoutControllers "github.com/junaidrashid-git/bookstore-api/controllers/checkout"
	orderControllers "github.com/junaidrashid-git/bookstore-api/controllers/order"
	"gorm.io/gorm"
)

// Deps are the long-lived components every route group draws from.
type Deps struct {
	DB          *gorm.DB
	Checkout    *checkoutControllers.Service
	Hub         *orderControllers.Hub
	JWTSecret   string
	AdminAPIKey string
}

// SetupRoutes is the single entry point that wires up every route group.
func SetupRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	// Public auth routes (no middleware)
	SetupAuthRoutes(r, d)

	// Public catalog
	SetupCatalogRoutes(r, d)

	// User routes (JWT-protected)
	SetupUserRoutes(r, d)

	// Admin routes (API-key-protected)
	SetupAdminRoutes(r, d)

	// MoMo redirect and IPN
	SetupPaymentRoutes(r, d)
}
