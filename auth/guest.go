package auth

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/junaidrashid-git/bookstore-api/middleware"
	"github.com/junaidrashid-git/bookstore-api/models"
	"github.com/junaidrashid-git/bookstore-api/pkg/ctxmanage"
	"github.com/junaidrashid-git/bookstore-api/pkg/logkey"
	"gorm.io/gorm"
)

const (
	RoleGuest = "guest"
	RoleUser  = "user"

	GuestTTL = 24 * time.Hour
)

// IssueToken signs an HS256 token that middleware.ValidateToken accepts.
func IssueToken(secret, userID, username, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := middleware.Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

type GuestInput struct {
	Name string `json:"name"`
}

// POST /auth/guest
func CreateGuestUser(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input GuestInput
		// The body is optional.
		_ = c.ShouldBindJSON(&input)

		guestID := "guest_" + generateRandomString(16)
		name := input.Name
		if name == "" {
			name = "Guest"
		}

		guest := models.GuestUser{
			ID:        guestID,
			Name:      name,
			ExpiresAt: time.Now().Add(GuestTTL),
		}
		if err := db.WithContext(c.Request.Context()).Create(&guest).Error; err != nil {
			slog.Error("create guest failed",
				slog.String(logkey.TraceID, ctxmanage.GetTraceIdOfRequest(c)),
				slog.String(logkey.ERROR, err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create guest"})
			return
		}

		token, err := IssueToken(secret, guestID, name, RoleGuest, GuestTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Token generation failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"guest_id":   guestID,
			"username":   name,
			"token":      token,
			"expires_at": guest.ExpiresAt,
		})
	}
}

func generateRandomString(n int) string {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "rand_guest"
	}
	return hex.EncodeToString(bytes)
}
