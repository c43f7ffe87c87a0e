package userControllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/bookstore-api/models"
	"gorm.io/gorm"
)

type Profile struct {
	UserID     string            `json:"user_id"`
	Username   string            `json:"username"`
	Role       string            `json:"role"`
	Guest      *models.GuestUser `json:"guest,omitempty"`
	OrderCount int64             `json:"order_count"`
}

type UpdateUserInput struct {
	Name *string `json:"name"`
}

// GET /user/me
func GetUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		profile := Profile{
			UserID:   userID,
			Username: c.GetString("username"),
			Role:     c.GetString("role"),
		}

		var guest models.GuestUser
		err := db.WithContext(c.Request.Context()).First(&guest, "id = ?", userID).Error
		switch {
		case err == nil:
			profile.Guest = &guest
		case !errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
			return
		}

		if err := db.WithContext(c.Request.Context()).Model(&models.Order{}).
			Where("user_id = ?", userID).Count(&profile.OrderCount).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
			return
		}

		c.JSON(http.StatusOK, profile)
	}
}

// GET /admin/users
func GetAllUsers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var users []models.GuestUser
		if err := db.WithContext(c.Request.Context()).
			Order("created_at desc").
			Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
			return
		}

		c.JSON(http.StatusOK, users)
	}
}

// PUT /user/me
func UpdateUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		var user models.GuestUser

		if err := db.WithContext(c.Request.Context()).First(&user, "id = ?", userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		var input UpdateUserInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "name must not be empty"})
				return
			}
			if err := db.WithContext(c.Request.Context()).Model(&user).Update("name", name).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
				return
			}
		}

		c.JSON(http.StatusOK, user)
	}
}
