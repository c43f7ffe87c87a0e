package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/junaidrashid-git/bookstore-api/auth"
)

func SetupAuthRoutes(r *gin.Engine, d Deps) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/guest", auth.CreateGuestUser(d.DB, d.JWTSecret)) // POST /auth/guest
	}
}
