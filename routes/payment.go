package routes

import (
	"github.com/gin-gonic/gin"
	checkoutControllers "github.com/junaidrashid-git/bookstore-api/controllers/checkout"
	"github.com/junaidrashid-git/bookstore-api/middleware"
)

func SetupPaymentRoutes(r *gin.Engine, d Deps) {
	momo := r.Group("/payment/momo")
	{
		// The redirect comes from the shopper's browser, token optional.
		momo.GET("/callback", middleware.OptionalToken(d.JWTSecret), checkoutControllers.MomoCallbackHandler(d.Checkout))
		momo.POST("/notify", checkoutControllers.MomoNotifyHandler(d.Checkout))
	}
}
