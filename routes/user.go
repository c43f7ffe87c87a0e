package routes

import (
	"github.com/gin-gonic/gin"
	cartControllers "github.com/junaidrashid-git/bookstore-api/controllers/cart"
	checkoutControllers "github.com/junaidrashid-git/bookstore-api/controllers/checkout"
	orderControllers "github.com/junaidrashid-git/bookstore-api/controllers/order"
	userControllers "github.com/junaidrashid-git/bookstore-api/controllers/user"
	voucherControllers "github.com/junaidrashid-git/bookstore-api/controllers/voucher"
	"github.com/junaidrashid-git/bookstore-api/middleware"
)

// SetupUserRoutes registers all "/user/*" endpoints. Requires a JWT.
func SetupUserRoutes(r *gin.Engine, d Deps) {
	userGroup := r.Group("/user")
	userGroup.Use(middleware.ValidateToken(d.JWTSecret))
	{
		// Profile
		userGroup.GET("/me", userControllers.GetUser(d.DB))
		userGroup.PUT("/me", userControllers.UpdateUser(d.DB))

		// Shopping cart
		cartGroup := userGroup.Group("/cart")
		{
			cartGroup.GET("", cartControllers.GetUserCart(d.DB))
			cartGroup.GET("/count", cartControllers.GetCartCount(d.DB))
			cartGroup.POST("/items", cartControllers.AddCartItem(d.DB))
			cartGroup.PUT("/items/:book_id", cartControllers.UpdateCartItem(d.DB))
			cartGroup.DELETE("/items/:book_id", cartControllers.DeleteCartItem(d.DB))
			cartGroup.DELETE("", cartControllers.ClearUserCart(d.DB))
		}

		// Checkout and orders
		userGroup.POST("/checkout", checkoutControllers.CheckoutHandler(d.Checkout))
		userGroup.GET("/orders", orderControllers.GetMyOrdersHandler(d.DB))
		userGroup.GET("/orders/:id", orderControllers.GetMyOrderHandler(d.DB))
		userGroup.POST("/orders/:id/pay", checkoutControllers.RetryPaymentHandler(d.Checkout))

		// Voucher preview
		userGroup.POST("/vouchers/validate", voucherControllers.ValidateVoucher(d.DB))
	}
}
