package routes

import (
	"github.com/gin-gonic/gin"
	orderControllers "github.com/junaidrashid-git/bookstore-api/controllers/order"
	productControllers "github.com/junaidrashid-git/bookstore-api/controllers/product"
	userControllers "github.com/junaidrashid-git/bookstore-api/controllers/user"
	voucherControllers "github.com/junaidrashid-git/bookstore-api/controllers/voucher"
	"github.com/junaidrashid-git/bookstore-api/middleware"
)

// SetupAdminRoutes registers all "/admin/*" endpoints behind X-API-KEY.
func SetupAdminRoutes(r *gin.Engine, d Deps) {
	admin := r.Group("/admin")
	admin.Use(middleware.ValidateAPIKey(d.AdminAPIKey))
	{
		books := admin.Group("/books")
		{
			books.POST("", productControllers.CreateBookHandler(d.DB))
			books.GET("/export", productControllers.ExportBooksToExcel(d.DB))
			books.POST("/import", productControllers.ImportBooksFromExcel(d.DB))
			books.PUT("/:id", productControllers.UpdateBookHandler(d.DB))
			books.DELETE("/:id", productControllers.DeleteBookHandler(d.DB))
		}

		categories := admin.Group("/categories")
		{
			categories.GET("", productControllers.GetAllCategories(d.DB))
			categories.POST("", productControllers.CreateCategoryHandler(d.DB))
			categories.PUT("/:id", productControllers.UpdateCategoryHandler(d.DB))
			categories.DELETE("/:id", productControllers.DeleteCategoryHandler(d.DB))
		}

		vouchers := admin.Group("/vouchers")
		{
			vouchers.GET("", voucherControllers.ListVouchers(d.DB))
			vouchers.GET("/active", voucherControllers.ListActiveVouchers(d.DB))
			vouchers.GET("/code/:code", voucherControllers.GetVoucherByCode(d.DB))
			vouchers.GET("/:id", voucherControllers.GetVoucher(d.DB))
			vouchers.POST("", voucherControllers.CreateVoucher(d.DB))
			vouchers.PUT("/:id", voucherControllers.UpdateVoucher(d.DB))
			vouchers.PATCH("/:id/toggle", voucherControllers.ToggleVoucher(d.DB))
			vouchers.DELETE("/:id", voucherControllers.DeleteVoucher(d.DB))
		}

		orders := admin.Group("/orders")
		{
			orders.GET("", orderControllers.GetAllOrdersHandler(d.DB))
			orders.GET("/export", orderControllers.ExportOrdersHandler(d.DB))
			orders.GET("/ws", d.Hub.ServeWS)
			orders.GET("/:id", orderControllers.GetOrderByIDHandler(d.DB))
			orders.PUT("/:id/status", orderControllers.UpdateOrderStatusHandler(d.DB))
		}

		admin.GET("/users", userControllers.GetAllUsers(d.DB))
	}
}
