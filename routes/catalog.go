package routes

import (
	"github.com/gin-gonic/gin"
	productControllers "github.com/junaidrashid-git/bookstore-api/controllers/product"
)

func SetupCatalogRoutes(r *gin.Engine, d Deps) {
	r.GET("/books", productControllers.GetAllBooks(d.DB))
	r.GET("/books/:id", productControllers.GetBookByID(d.DB))
	r.GET("/categories", productControllers.GetAllCategories(d.DB))
	r.GET("/categories/:id", productControllers.GetCategoryByID(d.DB))
}
