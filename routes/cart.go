package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	cartControllers "github.com/QuyenDinh23/sportify-store-sub001/controllers/cart"
	"github.com/QuyenDinh23/sportify-store-sub001/middleware"
)

// SetupCartRoutes registers all “/cart/*” endpoints. Requires JWT middleware.
func SetupCartRoutes(r *gin.Engine, db *gorm.DB) {
	cartGroup := r.Group("/cart")
	cartGroup.Use(middleware.ValidateToken)
	{
		cartGroup.GET("", cartControllers.GetUserCart(db))                   // GET /cart
		cartGroup.POST("", cartControllers.AddCartItem(db))                  // POST /cart
		cartGroup.PUT("/item", cartControllers.UpdateCartItem(db))           // PUT /cart/item
		cartGroup.DELETE("/item/:item_id", cartControllers.DeleteCartItem(db)) // DELETE /cart/item/:item_id
		cartGroup.DELETE("", cartControllers.ClearUserCart(db))              // DELETE /cart
	}
}
