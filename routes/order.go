package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	orderControllers "github.com/QuyenDinh23/sportify-store-sub001/controllers/order"
	"github.com/QuyenDinh23/sportify-store-sub001/middleware"
)

func SetupOrderRoutes(r *gin.Engine, db *gorm.DB) {
	orders := r.Group("/orders")
	orders.Use(middleware.ValidateToken)
	{
		// Create a new order from the caller's cart
		orders.POST("", orderControllers.PlaceOrderHandler(db))

		// Fetch orders for the authenticated user
		orders.GET("/my-orders", orderControllers.GetMyOrdersHandler(db))

		// Fetch a single order by id or order number (owner only)
		orders.GET("/:orderID", orderControllers.GetOrderByIDHandler(db))

		// Cancel a pending order
		orders.PATCH("/:orderID/cancel", orderControllers.CancelOrderHandler(db))
	}

	admin := r.Group("/orders/admin")
	admin.Use(middleware.ValidateAPIKey)
	{
		// Fetch all orders with filters and pagination
		admin.GET("/all", orderControllers.GetAllOrdersHandler(db))

		// websocket endpoint for real-time order updates
		admin.GET("/ws", orderControllers.OrderWebSocketHandler)

		// Update order status (e.g., shipped, cancelled)
		admin.PATCH("/:orderID/status", orderControllers.UpdateOrderStatusHandler(db))

		// Update payment status (e.g., paid, refunded)
		admin.PATCH("/:orderID/payment-status", orderControllers.UpdatePaymentStatusHandler(db))

		// Export orders report
		admin.GET("/export-excel", orderControllers.ExportOrdersToExcel(db))
	}
}
