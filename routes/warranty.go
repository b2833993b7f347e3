package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	warrantyControllers "github.com/QuyenDinh23/sportify-store-sub001/controllers/warranty"
	"github.com/QuyenDinh23/sportify-store-sub001/middleware"
)

func SetupWarrantyRoutes(r *gin.Engine, db *gorm.DB) {
	// Customer surface (JWT)
	warranty := r.Group("/warranty")
	warranty.Use(middleware.ValidateToken)
	{
		// File a new claim
		warranty.POST("", warrantyControllers.CreateClaimHandler(db))

		// Claims of the authenticated user
		warranty.GET("/my-requests", warrantyControllers.GetMyClaimsHandler(db))

		// Single claim (owner only)
		warranty.GET("/:id", warrantyControllers.GetClaimByIDHandler(db))
	}

	// Reviewer surface (API key), sharing the /warranty prefix
	admin := r.Group("/warranty")
	admin.Use(middleware.ValidateAPIKey)
	{
		// Paginated listing with status/reason filters
		admin.GET("", warrantyControllers.GetAllClaimsHandler(db))

		// Counts grouped by status and reason
		admin.GET("/statistics", warrantyControllers.GetClaimStatisticsHandler(db))

		// Guarded transition: approve / replace / reject
		admin.POST("/:id/process", warrantyControllers.ProcessClaimHandler(db))

		// Raw override without the process preconditions
		admin.PATCH("/:id/status", warrantyControllers.UpdateClaimStatusHandler(db))

		// Administrative purge
		admin.DELETE("/:id", warrantyControllers.DeleteClaimHandler(db))
	}
}
