package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes is the single entry‐point that wires up Cart, Order, and
// Warranty route groups.
func SetupRoutes(r *gin.Engine, db *gorm.DB) {
	// 1️⃣ Cart routes (JWT‐protected)
	SetupCartRoutes(r, db)

	// 2️⃣ Order routes (JWT for customers, API‐Key for admin)
	SetupOrderRoutes(r, db)

	// 3️⃣ Warranty routes (JWT for customers, API‐Key for admin)
	SetupWarrantyRoutes(r, db)
}
