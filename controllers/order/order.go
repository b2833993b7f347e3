package orderControllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/QuyenDinh23/sportify-store-sub001/models"
	"github.com/QuyenDinh23/sportify-store-sub001/voucher"
)

// -------- Request Structs --------

type PlaceOrderRequest struct {
	ShippingAddress models.ShippingAddress `json:"shipping_address" binding:"required"`
	PaymentMethod   string                 `json:"payment_method" binding:"required"` // e.g. "card", "cod"
	Notes           string                 `json:"notes"`
	VoucherCode     string                 `json:"voucher_code"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type UpdateOrderStatusRequest struct {
	Status         string `json:"status" binding:"required"`
	TrackingNumber string `json:"tracking_number"`
	// Force bypasses the transition table for administrative correction.
	Force bool `json:"force"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required"`
}

// -------- Helpers --------

func fail(c *gin.Context, err error) {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus(), appErr)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// Map string to OrderStatus
func mapOrderStatus(status string) (models.OrderStatus, error) {
	switch strings.ToLower(status) {
	case string(models.OrderStatusPending):
		return models.OrderStatusPending, nil
	case string(models.OrderStatusConfirmed):
		return models.OrderStatusConfirmed, nil
	case string(models.OrderStatusProcessing):
		return models.OrderStatusProcessing, nil
	case string(models.OrderStatusShipped):
		return models.OrderStatusShipped, nil
	case string(models.OrderStatusDelivered):
		return models.OrderStatusDelivered, nil
	case string(models.OrderStatusReturnRequested):
		return models.OrderStatusReturnRequested, nil
	case string(models.OrderStatusReturned):
		return models.OrderStatusReturned, nil
	case string(models.OrderStatusRefundRequested):
		return models.OrderStatusRefundRequested, nil
	case string(models.OrderStatusRefunded):
		return models.OrderStatusRefunded, nil
	case string(models.OrderStatusCancelled):
		return models.OrderStatusCancelled, nil
	default:
		return "", models.NewAppError(models.ErrCodeValidation, "invalid order status: "+status)
	}
}

// Map string to PaymentStatus
func mapPaymentStatus(status string) (models.PaymentStatus, error) {
	switch strings.ToLower(status) {
	case string(models.PaymentStatusPending):
		return models.PaymentStatusPending, nil
	case string(models.PaymentStatusPaid):
		return models.PaymentStatusPaid, nil
	case string(models.PaymentStatusFailed):
		return models.PaymentStatusFailed, nil
	case string(models.PaymentStatusRefunded):
		return models.PaymentStatusRefunded, nil
	default:
		return "", models.NewAppError(models.ErrCodeValidation, "invalid payment status: "+status)
	}
}

// Generate unique order number, assigned once at creation.
// Example: 20250908130500-<uuid4>
func generateOrderNumber() string {
	return time.Now().Format("20060102150405") + "-" + uuid.NewString()
}

func pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// -------- Core Logic --------

// PlaceOrder turns the user's cart into an order inside one transaction:
// stock is re-validated and reserved with conditional updates, prices are
// re-read from the live products, the voucher counter is bumped and the cart
// is deleted. A failure at any point rolls everything back, so a retry can
// simply re-derive intent from the still-present cart.
func PlaceOrder(db *gorm.DB, userID string, req PlaceOrderRequest) (*models.Order, error) {
	var cart models.Cart
	if err := db.Preload("Items").Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewAppError(models.ErrCodeEmptyCart, "cart is empty")
		}
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, models.NewAppError(models.ErrCodeEmptyCart, "cart is empty")
	}

	var order models.Order
	err := db.Transaction(func(tx *gorm.DB) error {
		var subtotal float64
		var orderItems []models.OrderItem

		for _, item := range cart.Items {
			var product models.Product
			if err := tx.Preload("Colors.Sizes").First(&product, "id = ?", item.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return models.NewAppError(models.ErrCodeNotFound, "product no longer exists: "+item.ProductName)
				}
				return err
			}

			// Coarse check against the aggregate before touching the matrix.
			if product.StockQuantity < item.Quantity {
				return models.ErrInsufficientStock(product.Name, product.StockQuantity, 0, item.Quantity)
			}

			// Conditional decrement of the (color, size) row; fails cleanly if a
			// concurrent checkout got there first.
			if err := models.ReserveStock(tx, &product, item.ColorName, item.Size, item.Quantity); err != nil {
				return err
			}

			// Price is re-read at order time; the cart snapshot may be stale.
			price := product.EffectivePrice()
			subtotal += price * float64(item.Quantity)
			orderItems = append(orderItems, models.OrderItem{
				ProductID:    product.ID,
				ProductName:  product.Name,
				ProductImage: product.Image(),
				ColorName:    item.ColorName,
				Size:         item.Size,
				Quantity:     item.Quantity,
				Price:        price,
				Subtotal:     price * float64(item.Quantity),
			})
		}

		shippingFee := models.ShippingFeeFor(subtotal)

		var voucherDiscount float64
		if req.VoucherCode != "" {
			result, err := voucher.Apply(tx, req.VoucherCode, subtotal)
			if err != nil {
				return err
			}
			if err := voucher.Redeem(tx, req.VoucherCode); err != nil {
				return err
			}
			voucherDiscount = result.DiscountAmount
		}

		order = models.Order{
			UserID:          userID,
			OrderNumber:     generateOrderNumber(),
			Items:           orderItems,
			Subtotal:        subtotal,
			ShippingFee:     shippingFee,
			VoucherCode:     req.VoucherCode,
			VoucherDiscount: voucherDiscount,
			TotalAmount:     subtotal + shippingFee - voucherDiscount,
			Status:          models.OrderStatusPending,
			PaymentStatus:   models.PaymentStatusPending,
			PaymentMethod:   req.PaymentMethod,
			ShippingAddress: req.ShippingAddress,
			Notes:           req.Notes,
			CreatedAt:       time.Now(),
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		// Cart is consumed by the order.
		if err := tx.Where("cart_id = ?", cart.CartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&cart).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder is the customer-facing side branch: pending only, stock goes
// back, payment is marked refunded if it had been taken.
func CancelOrder(db *gorm.DB, userID, orderID, reason string) (*models.Order, error) {
	var order models.Order
	if err := db.Preload("Items").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewAppError(models.ErrCodeNotFound, "order not found")
		}
		return nil, err
	}
	if order.Status != models.OrderStatusPending {
		return nil, models.NewAppError(models.ErrCodeInvalidTransition,
			"only pending orders can be cancelled").
			WithDetail("status", order.Status)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		// Claim the cancellation with a conditional flip. Of two racing
		// cancels only one sees RowsAffected == 1, so stock is released
		// exactly once.
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
			UpdateColumn("status", models.OrderStatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewAppError(models.ErrCodeInvalidTransition,
				"only pending orders can be cancelled")
		}
		for _, item := range order.Items {
			if err := models.ReleaseStock(tx, item.ProductID, item.ColorName, item.Size, item.Quantity); err != nil {
				return err
			}
		}
		now := time.Now()
		order.Status = models.OrderStatusCancelled
		order.CancelledAt = &now
		order.CancelReason = reason
		if order.PaymentStatus == models.PaymentStatusPaid {
			order.PaymentStatus = models.PaymentStatusRefunded
			order.RefundAmount = order.TotalAmount
			order.RefundedAt = &now
		}
		return tx.Save(&order).Error
	})
	if err != nil {
		return nil, err
	}
	broadcastOrderEvent("order_cancelled", order)
	return &order, nil
}

// -------- Handlers --------

// POST /orders
func PlaceOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req PlaceOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": models.ErrCodeValidation})
			return
		}
		order, err := PlaceOrder(db, userIDVal.(string), req)
		if err != nil {
			fail(c, err)
			return
		}
		broadcastOrderEvent("order_created", *order)
		c.JSON(http.StatusCreated, order)
	}
}

// PATCH /orders/:orderID/cancel
func CancelOrderHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req CancelOrderRequest
		_ = c.ShouldBindJSON(&req) // reason is optional

		order, err := CancelOrder(db, userIDVal.(string), c.Param("orderID"), req.Reason)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// GET /orders/my-orders
func GetMyOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		page, limit := pagination(c)

		query := db.Model(&models.Order{}).Where("user_id = ?", userIDVal.(string))
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", strings.ToLower(status))
		}
		if ps := c.Query("payment_status"); ps != "" {
			query = query.Where("payment_status = ?", strings.ToLower(ps))
		}

		var total int64
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		var orders []models.Order
		if err := query.Preload("Items").
			Order("created_at DESC").
			Offset((page - 1) * limit).Limit(limit).
			Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders, "total": total, "page": page, "limit": limit})
	}
}

// GET /orders/:orderID
// Cross-tenant lookups get the same 404 as unknown ids.
func GetOrderByIDHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, exists := c.Get("user_id")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		id := c.Param("orderID")

		// A numeric path segment addresses the primary key; anything else is
		// treated as an order number. The id column must never see a
		// non-numeric bind value.
		query := db.Preload("Items").Where("user_id = ?", userIDVal.(string))
		if n, convErr := strconv.Atoi(id); convErr == nil {
			query = query.Where("id = ?", n)
		} else {
			query = query.Where("order_number = ?", id)
		}

		var order models.Order
		if err := query.First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, models.NewAppError(models.ErrCodeNotFound, "order not found"))
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// GET /orders/admin/all
func GetAllOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit := pagination(c)

		query := db.Model(&models.Order{})
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", strings.ToLower(status))
		}
		if ps := c.Query("payment_status"); ps != "" {
			query = query.Where("payment_status = ?", strings.ToLower(ps))
		}

		var total int64
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		var orders []models.Order
		if err := query.Preload("User").Preload("Items").
			Order("created_at DESC").
			Offset((page - 1) * limit).Limit(limit).
			Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders, "total": total, "page": page, "limit": limit})
	}
}

// PATCH /orders/admin/:orderID/status
// Every move is validated against the transition table; force skips the check
// for administrative correction but still goes through this single path.
func UpdateOrderStatusHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("orderID")
		var req UpdateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": models.ErrCodeValidation})
			return
		}
		newStatus, err := mapOrderStatus(req.Status)
		if err != nil {
			fail(c, err)
			return
		}

		var order models.Order
		if err := db.Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, models.NewAppError(models.ErrCodeNotFound, "order not found"))
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if !req.Force && !models.CanTransition(order.Status, newStatus) {
			fail(c, models.NewAppError(models.ErrCodeInvalidTransition,
				"illegal status transition").
				WithDetail("from", order.Status).
				WithDetail("to", newStatus))
			return
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			now := time.Now()
			switch newStatus {
			case models.OrderStatusShipped:
				if req.TrackingNumber != "" {
					order.TrackingNumber = req.TrackingNumber
				}
				eta := now.AddDate(0, 0, 3)
				order.EstimatedDelivery = &eta
			case models.OrderStatusDelivered:
				order.DeliveredAt = &now
			case models.OrderStatusCancelled:
				// Admin cancellation replenishes stock the same way the customer
				// path does, so the decrement always nets to zero. The conditional
				// flip decides who actually moves the order into cancelled; the
				// loser (a forced re-cancel, or a racing customer cancel that
				// already committed) must not release again.
				res := tx.Model(&models.Order{}).
					Where("id = ? AND status <> ?", order.ID, models.OrderStatusCancelled).
					UpdateColumn("status", models.OrderStatusCancelled)
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected > 0 {
					for _, item := range order.Items {
						if err := models.ReleaseStock(tx, item.ProductID, item.ColorName, item.Size, item.Quantity); err != nil {
							return err
						}
					}
					order.CancelledAt = &now
				}
			case models.OrderStatusRefunded:
				order.PaymentStatus = models.PaymentStatusRefunded
				order.RefundAmount = order.TotalAmount
				order.RefundedAt = &now
			}
			order.Status = newStatus
			return tx.Save(&order).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update order status"})
			return
		}
		broadcastOrderEvent("order_status_changed", order)
		c.JSON(http.StatusOK, order)
	}
}

// PATCH /orders/admin/:orderID/payment-status
func UpdatePaymentStatusHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("orderID")
		var req UpdatePaymentStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": models.ErrCodeValidation})
			return
		}
		newStatus, err := mapPaymentStatus(req.PaymentStatus)
		if err != nil {
			fail(c, err)
			return
		}
		res := db.Model(&models.Order{}).Where("id = ?", orderID).
			Update("payment_status", newStatus)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update payment status"})
			return
		}
		if res.RowsAffected == 0 {
			fail(c, models.NewAppError(models.ErrCodeNotFound, "order not found"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Payment status updated successfully"})
	}
}
