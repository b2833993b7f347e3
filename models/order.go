package models

import "time"

type OrderStatus string
type PaymentStatus string

const (
	// Order statuses (typical e-commerce flow)
	OrderStatusPending         OrderStatus = "pending"          // Order placed, awaiting confirmation
	OrderStatusConfirmed       OrderStatus = "confirmed"        // Confirmed by seller
	OrderStatusProcessing      OrderStatus = "processing"       // Being packed
	OrderStatusShipped         OrderStatus = "shipped"          // Out for delivery
	OrderStatusDelivered       OrderStatus = "delivered"        // Customer received the item
	OrderStatusReturnRequested OrderStatus = "return_requested" // Customer asked to return
	OrderStatusReturned        OrderStatus = "returned"         // Return completed
	OrderStatusRefundRequested OrderStatus = "refund_requested" // Customer asked for money back
	OrderStatusRefunded        OrderStatus = "refunded"         // Refund completed
	OrderStatusCancelled       OrderStatus = "cancelled"        // Cancelled before confirmation

	// Payment statuses
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Shipping fee rules, in VND.
const (
	FreeShippingThreshold = 500000.0
	FlatShippingFee       = 30000.0
)

// orderTransitions is the single source of truth for which forward moves are
// legal. Both the customer cancel path and the admin status endpoint consult
// it; the admin endpoint can bypass it only with an explicit force flag.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:         {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:       {OrderStatusProcessing},
	OrderStatusProcessing:      {OrderStatusShipped},
	OrderStatusShipped:         {OrderStatusDelivered},
	OrderStatusDelivered:       {OrderStatusReturnRequested, OrderStatusRefundRequested},
	OrderStatusReturnRequested: {OrderStatusReturned},
	OrderStatusRefundRequested: {OrderStatusRefunded},
}

func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type ShippingAddress struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	Ward       string `json:"ward"`
	District   string `json:"district"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

type Order struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user"`
	// OrderNumber is assigned once at creation and never changes.
	OrderNumber       string          `gorm:"uniqueIndex;not null" json:"order_number"`
	Items             []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Subtotal          float64         `json:"subtotal"`
	ShippingFee       float64         `json:"shipping_fee"`
	VoucherCode       string          `json:"voucher_code,omitempty"`
	VoucherDiscount   float64         `json:"voucher_discount"`
	TotalAmount       float64         `json:"total_amount"` // subtotal + shipping - voucher discount
	Status            OrderStatus     `gorm:"type:VARCHAR(20);default:'pending'" json:"status"`
	PaymentStatus     PaymentStatus   `gorm:"type:VARCHAR(20);default:'pending'" json:"payment_status"`
	PaymentMethod     string          `json:"payment_method"` // e.g. "card", "cod"
	ShippingAddress   ShippingAddress `gorm:"embedded;embeddedPrefix:ship_" json:"shipping_address"`
	Notes             string          `json:"notes"`
	TrackingNumber    string          `json:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty"`
	DeliveredAt       *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason      string          `json:"cancel_reason,omitempty"`
	RefundAmount      float64         `json:"refund_amount,omitempty"`
	RefundedAt        *time.Time      `json:"refunded_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// OrderItem is frozen at order creation; price is re-read from the product at
// that moment, not carried over from the cart.
type OrderItem struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	OrderID      uint    `gorm:"index" json:"order_id"`
	ProductID    uint    `json:"product_id"`
	ProductName  string  `json:"product_name"`
	ProductImage string  `json:"product_image"`
	ColorName    string  `json:"color_name"`
	Size         string  `json:"size"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"` // unit price at order time
	Subtotal     float64 `json:"subtotal"`
}

// ShippingFeeFor applies the free-shipping threshold.
func ShippingFeeFor(subtotal float64) float64 {
	if subtotal >= FreeShippingThreshold {
		return 0
	}
	return FlatShippingFee
}
