package models

import "time"

type Cart struct {
	CartID        uint       `gorm:"primaryKey" json:"cart_id"`
	UserID        string     `gorm:"uniqueIndex" json:"user_id"` // Enforces ONE cart per user
	Items         []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	TotalQuantity int        `json:"total_quantity"`
	TotalPrice    float64    `json:"total_price"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CartItem is a snapshot of the variant as it looked when the customer added
// it: color sub-object, unit price and the stock ceiling observed at that
// moment. The snapshot is never trusted for a new stock decision — controllers
// re-resolve against the live product first.
type CartItem struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	CartID       uint    `gorm:"index" json:"cart_id"`
	ProductID    uint    `json:"product_id"`
	ProductName  string  `json:"product_name"`
	ProductImage string  `json:"product_image"`
	ColorName    string  `json:"color_name"`
	ColorCode    string  `json:"color_code"`
	ColorImage   string  `json:"color_image"`
	Size         string  `json:"size"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"` // price at add time
	// Subtotal is always UnitPrice × Quantity, recomputed on every write.
	Subtotal       float64   `json:"subtotal"`
	AvailableStock int       `json:"available_stock"` // ceiling observed at add/update time
	AddedAt        time.Time `json:"added_at"`
}

// RecomputeTotals rewrites the derived cart-level sums from the items.
func (c *Cart) RecomputeTotals() {
	c.TotalQuantity = 0
	c.TotalPrice = 0
	for i := range c.Items {
		c.Items[i].Subtotal = c.Items[i].UnitPrice * float64(c.Items[i].Quantity)
		c.TotalQuantity += c.Items[i].Quantity
		c.TotalPrice += c.Items[i].Subtotal
	}
}
