package models

import (
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

const DefaultWarrantyMonths = 12

type Product struct {
	ID             uint     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string   `gorm:"not null" json:"name"`
	Description    string   `json:"description"`
	Brand          string   `json:"brand"`
	Price          float64  `gorm:"not null" json:"price"`
	Discount       float64  `json:"discount"` // percent, 0..100
	Images         []string `gorm:"serializer:json" json:"images"`
	WarrantyMonths int      `gorm:"default:12" json:"warranty_months"`
	// StockQuantity is the derived sum over all (color, size) quantities and is
	// kept in lock-step with the matrix by ReserveStock/ReleaseStock.
	StockQuantity int            `json:"stock_quantity"`
	Colors        []Color        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"colors"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

type Color struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	ProductID uint        `gorm:"index" json:"product_id"`
	Name      string      `gorm:"not null" json:"name"`
	Code      string      `json:"code"` // hex, e.g. "#1a1a1a"
	Image     string      `json:"image"`
	Sizes     []SizeEntry `gorm:"foreignKey:ColorID;constraint:OnDelete:CASCADE" json:"sizes"`
}

type SizeEntry struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	ColorID  uint   `gorm:"index" json:"color_id"`
	Size     string `gorm:"not null" json:"size"`
	Quantity int    `gorm:"not null;default:0" json:"quantity"`
}

// EffectivePrice is the unit price after the percentage discount.
func (p *Product) EffectivePrice() float64 {
	if p.Discount <= 0 {
		return p.Price
	}
	return p.Price * (100 - p.Discount) / 100
}

// Image returns the primary product image, if any.
func (p *Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// TotalStock sums the whole matrix. Used to re-derive StockQuantity in tests
// and admin tooling; the request path trusts the mirrored column.
func (p *Product) TotalStock() int {
	total := 0
	for _, c := range p.Colors {
		for _, s := range c.Sizes {
			total += s.Quantity
		}
	}
	return total
}

// ResolveColor accepts either a color name (case-insensitive) or a positional
// index into the product's color list.
func (p *Product) ResolveColor(selector string) (*Color, error) {
	for i := range p.Colors {
		if strings.EqualFold(p.Colors[i].Name, selector) {
			return &p.Colors[i], nil
		}
	}
	if idx, err := strconv.Atoi(selector); err == nil && idx >= 0 && idx < len(p.Colors) {
		return &p.Colors[idx], nil
	}
	return nil, NewAppError(ErrCodeInvalidVariant, "color not found for product: "+selector)
}

func (c *Color) FindSize(size string) (*SizeEntry, error) {
	for i := range c.Sizes {
		if c.Sizes[i].Size == size {
			return &c.Sizes[i], nil
		}
	}
	return nil, NewAppError(ErrCodeInvalidVariant, "size "+size+" not available in color "+c.Name)
}

// ReserveStock decrements the (color, size) quantity and the product's derived
// total as one conditional update. The WHERE quantity >= ? guard is what makes
// concurrent checkouts safe: two requests racing for the last units cannot
// both succeed, and no row ever goes negative.
func ReserveStock(tx *gorm.DB, product *Product, colorName, size string, qty int) error {
	color, err := product.ResolveColor(colorName)
	if err != nil {
		return err
	}
	entry, err := color.FindSize(size)
	if err != nil {
		return err
	}

	res := tx.Model(&SizeEntry{}).
		Where("id = ? AND quantity >= ?", entry.ID, qty).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock(product.Name, entry.Quantity, 0, qty)
	}

	return tx.Model(&Product{}).Where("id = ?", product.ID).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", qty)).Error
}

// ReleaseStock is the exact inverse of ReserveStock, used on cancellation.
func ReleaseStock(tx *gorm.DB, productID uint, colorName, size string, qty int) error {
	var product Product
	if err := tx.Preload("Colors.Sizes").First(&product, "id = ?", productID).Error; err != nil {
		return err
	}
	color, err := product.ResolveColor(colorName)
	if err != nil {
		return err
	}
	entry, err := color.FindSize(size)
	if err != nil {
		return err
	}

	if err := tx.Model(&SizeEntry{}).Where("id = ?", entry.ID).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", qty)).Error; err != nil {
		return err
	}
	return tx.Model(&Product{}).Where("id = ?", productID).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", qty)).Error
}
