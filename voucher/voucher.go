// Package voucher evaluates discount codes against an order amount. It is a
// collaborator of the order flow: Apply is a pure computation over the stored
// voucher, and only Redeem (called inside the order transaction) mutates the
// usage counter.
package voucher

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/QuyenDinh23/sportify-store-sub001/models"
)

type DiscountType string

const (
	DiscountTypePercent DiscountType = "percent"
	DiscountTypeFixed   DiscountType = "fixed"
)

type Voucher struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	Code          string       `gorm:"uniqueIndex;not null" json:"code"`
	DiscountType  DiscountType `gorm:"type:VARCHAR(10);not null" json:"discount_type"`
	DiscountValue float64      `gorm:"not null" json:"discount_value"`
	MinOrder      float64      `json:"min_order"`
	MaxUses       int          `json:"max_uses"` // 0 = unlimited
	UsedCount     int          `json:"used_count"`
	ExpiresAt     *time.Time   `json:"expires_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

type Result struct {
	DiscountAmount float64 `json:"discount_amount"`
	FinalAmount    float64 `json:"final_amount"`
}

// Apply looks up the code and computes the discount for the given order
// amount. It does not mutate anything; call Redeem in the same transaction
// that persists the order.
func Apply(db *gorm.DB, code string, orderAmount float64) (*Result, error) {
	var v Voucher
	if err := db.First(&v, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewAppError(models.ErrCodeVoucherNotFound, "voucher code not found: "+code)
		}
		return nil, err
	}
	if v.ExpiresAt != nil && time.Now().After(*v.ExpiresAt) {
		return nil, models.NewAppError(models.ErrCodeVoucherExpired, "voucher has expired: "+code)
	}
	if orderAmount < v.MinOrder {
		return nil, models.NewAppError(models.ErrCodeVoucherBelowMinimum, "order amount below voucher minimum").
			WithDetail("min_order", v.MinOrder)
	}
	if v.MaxUses > 0 && v.UsedCount >= v.MaxUses {
		return nil, models.NewAppError(models.ErrCodeVoucherExhausted, "voucher usage limit reached: "+code)
	}

	discount := v.DiscountValue
	if v.DiscountType == DiscountTypePercent {
		discount = orderAmount * v.DiscountValue / 100
	}
	if discount > orderAmount {
		discount = orderAmount
	}
	return &Result{DiscountAmount: discount, FinalAmount: orderAmount - discount}, nil
}

// Redeem bumps the usage counter with the same conditional-update discipline
// as stock: the WHERE clause re-checks the limit so concurrent checkouts
// cannot overshoot it.
func Redeem(tx *gorm.DB, code string) error {
	res := tx.Model(&Voucher{}).
		Where("code = ? AND (max_uses = 0 OR used_count < max_uses)", code).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewAppError(models.ErrCodeVoucherExhausted, "voucher usage limit reached: "+code)
	}
	return nil
}
