package models

import (
	"errors"
	"strings"
	"time"
)

type WarrantyStatus string
type WarrantyResult string
type WarrantyReason string

const (
	WarrantyStatusPending    WarrantyStatus = "pending"
	WarrantyStatusProcessing WarrantyStatus = "processing"
	WarrantyStatusCompleted  WarrantyStatus = "completed"
	WarrantyStatusRejected   WarrantyStatus = "rejected"

	WarrantyResultApproved WarrantyResult = "approved"
	WarrantyResultReplaced WarrantyResult = "replaced"
	WarrantyResultRejected WarrantyResult = "rejected"

	WarrantyReasonDefective    WarrantyReason = "defective"
	WarrantyReasonDamaged      WarrantyReason = "damaged"
	WarrantyReasonNotWorking   WarrantyReason = "not_working"
	WarrantyReasonWrongItem    WarrantyReason = "wrong_item"
	WarrantyReasonMissingParts WarrantyReason = "missing_parts"
	WarrantyReasonOther        WarrantyReason = "other"
)

// ActiveWarrantyStatuses are the statuses that count toward the
// one-active-claim-per-(customer, order, product) rule.
var ActiveWarrantyStatuses = []WarrantyStatus{WarrantyStatusPending, WarrantyStatusProcessing}

func ParseWarrantyReason(s string) (WarrantyReason, error) {
	switch WarrantyReason(strings.ToLower(s)) {
	case WarrantyReasonDefective, WarrantyReasonDamaged, WarrantyReasonNotWorking,
		WarrantyReasonWrongItem, WarrantyReasonMissingParts, WarrantyReasonOther:
		return WarrantyReason(strings.ToLower(s)), nil
	default:
		return "", errors.New("invalid warranty reason")
	}
}

func ParseWarrantyStatus(s string) (WarrantyStatus, error) {
	switch WarrantyStatus(strings.ToLower(s)) {
	case WarrantyStatusPending, WarrantyStatusProcessing, WarrantyStatusCompleted, WarrantyStatusRejected:
		return WarrantyStatus(strings.ToLower(s)), nil
	default:
		return "", errors.New("invalid warranty status")
	}
}

// The idx_active_claim partial unique index is what actually enforces the
// one-active-claim rule: concurrent creates for the same (customer, order,
// product) cannot both insert a pending row, regardless of what their
// pre-insert checks observed.
type WarrantyClaim struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    string `gorm:"not null;index:idx_claim_target;index:idx_active_claim,unique,where:status = 'pending' OR status = 'processing'" json:"user_id"`
	OrderID   uint   `gorm:"not null;index:idx_claim_target;index:idx_active_claim" json:"order_id"`
	ProductID uint   `gorm:"not null;index:idx_claim_target;index:idx_active_claim" json:"product_id"`

	Reason      WarrantyReason `gorm:"type:VARCHAR(20);not null" json:"reason"`
	Description string         `gorm:"not null" json:"description"`
	// At least one photo or video of the issue is required at creation.
	Attachments  []string   `gorm:"serializer:json" json:"attachments"`
	IssueDate    *time.Time `json:"issue_date,omitempty"`
	ContactPhone string     `json:"contact_phone,omitempty"`
	ContactEmail string     `json:"contact_email,omitempty"`

	Status             WarrantyStatus `gorm:"type:VARCHAR(20);default:'pending'" json:"status"`
	Result             WarrantyResult `gorm:"type:VARCHAR(20)" json:"result,omitempty"`
	AdminNote          string         `json:"admin_note,omitempty"`
	RejectReason       string         `json:"reject_reason,omitempty"`
	ResolutionNote     string         `json:"resolution_note,omitempty"`
	ReplacementOrderID *uint          `json:"replacement_order_id,omitempty"`

	// WarrantyExpiry = (order.DeliveredAt ?? order.CreatedAt) + product warranty
	// months, computed once when the claim is filed.
	WarrantyExpiry time.Time  `json:"warranty_expiry"`
	ActionBy       string     `json:"action_by,omitempty"`
	ResolutionDate *time.Time `json:"resolution_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// WarrantyExpiryFor derives the claim deadline from the order and the
// product's warranty period (months; zero means the 12-month default).
func WarrantyExpiryFor(order *Order, warrantyMonths int) time.Time {
	start := order.CreatedAt
	if order.DeliveredAt != nil {
		start = *order.DeliveredAt
	}
	if warrantyMonths <= 0 {
		warrantyMonths = DefaultWarrantyMonths
	}
	return start.AddDate(0, warrantyMonths, 0)
}
