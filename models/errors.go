package models

import "net/http"

type ErrorCode string

const (
	ErrCodeValidation        ErrorCode = "validation_error"
	ErrCodeNotFound          ErrorCode = "not_found"
	ErrCodeInvalidVariant    ErrorCode = "invalid_variant"
	ErrCodeInsufficientStock ErrorCode = "insufficient_stock"
	ErrCodeEmptyCart         ErrorCode = "empty_cart"
	ErrCodeInvalidTransition ErrorCode = "invalid_transition"
	ErrCodeWarrantyExpired   ErrorCode = "warranty_expired"
	ErrCodeDuplicateClaim    ErrorCode = "duplicate_claim"
	ErrCodeUnauthenticated   ErrorCode = "unauthenticated"

	ErrCodeVoucherNotFound     ErrorCode = "voucher_not_found"
	ErrCodeVoucherExpired      ErrorCode = "voucher_expired"
	ErrCodeVoucherBelowMinimum ErrorCode = "voucher_below_minimum"
	ErrCodeVoucherExhausted    ErrorCode = "voucher_exhausted"
)

// AppError is the domain error carried from models/controllers up to the HTTP
// boundary, where it is rendered as {"error": Message, "code": Code, ...Details}.
type AppError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *AppError) Error() string { return e.Message }

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

// HTTPStatus maps the error code to the response status. Every domain failure
// is a 4xx; anything that is not an AppError is treated as a 500 by callers.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

// ErrInsufficientStock carries the stock ceiling so the UI can show how many
// units are actually left.
func ErrInsufficientStock(productName string, available, held, requested int) *AppError {
	e := NewAppError(ErrCodeInsufficientStock, "insufficient stock for product: "+productName)
	e.WithDetail("available", available)
	if held > 0 {
		e.WithDetail("in_cart", held)
	}
	e.WithDetail("requested", requested)
	return e
}
