package model

import "errors"

// =====================================================
// CUSTOM ERROR CODES
// =====================================================
const (
	ErrCodeOrderNotFound       = "ORD001"
	ErrCodeNotOwner            = "ORD002"
	ErrCodeEmptyOrder          = "ORD003"
	ErrCodeMixedKinds          = "ORD004"
	ErrCodeIllegalTransition   = "ORD005"
	ErrCodeRevealNotAllowed    = "ORD006"
	ErrCodeDisputeNotAllowed   = "ORD007"
	ErrCodeNoOpenDispute       = "ORD008"
	ErrCodeConcurrencyConflict = "ORD009"
	ErrCodeInvalidDecision     = "ORD010"
	ErrCodeMissingContact      = "ORD011"
)

// =====================================================
// ERROR DEFINITIONS
// =====================================================
var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrNotOwner          = errors.New("order belongs to another user")
	ErrEmptyOrder        = errors.New("order has no items")
	ErrMixedKinds        = errors.New("order cannot mix product kinds")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrRevealNotAllowed  = errors.New("order is not ready to reveal")
	ErrDisputeNotAllowed = errors.New("order cannot be disputed in its current state")
	ErrNoOpenDispute     = errors.New("order has no open dispute")
	ErrInvalidDecision   = errors.New("invalid dispute decision")
	ErrMissingContact    = errors.New("product requires contact details the order is missing")

	// ErrVersionMismatch means the optimistic version guard matched zero
	// rows; the caller retries the whole operation once.
	ErrVersionMismatch = errors.New("order was modified concurrently")

	ErrInvalidDeliveryData = errors.New("invalid delivery data")
)

type OrderError struct {
	Code    string
	Message string
	Err     error
}

func (e *OrderError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

func NewOrderError(code, message string, err error) *OrderError {
	return &OrderError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
