package model

import "errors"

// =====================================================
// CUSTOM ERROR CODES
// =====================================================
const (
	ErrCodeCouponNotFound   = "DIS001"
	ErrCodeCouponInactive   = "DIS002"
	ErrCodeCouponExpired    = "DIS003"
	ErrCodeCouponExhausted  = "DIS004"
	ErrCodeBelowMinPurchase = "DIS005"
	ErrCodeNotApplicable    = "DIS006"
	ErrCodeUsageRaceLost    = "DIS007"
	ErrCodeCouponExists     = "DIS008"
)

// =====================================================
// ERROR DEFINITIONS
// =====================================================
var (
	ErrCouponNotFound   = errors.New("coupon not found")
	ErrCouponInactive   = errors.New("coupon is not active")
	ErrCouponExpired    = errors.New("coupon has expired")
	ErrCouponExhausted  = errors.New("coupon usage limit reached")
	ErrBelowMinPurchase = errors.New("cart subtotal is below the coupon minimum")
	ErrNotApplicable    = errors.New("coupon does not apply to any cart item")
	// ErrUsageRaceLost means the guarded used_count increment matched zero
	// rows: another order consumed the last use first.
	ErrUsageRaceLost = errors.New("coupon usage limit reached concurrently")
	ErrCouponExists  = errors.New("coupon code already exists")
)

type DiscountError struct {
	Code    string
	Message string
	Err     error
}

func (e *DiscountError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DiscountError) Unwrap() error {
	return e.Err
}

func NewDiscountError(code, message string, err error) *DiscountError {
	return &DiscountError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
