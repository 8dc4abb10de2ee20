package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================================
// STOREFRONT REQUESTS
// ============================================================================

// PreviewItem mirrors what the checkout will send to createOrder. Prices are
// looked up server-side; the client never supplies amounts.
type PreviewItem struct {
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id"`
	Quantity  int     `json:"quantity"`
}

func (i PreviewItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.ProductID, validation.Required, validation.By(validUUID)),
		validation.Field(&i.Quantity, validation.Required, validation.Min(1), validation.Max(100)),
	)
}

// PreviewRequest asks "what would this coupon do to this cart" without
// consuming anything.
type PreviewRequest struct {
	Items      []PreviewItem `json:"items"`
	CouponCode string        `json:"coupon_code"`
	Currency   string        `json:"currency"`
}

func (r PreviewRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Items, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.CouponCode, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Currency, validation.Required, validation.In("JOD", "USD")),
	)
}

func validUUID(value interface{}) error {
	s, _ := value.(string)
	_, err := uuid.Parse(s)
	return err
}

// ============================================================================
// ADMIN REQUESTS
// ============================================================================

type CreateCouponRequest struct {
	Code         string `json:"code"`
	DiscountType string `json:"discount_type"`
	Value        string `json:"value"`

	MinPurchase string     `json:"min_purchase"`
	MaxUses     *int       `json:"max_uses"`
	ValidUntil  *time.Time `json:"valid_until"`

	ApplicableProducts []string `json:"applicable_products"`

	AffiliateID     *string `json:"affiliate_id"`
	CommissionType  *string `json:"commission_type"`
	CommissionValue *string `json:"commission_value"`

	IsActive bool `json:"is_active"`
}

func (r CreateCouponRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required, validation.Length(2, 64)),
		validation.Field(&r.DiscountType, validation.Required,
			validation.In(string(DiscountTypePercentage), string(DiscountTypeFixed))),
		validation.Field(&r.Value, validation.Required),
		validation.Field(&r.MaxUses, validation.Min(1)),
		validation.Field(&r.CommissionType, validation.In(
			string(CommissionTypePercentage), string(CommissionTypeFixed))),
	)
}

type UpdateCouponRequest struct {
	Value              *string    `json:"value"`
	MinPurchase        *string    `json:"min_purchase"`
	MaxUses            *int       `json:"max_uses"`
	ValidUntil         *time.Time `json:"valid_until"`
	ApplicableProducts []string   `json:"applicable_products"`
	IsActive           *bool      `json:"is_active"`
}

// ============================================================================
// RESPONSES
// ============================================================================

// CouponStats is the admin listing row: the coupon plus its consumption.
type CouponStats struct {
	Coupon          Coupon          `json:"coupon"`
	TotalDiscount   decimal.Decimal `json:"total_discount"`
	TotalCommission decimal.Decimal `json:"total_commission"`
	OrderCount      int             `json:"order_count"`
}
