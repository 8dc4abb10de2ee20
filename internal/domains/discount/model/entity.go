package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ============================================================================
// DISCOUNT / COMMISSION TYPES
// ============================================================================

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

func (t DiscountType) IsValid() bool {
	return t == DiscountTypePercentage || t == DiscountTypeFixed
}

type CommissionType string

const (
	CommissionTypePercentage CommissionType = "percentage"
	CommissionTypeFixed      CommissionType = "fixed"
)

func (t CommissionType) IsValid() bool {
	return t == CommissionTypePercentage || t == CommissionTypeFixed
}

// ============================================================================
// ENTITIES
// ============================================================================

// Coupon codes are stored uppercase and matched case-insensitively.
// ApplicableProducts nil/empty means the coupon covers the whole catalog.
type Coupon struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Code         string          `json:"code" db:"code"`
	DiscountType DiscountType    `json:"discount_type" db:"discount_type"`
	Value        decimal.Decimal `json:"value" db:"value"`

	MinPurchase decimal.Decimal `json:"min_purchase" db:"min_purchase"`
	MaxUses     *int            `json:"max_uses" db:"max_uses"`
	UsedCount   int             `json:"used_count" db:"used_count"`
	ValidUntil  *time.Time      `json:"valid_until" db:"valid_until"`

	ApplicableProducts pq.StringArray `json:"applicable_products" db:"applicable_products"`

	// Affiliate link; nil for plain marketing coupons.
	AffiliateID     *uuid.UUID       `json:"affiliate_id" db:"affiliate_id"`
	CommissionType  *CommissionType  `json:"commission_type" db:"commission_type"`
	CommissionValue *decimal.Decimal `json:"commission_value" db:"commission_value"`

	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AppliesTo reports whether a product is inside the coupon's scope.
func (c *Coupon) AppliesTo(productID uuid.UUID) bool {
	if len(c.ApplicableProducts) == 0 {
		return true
	}
	id := productID.String()
	for _, p := range c.ApplicableProducts {
		if strings.EqualFold(p, id) {
			return true
		}
	}
	return false
}

// Usage is one consumed coupon application, written in the order transaction.
type Usage struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	CouponID   uuid.UUID       `json:"coupon_id" db:"coupon_id"`
	UserID     uuid.UUID       `json:"user_id" db:"user_id"`
	OrderID    uuid.UUID       `json:"order_id" db:"order_id"`
	Currency   string          `json:"currency" db:"currency"`
	Discount   decimal.Decimal `json:"discount" db:"discount"`
	Commission decimal.Decimal `json:"commission" db:"commission"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// ============================================================================
// CART SNAPSHOT
// ============================================================================

// CartItem is one priced line of the buyer's cart. Unit prices are the frozen
// catalog snapshot in the order's settlement currency; the engine never
// recomputes them.
type CartItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	VariantID *uuid.UUID      `json:"variant_id,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Quote is the engine's answer for one cart + coupon combination.
type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	// ApplicableSubtotal is the portion of the cart inside the coupon's
	// product scope; equals Subtotal for unscoped coupons.
	ApplicableSubtotal decimal.Decimal `json:"applicable_subtotal"`
	Discount           decimal.Decimal `json:"discount_amount"`
	FinalTotal         decimal.Decimal `json:"final_total"`
	Commission         decimal.Decimal `json:"commission_due"`
	CouponID           *uuid.UUID      `json:"coupon_id,omitempty"`
	AffiliateID        *uuid.UUID      `json:"affiliate_id,omitempty"`
}
