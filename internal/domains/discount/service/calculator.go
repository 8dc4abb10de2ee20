package service

import (
	"time"

	"github.com/shopspring/decimal"

	"digistore-backend/internal/domains/discount/model"
)

var hundred = decimal.NewFromInt(100)

// Calculator is the pure pricing engine. It holds no state and touches no
// storage, so the same cart + coupon + clock always yields the same quote.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// Quote validates the coupon against the cart and computes discount and
// commission. Checks run in a fixed order and the first failure wins, so a
// coupon that is both expired and exhausted always reports expired.
//
// Scoped coupons (applicable_products set) discount only the matching line
// items, but min_purchase is still checked against the whole cart subtotal.
func (c *Calculator) Quote(coupon *model.Coupon, items []model.CartItem, now time.Time) (*model.Quote, error) {
	if !coupon.IsActive {
		return nil, model.NewDiscountError(model.ErrCodeCouponInactive, "coupon is not active", model.ErrCouponInactive)
	}
	if coupon.ValidUntil != nil && now.After(*coupon.ValidUntil) {
		return nil, model.NewDiscountError(model.ErrCodeCouponExpired, "coupon has expired", model.ErrCouponExpired)
	}
	if coupon.MaxUses != nil && coupon.UsedCount >= *coupon.MaxUses {
		return nil, model.NewDiscountError(model.ErrCodeCouponExhausted, "coupon usage limit reached", model.ErrCouponExhausted)
	}

	subtotal := decimal.Zero
	applicable := decimal.Zero
	for _, item := range items {
		line := item.LineTotal()
		subtotal = subtotal.Add(line)
		if coupon.AppliesTo(item.ProductID) {
			applicable = applicable.Add(line)
		}
	}

	if subtotal.LessThan(coupon.MinPurchase) {
		return nil, model.NewDiscountError(model.ErrCodeBelowMinPurchase, "cart subtotal is below the coupon minimum", model.ErrBelowMinPurchase)
	}
	if applicable.IsZero() {
		return nil, model.NewDiscountError(model.ErrCodeNotApplicable, "coupon does not apply to any cart item", model.ErrNotApplicable)
	}

	discount := c.discountAmount(coupon, applicable)
	final := subtotal.Sub(discount)

	quote := &model.Quote{
		Subtotal:           subtotal,
		ApplicableSubtotal: applicable,
		Discount:           discount,
		FinalTotal:         final,
		CouponID:           &coupon.ID,
		AffiliateID:        coupon.AffiliateID,
		Commission:         c.commissionAmount(coupon, applicable.Sub(discount), final),
	}
	return quote, nil
}

func (c *Calculator) discountAmount(coupon *model.Coupon, applicable decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal

	switch coupon.DiscountType {
	case model.DiscountTypePercentage:
		discount = applicable.Mul(coupon.Value).Div(hundred).Round(2)
	case model.DiscountTypeFixed:
		discount = coupon.Value
	default:
		return decimal.Zero
	}

	// Never discount more than the scoped lines are worth.
	if discount.GreaterThan(applicable) {
		discount = applicable
	}
	return discount
}

// commissionAmount computes the affiliate's cut. Percentage commission runs
// against the discounted applicable amount; fixed commission is capped at the
// discounted order total so an affiliate can never earn more than the store
// collected.
func (c *Calculator) commissionAmount(coupon *model.Coupon, discountedApplicable, finalTotal decimal.Decimal) decimal.Decimal {
	if coupon.AffiliateID == nil || coupon.CommissionType == nil || coupon.CommissionValue == nil {
		return decimal.Zero
	}

	var commission decimal.Decimal
	switch *coupon.CommissionType {
	case model.CommissionTypePercentage:
		commission = discountedApplicable.Mul(*coupon.CommissionValue).Div(hundred).Round(2)
	case model.CommissionTypeFixed:
		commission = *coupon.CommissionValue
		if commission.GreaterThan(finalTotal) {
			commission = finalTotal
		}
	default:
		return decimal.Zero
	}

	if commission.IsNegative() {
		return decimal.Zero
	}
	return commission
}
