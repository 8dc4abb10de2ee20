package service

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digistore-backend/internal/domains/discount/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func intPtr(n int) *int { return &n }

func percentCoupon(value string) *model.Coupon {
	return &model.Coupon{
		ID:           uuid.New(),
		Code:         "SAVE10",
		DiscountType: model.DiscountTypePercentage,
		Value:        dec(value),
		MinPurchase:  decimal.Zero,
		IsActive:     true,
	}
}

func cart(prices ...string) []model.CartItem {
	items := make([]model.CartItem, 0, len(prices))
	for _, p := range prices {
		items = append(items, model.CartItem{
			ProductID: uuid.New(),
			UnitPrice: dec(p),
			Quantity:  1,
		})
	}
	return items
}

func TestQuotePercentageDiscount(t *testing.T) {
	calc := NewCalculator()
	coupon := percentCoupon("10")

	quote, err := calc.Quote(coupon, cart("30.00", "20.00"), time.Now())
	require.NoError(t, err)

	assert.True(t, quote.Subtotal.Equal(dec("50.00")), "subtotal = %s", quote.Subtotal)
	assert.True(t, quote.ApplicableSubtotal.Equal(dec("50.00")))
	assert.True(t, quote.Discount.Equal(dec("5.00")), "discount = %s", quote.Discount)
	assert.True(t, quote.FinalTotal.Equal(dec("45.00")), "final = %s", quote.FinalTotal)
	assert.True(t, quote.Commission.IsZero())
}

func TestQuoteFixedDiscountClampedToApplicable(t *testing.T) {
	calc := NewCalculator()
	coupon := percentCoupon("0")
	coupon.DiscountType = model.DiscountTypeFixed
	coupon.Value = dec("100.00")

	quote, err := calc.Quote(coupon, cart("30.00"), time.Now())
	require.NoError(t, err)

	// A fixed coupon can never discount more than the scoped lines are worth.
	assert.True(t, quote.Discount.Equal(dec("30.00")))
	assert.True(t, quote.FinalTotal.IsZero())
}

func TestQuoteScopedCouponDiscountsOnlyMatchingLines(t *testing.T) {
	calc := NewCalculator()
	inScope := uuid.New()
	outOfScope := uuid.New()

	coupon := percentCoupon("10")
	coupon.ApplicableProducts = pq.StringArray{inScope.String()}

	items := []model.CartItem{
		{ProductID: inScope, UnitPrice: dec("30.00"), Quantity: 1},
		{ProductID: outOfScope, UnitPrice: dec("20.00"), Quantity: 1},
	}

	quote, err := calc.Quote(coupon, items, time.Now())
	require.NoError(t, err)

	assert.True(t, quote.Subtotal.Equal(dec("50.00")))
	assert.True(t, quote.ApplicableSubtotal.Equal(dec("30.00")))
	assert.True(t, quote.Discount.Equal(dec("3.00")), "discount = %s", quote.Discount)
	assert.True(t, quote.FinalTotal.Equal(dec("47.00")))
}

func TestQuoteMinPurchaseUsesWholeCart(t *testing.T) {
	calc := NewCalculator()
	inScope := uuid.New()

	// Scoped lines alone are below the minimum, but the whole cart clears it.
	coupon := percentCoupon("10")
	coupon.MinPurchase = dec("40.00")
	coupon.ApplicableProducts = pq.StringArray{inScope.String()}

	items := []model.CartItem{
		{ProductID: inScope, UnitPrice: dec("30.00"), Quantity: 1},
		{ProductID: uuid.New(), UnitPrice: dec("20.00"), Quantity: 1},
	}

	quote, err := calc.Quote(coupon, items, time.Now())
	require.NoError(t, err)
	assert.True(t, quote.Discount.Equal(dec("3.00")))
}

func TestQuoteBelowMinPurchase(t *testing.T) {
	calc := NewCalculator()
	coupon := percentCoupon("10")
	coupon.MinPurchase = dec("100.00")

	_, err := calc.Quote(coupon, cart("50.00"), time.Now())
	assert.ErrorIs(t, err, model.ErrBelowMinPurchase)
}

func TestQuoteNotApplicable(t *testing.T) {
	calc := NewCalculator()
	coupon := percentCoupon("10")
	coupon.ApplicableProducts = pq.StringArray{uuid.New().String()}

	_, err := calc.Quote(coupon, cart("50.00"), time.Now())
	assert.ErrorIs(t, err, model.ErrNotApplicable)
}

func TestQuoteValidationOrder(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)

	tests := []struct {
		name   string
		mutate func(*model.Coupon)
		want   error
	}{
		{
			"inactive wins over expired",
			func(c *model.Coupon) {
				c.IsActive = false
				c.ValidUntil = &past
			},
			model.ErrCouponInactive,
		},
		{
			"expired wins over exhausted",
			func(c *model.Coupon) {
				c.ValidUntil = &past
				c.MaxUses = intPtr(1)
				c.UsedCount = 1
			},
			model.ErrCouponExpired,
		},
		{
			"exhausted wins over min purchase",
			func(c *model.Coupon) {
				c.MaxUses = intPtr(1)
				c.UsedCount = 1
				c.MinPurchase = dec("1000.00")
			},
			model.ErrCouponExhausted,
		},
		{
			"min purchase wins over not applicable",
			func(c *model.Coupon) {
				c.MinPurchase = dec("1000.00")
				c.ApplicableProducts = pq.StringArray{uuid.New().String()}
			},
			model.ErrBelowMinPurchase,
		},
	}

	calc := NewCalculator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coupon := percentCoupon("10")
			tt.mutate(coupon)

			_, err := calc.Quote(coupon, cart("50.00"), now)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var discountErr *model.DiscountError
			assert.True(t, errors.As(err, &discountErr))
		})
	}
}

func TestQuotePercentageCommissionOnDiscountedApplicable(t *testing.T) {
	calc := NewCalculator()
	affiliateID := uuid.New()
	commissionType := model.CommissionTypePercentage
	commissionValue := dec("20")

	coupon := percentCoupon("10")
	coupon.AffiliateID = &affiliateID
	coupon.CommissionType = &commissionType
	coupon.CommissionValue = &commissionValue

	quote, err := calc.Quote(coupon, cart("100.00"), time.Now())
	require.NoError(t, err)

	// 20% of (100 - 10) = 18, not 20% of the gross 100.
	assert.True(t, quote.Discount.Equal(dec("10.00")))
	assert.True(t, quote.Commission.Equal(dec("18.00")), "commission = %s", quote.Commission)
	require.NotNil(t, quote.AffiliateID)
	assert.Equal(t, affiliateID, *quote.AffiliateID)
}

func TestQuoteFixedCommissionCappedAtFinalTotal(t *testing.T) {
	calc := NewCalculator()
	affiliateID := uuid.New()
	commissionType := model.CommissionTypeFixed
	commissionValue := dec("500.00")

	coupon := percentCoupon("50")
	coupon.AffiliateID = &affiliateID
	coupon.CommissionType = &commissionType
	coupon.CommissionValue = &commissionValue

	quote, err := calc.Quote(coupon, cart("100.00"), time.Now())
	require.NoError(t, err)

	// The affiliate can never earn more than the store collected.
	assert.True(t, quote.FinalTotal.Equal(dec("50.00")))
	assert.True(t, quote.Commission.Equal(dec("50.00")))
}

func TestQuoteNoCommissionWithoutAffiliate(t *testing.T) {
	calc := NewCalculator()
	quote, err := calc.Quote(percentCoupon("10"), cart("100.00"), time.Now())
	require.NoError(t, err)
	assert.True(t, quote.Commission.IsZero())
	assert.Nil(t, quote.AffiliateID)
}

func TestQuoteRounding(t *testing.T) {
	calc := NewCalculator()
	coupon := percentCoupon("15")

	quote, err := calc.Quote(coupon, cart("19.99"), time.Now())
	require.NoError(t, err)

	// 19.99 * 0.15 = 2.9985, rounded half-up to 3.00.
	assert.True(t, quote.Discount.Equal(dec("3.00")), "discount = %s", quote.Discount)
	assert.True(t, quote.FinalTotal.Equal(dec("16.99")))
}

func TestQuoteQuantityMultipliesLineTotal(t *testing.T) {
	calc := NewCalculator()
	coupon := percentCoupon("10")

	items := []model.CartItem{
		{ProductID: uuid.New(), UnitPrice: dec("5.00"), Quantity: 4},
	}
	quote, err := calc.Quote(coupon, items, time.Now())
	require.NoError(t, err)
	assert.True(t, quote.Subtotal.Equal(dec("20.00")))
	assert.True(t, quote.Discount.Equal(dec("2.00")))
}
