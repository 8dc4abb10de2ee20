package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"digistore-backend/internal/domains/discount/model"
)

type ServiceInterface interface {
	// ============================================
	// PRICING
	// ============================================

	// Preview prices a storefront cart against a coupon without consuming
	// anything. Prices are looked up server-side in the requested currency.
	Preview(ctx context.Context, req model.PreviewRequest) (*model.Quote, error)

	// Price runs the engine over an already-snapshotted cart. Order
	// creation calls this with its frozen line prices.
	Price(ctx context.Context, items []model.CartItem, couponCode string) (*model.Quote, error)

	// ============================================
	// COMMIT (inside the order transaction)
	// ============================================

	// ConsumeWithTx burns one use of the coupon and records the usage row.
	// Fails with ErrUsageRaceLost if a concurrent order took the last use.
	ConsumeWithTx(ctx context.Context, tx pgx.Tx, usage *model.Usage) error

	// ============================================
	// ADMIN
	// ============================================
	CreateCoupon(ctx context.Context, adminID uuid.UUID, req model.CreateCouponRequest) (*model.Coupon, error)
	UpdateCoupon(ctx context.Context, adminID, id uuid.UUID, req model.UpdateCouponRequest) (*model.Coupon, error)
	ListCoupons(ctx context.Context, page, limit int) ([]model.CouponStats, int, error)
}
