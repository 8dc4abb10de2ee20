package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"digistore-backend/internal/domains/discount/model"
)

type RepositoryInterface interface {
	// ============================================
	// ADMIN CRUD
	// ============================================
	Create(ctx context.Context, coupon *model.Coupon) error
	Update(ctx context.Context, coupon *model.Coupon) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error)
	List(ctx context.Context, page, limit int) ([]model.CouponStats, int, error)

	// ============================================
	// PRICING / CONSUMPTION
	// ============================================

	// GetByCode matches case-insensitively; codes are stored uppercase.
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)

	// ConsumeWithTx increments used_count with a guard on max_uses. Zero
	// rows affected means another order took the last use concurrently.
	ConsumeWithTx(ctx context.Context, tx pgx.Tx, couponID uuid.UUID) error

	// CreateUsageWithTx records one consumed application in the order
	// transaction.
	CreateUsageWithTx(ctx context.Context, tx pgx.Tx, usage *model.Usage) error
}
