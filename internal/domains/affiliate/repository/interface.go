package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"digistore-backend/internal/domains/affiliate/model"
)

type RepositoryInterface interface {
	// ============================================
	// ADMIN CRUD
	// ============================================
	Create(ctx context.Context, affiliate *model.Affiliate) error
	Update(ctx context.Context, affiliate *model.Affiliate) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Affiliate, error)
	List(ctx context.Context, page, limit int) ([]model.Affiliate, int, error)
	GetStats(ctx context.Context, affiliateID uuid.UUID) ([]model.Stats, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)

	// ============================================
	// ACCRUAL
	// ============================================

	// AccrueWithTx bumps the per-currency running totals inside the order
	// transaction, creating the stats row on first sale.
	AccrueWithTx(ctx context.Context, tx pgx.Tx, affiliateID uuid.UUID, currency string, sale, commission decimal.Decimal) error

	// RecomputeStats rebuilds the stats rows from usage records and reports
	// any drift it repaired. Orders that were cancelled, refunded, or failed
	// are excluded from the rebuild.
	RecomputeStats(ctx context.Context, affiliateID uuid.UUID) (*model.RecomputeResult, error)
}
