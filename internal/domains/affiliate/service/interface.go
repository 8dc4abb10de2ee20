package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"digistore-backend/internal/domains/affiliate/model"
)

type ServiceInterface interface {
	// ============================================
	// ADMIN
	// ============================================
	Create(ctx context.Context, req model.CreateAffiliateRequest) (*model.Affiliate, error)
	Update(ctx context.Context, id uuid.UUID, req model.UpdateAffiliateRequest) (*model.Affiliate, error)
	Get(ctx context.Context, id uuid.UUID) (*model.AffiliateDetail, error)
	List(ctx context.Context, page, limit int) ([]model.Affiliate, int, error)

	// Recompute rebuilds one affiliate's stats from usage records.
	Recompute(ctx context.Context, actorID *uuid.UUID, id uuid.UUID) (*model.RecomputeResult, error)

	// RecomputeAll is the scheduled drift check over every active affiliate.
	RecomputeAll(ctx context.Context) error

	// ============================================
	// ACCRUAL (inside the order transaction)
	// ============================================
	AccrueWithTx(ctx context.Context, tx pgx.Tx, affiliateID uuid.UUID, currency string, sale, commission decimal.Decimal) error
}
