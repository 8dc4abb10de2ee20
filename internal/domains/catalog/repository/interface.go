package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"digistore-backend/internal/domains/catalog/model"
)

type RepositoryInterface interface {
	// ============================================
	// TRANSACTION MANAGEMENT
	// ============================================
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CommitTx(ctx context.Context, tx pgx.Tx) error
	RollbackTx(ctx context.Context, tx pgx.Tx) error

	// ============================================
	// PRODUCTS / VARIANTS
	// ============================================
	CreateProduct(ctx context.Context, product *model.Product) error
	UpdateProduct(ctx context.Context, product *model.Product) error
	GetProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*model.Product, error)
	ListProducts(ctx context.Context, filter model.ListFilter, page, limit int) ([]model.Product, int, error)

	CreateVariant(ctx context.Context, variant *model.Variant) error
	GetVariantByID(ctx context.Context, id uuid.UUID) (*model.Variant, error)
	ListVariants(ctx context.Context, productID uuid.UUID) ([]model.Variant, error)

	// GetProductWithTx locks the product row for the duration of the
	// surrounding transaction.
	GetProductWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Product, error)
	GetVariantWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Variant, error)

	// ============================================
	// CODE POOL
	// ============================================

	// AddCodes inserts payloads encrypted at rest and bumps the stock
	// counter in the same transaction. Returns the new stock count.
	AddCodes(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, payloads []string) (int, error)

	// ReserveCodesWithTx claims exactly qty available codes for the order:
	// rows are locked FOR UPDATE, flipped to reserved, bound to the order,
	// and the stock counter is decremented, all inside tx. Returns the
	// remaining stock count. Fails with ErrInsufficientStock when fewer than
	// qty codes are available; the caller's rollback undoes everything.
	ReserveCodesWithTx(ctx context.Context, tx pgx.Tx, productID uuid.UUID, variantID *uuid.UUID, orderID uuid.UUID, qty int) (int, error)

	// ReleaseCodesWithTx returns an order's reserved codes to the pool and
	// restores the stock counter. Revealed codes are never released.
	ReleaseCodesWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error

	// RevealCodesWithTx flips the order's reserved codes to revealed, stamps
	// revealed_at, and returns them with decrypted payloads.
	RevealCodesWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) ([]model.Code, error)

	// GetRevealedCodes returns the order's already-revealed codes with
	// decrypted payloads. Used by the idempotent second reveal.
	GetRevealedCodes(ctx context.Context, orderID uuid.UUID) ([]model.Code, error)

	// ============================================
	// RECONCILIATION
	// ============================================

	// ReconcileStockCounts recounts available codes per product and variant
	// and repairs any stock_count drift.
	ReconcileStockCounts(ctx context.Context) (*model.ReconcileResult, error)
}
