package service

import (
	"context"

	"github.com/google/uuid"

	"digistore-backend/internal/domains/catalog/model"
)

type ServiceInterface interface {
	// ============================================
	// ADMIN
	// ============================================
	CreateProduct(ctx context.Context, req model.CreateProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, req model.UpdateProductRequest) (*model.Product, error)
	CreateVariant(ctx context.Context, productID uuid.UUID, req model.CreateVariantRequest) (*model.Variant, error)

	// AddCodes bulk-loads pool codes for a digital_code product and writes
	// an audit entry naming the admin who uploaded them.
	AddCodes(ctx context.Context, adminID, productID uuid.UUID, req model.AddCodesRequest) (*model.AddCodesResult, error)

	// ReconcileStock recounts available pool codes against the denormalized
	// counters and repairs drift. actorID is nil when the scheduler runs it.
	ReconcileStock(ctx context.Context, actorID *uuid.UUID) (*model.ReconcileResult, error)

	// ============================================
	// STOREFRONT
	// ============================================
	ListProducts(ctx context.Context, filter model.ListFilter, page, limit int) ([]model.Product, int, error)

	// GetProduct serves the public detail view through the redis cache.
	// Stock numbers may be a few seconds stale; reservations re-check under
	// lock, so staleness here can never oversell.
	GetProduct(ctx context.Context, slug string) (*model.ProductDetail, error)
}
