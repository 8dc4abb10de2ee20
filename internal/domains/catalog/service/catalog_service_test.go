package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditModel "digistore-backend/internal/domains/audit/model"
	auditRepo "digistore-backend/internal/domains/audit/repository"
	"digistore-backend/internal/domains/catalog/model"
	"digistore-backend/internal/domains/catalog/repository"
	"digistore-backend/internal/infrastructure/cache"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeCatalogRepo struct {
	repository.RepositoryInterface

	products map[uuid.UUID]*model.Product
	variants map[uuid.UUID]*model.Variant

	addedCodes     []string
	stockAfterAdd  int
	reconcile      *model.ReconcileResult
	reconcileCalls int
}

func newFakeRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		products: make(map[uuid.UUID]*model.Product),
		variants: make(map[uuid.UUID]*model.Variant),
	}
}

func (r *fakeCatalogRepo) CreateProduct(ctx context.Context, product *model.Product) error {
	for _, p := range r.products {
		if p.Slug == product.Slug {
			return model.ErrSlugExists
		}
	}
	r.products[product.ID] = product
	return nil
}

func (r *fakeCatalogRepo) UpdateProduct(ctx context.Context, product *model.Product) error {
	r.products[product.ID] = product
	return nil
}

func (r *fakeCatalogRepo) GetProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, model.ErrProductNotFound
	}
	return p, nil
}

func (r *fakeCatalogRepo) GetProductBySlug(ctx context.Context, slug string) (*model.Product, error) {
	for _, p := range r.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, model.ErrProductNotFound
}

func (r *fakeCatalogRepo) GetVariantByID(ctx context.Context, id uuid.UUID) (*model.Variant, error) {
	v, ok := r.variants[id]
	if !ok {
		return nil, model.ErrVariantNotFound
	}
	return v, nil
}

func (r *fakeCatalogRepo) ListVariants(ctx context.Context, productID uuid.UUID) ([]model.Variant, error) {
	var out []model.Variant
	for _, v := range r.variants {
		if v.ProductID == productID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *fakeCatalogRepo) CreateVariant(ctx context.Context, variant *model.Variant) error {
	for _, v := range r.variants {
		if v.SKU == variant.SKU {
			return model.ErrSKUExists
		}
	}
	r.variants[variant.ID] = variant
	if p, ok := r.products[variant.ProductID]; ok {
		p.HasVariants = true
	}
	return nil
}

func (r *fakeCatalogRepo) AddCodes(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, payloads []string) (int, error) {
	r.addedCodes = append(r.addedCodes, payloads...)
	r.stockAfterAdd += len(payloads)
	return r.stockAfterAdd, nil
}

func (r *fakeCatalogRepo) ReconcileStockCounts(ctx context.Context) (*model.ReconcileResult, error) {
	r.reconcileCalls++
	return r.reconcile, nil
}

type fakeAuditRepo struct {
	auditRepo.RepositoryInterface

	entries []auditModel.Entry
}

func (a *fakeAuditRepo) Append(ctx context.Context, entry *auditModel.Entry) error {
	a.entries = append(a.entries, *entry)
	return nil
}

func (a *fakeAuditRepo) AppendWithTx(ctx context.Context, tx pgx.Tx, entry *auditModel.Entry) error {
	return a.Append(ctx, entry)
}

// deadCache points at a port nothing listens on; every cache call fails and
// the service must fall through to the repository.
func deadCache() *cache.RedisClient {
	return cache.NewRedisClient("127.0.0.1:1", "", 0)
}

func newService() (ServiceInterface, *fakeCatalogRepo, *fakeAuditRepo) {
	repo := newFakeRepo()
	audit := &fakeAuditRepo{}
	return NewCatalogService(repo, audit, deadCache()), repo, audit
}

// ============================================
// PRODUCTS
// ============================================

func TestCreateProductDigitalCode(t *testing.T) {
	svc, _, _ := newService()

	product, err := svc.CreateProduct(context.Background(), model.CreateProductRequest{
		Kind:     model.KindDigitalCode.String(),
		Name:     "Steam Gift Card 10 USD",
		PriceJOD: "7.500",
		PriceUSD: "10.00",
		IsActive: true,
	})
	require.NoError(t, err)

	assert.Equal(t, model.KindDigitalCode, product.Kind)
	assert.Equal(t, "steam-gift-card-10-usd", product.Slug)
	assert.True(t, product.PriceJOD.Equal(dec("7.50")), "price rounded to 2dp, got %s", product.PriceJOD)
	assert.Equal(t, 0, product.StockCount, "digital products start with an empty pool")
}

func TestCreateProductAccountKindHasSentinelStock(t *testing.T) {
	svc, _, _ := newService()

	product, err := svc.CreateProduct(context.Background(), model.CreateProductRequest{
		Kind:     model.KindExistingAccount.String(),
		Name:     "Netflix Account",
		PriceJOD: "5.00",
		PriceUSD: "7.05",
		IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, -1, product.StockCount, "account kinds are never sold out")
}

func TestCreateProductRejectsInvalidKind(t *testing.T) {
	svc, _, _ := newService()

	_, err := svc.CreateProduct(context.Background(), model.CreateProductRequest{
		Kind:     "subscription",
		Name:     "Bad Kind",
		PriceJOD: "1.00",
		PriceUSD: "1.41",
	})
	assert.ErrorIs(t, err, model.ErrInvalidKind)
}

func TestCreateProductRejectsNegativePrice(t *testing.T) {
	svc, _, _ := newService()

	_, err := svc.CreateProduct(context.Background(), model.CreateProductRequest{
		Kind:     model.KindDigitalCode.String(),
		Name:     "Negative",
		PriceJOD: "-1.00",
		PriceUSD: "1.00",
	})
	require.Error(t, err)
}

func TestCreateProductDuplicateSlug(t *testing.T) {
	svc, _, _ := newService()

	req := model.CreateProductRequest{
		Kind:     model.KindDigitalCode.String(),
		Name:     "Same Name",
		PriceJOD: "1.00",
		PriceUSD: "1.41",
	}
	_, err := svc.CreateProduct(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.CreateProduct(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrSlugExists)
}

func TestUpdateProductPartialMerge(t *testing.T) {
	svc, _, _ := newService()

	product, err := svc.CreateProduct(context.Background(), model.CreateProductRequest{
		Kind:     model.KindDigitalCode.String(),
		Name:     "PSN Card",
		PriceJOD: "10.00",
		PriceUSD: "14.10",
		IsActive: true,
	})
	require.NoError(t, err)

	newPrice := "12.00"
	updated, err := svc.UpdateProduct(context.Background(), product.ID, model.UpdateProductRequest{
		PriceJOD: &newPrice,
	})
	require.NoError(t, err)

	// Only the sent field changed.
	assert.True(t, updated.PriceJOD.Equal(dec("12.00")))
	assert.True(t, updated.PriceUSD.Equal(dec("14.10")))
	assert.Equal(t, "PSN Card", updated.Name)
	assert.True(t, updated.IsActive)
}

// ============================================
// CODE POOL
// ============================================

func codeProduct(t *testing.T, svc ServiceInterface) *model.Product {
	t.Helper()
	product, err := svc.CreateProduct(context.Background(), model.CreateProductRequest{
		Kind:     model.KindDigitalCode.String(),
		Name:     "Xbox Card",
		PriceJOD: "10.00",
		PriceUSD: "14.10",
		IsActive: true,
	})
	require.NoError(t, err)
	return product
}

func TestAddCodes(t *testing.T) {
	svc, repo, audit := newService()
	product := codeProduct(t, svc)
	adminID := uuid.New()

	result, err := svc.AddCodes(context.Background(), adminID, product.ID, model.AddCodesRequest{
		Codes: []string{"AAAA-BBBB", "CCCC-DDDD", "EEEE-FFFF"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Added)
	assert.Equal(t, 3, result.StockCount)
	assert.Len(t, repo.addedCodes, 3)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, auditModel.ActionCodesAdded, audit.entries[0].Action)
}

func TestAddCodesRejectsAccountKind(t *testing.T) {
	svc, _, _ := newService()
	product, err := svc.CreateProduct(context.Background(), model.CreateProductRequest{
		Kind:     model.KindNewAccount.String(),
		Name:     "Fresh Account",
		PriceJOD: "5.00",
		PriceUSD: "7.05",
	})
	require.NoError(t, err)

	_, err = svc.AddCodes(context.Background(), uuid.New(), product.ID, model.AddCodesRequest{
		Codes: []string{"AAAA"},
	})
	assert.ErrorIs(t, err, model.ErrKindMismatch)
}

func TestAddCodesRejectsForeignVariant(t *testing.T) {
	svc, repo, _ := newService()
	product := codeProduct(t, svc)

	// Variant hanging off a different product.
	foreign := &model.Variant{ID: uuid.New(), ProductID: uuid.New(), SKU: "other"}
	repo.variants[foreign.ID] = foreign

	_, err := svc.AddCodes(context.Background(), uuid.New(), product.ID, model.AddCodesRequest{
		VariantID: &foreign.ID,
		Codes:     []string{"AAAA"},
	})
	assert.ErrorIs(t, err, model.ErrVariantNotFound)
}

// ============================================
// STOREFRONT READS
// ============================================

func TestGetProductHidesInactive(t *testing.T) {
	svc, repo, _ := newService()
	product := codeProduct(t, svc)
	repo.products[product.ID].IsActive = false

	_, err := svc.GetProduct(context.Background(), product.Slug)
	assert.ErrorIs(t, err, model.ErrProductNotFound)
}

func TestGetProductIncludesVariants(t *testing.T) {
	svc, _, _ := newService()
	product := codeProduct(t, svc)

	_, err := svc.CreateVariant(context.Background(), product.ID, model.CreateVariantRequest{
		Name:     "10 USD",
		SKU:      "xbox-10",
		PriceJOD: "7.00",
		PriceUSD: "10.00",
		IsActive: true,
	})
	require.NoError(t, err)

	detail, err := svc.GetProduct(context.Background(), product.Slug)
	require.NoError(t, err)
	require.Len(t, detail.Variants, 1)
	assert.Equal(t, "xbox-10", detail.Variants[0].SKU)
}

// ============================================
// RECONCILIATION
// ============================================

func TestReconcileStockAuditsOnlyOnDrift(t *testing.T) {
	svc, repo, audit := newService()

	repo.reconcile = &model.ReconcileResult{Checked: 4}
	result, err := svc.ReconcileStock(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Checked)
	assert.Empty(t, audit.entries, "clean run leaves no audit trail")

	repo.reconcile = &model.ReconcileResult{
		Checked: 4,
		Drifts: []model.StockDrift{
			{ProductID: uuid.New(), Stored: 7, Counted: 5},
		},
	}
	_, err = svc.ReconcileStock(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, auditModel.ActionStockReconciled, audit.entries[0].Action)
	assert.Equal(t, auditModel.RoleSystem, audit.entries[0].ActorRole)
	assert.Nil(t, audit.entries[0].ActorID)
}

func TestReconcileStockAdminActor(t *testing.T) {
	svc, repo, audit := newService()
	adminID := uuid.New()

	repo.reconcile = &model.ReconcileResult{
		Checked: 1,
		Drifts:  []model.StockDrift{{ProductID: uuid.New(), Stored: 3, Counted: 2}},
	}
	_, err := svc.ReconcileStock(context.Background(), &adminID)
	require.NoError(t, err)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, auditModel.RoleAdmin, audit.entries[0].ActorRole)
}
