package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	auditModel "digistore-backend/internal/domains/audit/model"
	auditRepo "digistore-backend/internal/domains/audit/repository"
	"digistore-backend/internal/domains/catalog/model"
	"digistore-backend/internal/domains/catalog/repository"
	"digistore-backend/internal/infrastructure/cache"
	"digistore-backend/internal/shared/utils"
	"digistore-backend/pkg/logger"
)

const (
	productCacheKeyPrefix = "catalog:product:"
	productCacheTTL       = 5 * time.Minute
)

type catalogService struct {
	repo      repository.RepositoryInterface
	auditRepo auditRepo.RepositoryInterface
	cache     *cache.RedisClient
}

func NewCatalogService(repo repository.RepositoryInterface, audit auditRepo.RepositoryInterface, redisClient *cache.RedisClient) ServiceInterface {
	return &catalogService{
		repo:      repo,
		auditRepo: audit,
		cache:     redisClient,
	}
}

// =====================================================
// ADMIN WRITES
// =====================================================

func (s *catalogService) CreateProduct(ctx context.Context, req model.CreateProductRequest) (*model.Product, error) {
	kind := model.ProductKind(req.Kind)
	if !kind.IsValid() {
		return nil, model.NewCatalogError(model.ErrCodeInvalidKind, "invalid product kind", model.ErrInvalidKind)
	}

	priceJOD, priceUSD, err := parsePricePair(req.PriceJOD, req.PriceUSD)
	if err != nil {
		return nil, err
	}

	slug := req.Slug
	if slug == "" {
		slug = utils.GenerateSlug(req.Name)
	}

	product := &model.Product{
		ID:               uuid.New(),
		Kind:             kind,
		Name:             req.Name,
		Slug:             slug,
		Description:      req.Description,
		ImageURL:         req.ImageURL,
		PriceJOD:         priceJOD,
		PriceUSD:         priceUSD,
		RequiresEmail:    req.RequiresEmail,
		RequiresPassword: req.RequiresPassword,
		RequiresPhone:    req.RequiresPhone,
		IsActive:         req.IsActive,
	}

	// Account kinds have no code pool; the counter is a sentinel meaning
	// "fulfilled manually, never sold out".
	if kind != model.KindDigitalCode {
		product.StockCount = -1
	}

	if product.OriginalPriceJOD, err = parseOptionalPrice(req.OriginalPriceJOD); err != nil {
		return nil, err
	}
	if product.OriginalPriceUSD, err = parseOptionalPrice(req.OriginalPriceUSD); err != nil {
		return nil, err
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if errors.Is(err, model.ErrSlugExists) {
			return nil, model.NewCatalogError(model.ErrCodeSlugExists, "slug already exists", err)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, req model.UpdateProductRequest) (*model.Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrProductNotFound) {
			return nil, model.NewCatalogError(model.ErrCodeProductNotFound, "product not found", err)
		}
		return nil, fmt.Errorf("load product: %w", err)
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = req.Description
	}
	if req.ImageURL != nil {
		product.ImageURL = req.ImageURL
	}
	if req.PriceJOD != nil {
		d, err := parsePrice(*req.PriceJOD)
		if err != nil {
			return nil, err
		}
		product.PriceJOD = d
	}
	if req.PriceUSD != nil {
		d, err := parsePrice(*req.PriceUSD)
		if err != nil {
			return nil, err
		}
		product.PriceUSD = d
	}
	if req.OriginalPriceJOD != nil {
		if product.OriginalPriceJOD, err = parseOptionalPrice(req.OriginalPriceJOD); err != nil {
			return nil, err
		}
	}
	if req.OriginalPriceUSD != nil {
		if product.OriginalPriceUSD, err = parseOptionalPrice(req.OriginalPriceUSD); err != nil {
			return nil, err
		}
	}
	if req.RequiresEmail != nil {
		product.RequiresEmail = *req.RequiresEmail
	}
	if req.RequiresPassword != nil {
		product.RequiresPassword = *req.RequiresPassword
	}
	if req.RequiresPhone != nil {
		product.RequiresPhone = *req.RequiresPhone
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.invalidateProduct(ctx, product.Slug)
	return product, nil
}

func (s *catalogService) CreateVariant(ctx context.Context, productID uuid.UUID, req model.CreateVariantRequest) (*model.Variant, error) {
	product, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, model.ErrProductNotFound) {
			return nil, model.NewCatalogError(model.ErrCodeProductNotFound, "product not found", err)
		}
		return nil, fmt.Errorf("load product: %w", err)
	}

	priceJOD, priceUSD, err := parsePricePair(req.PriceJOD, req.PriceUSD)
	if err != nil {
		return nil, err
	}

	variant := &model.Variant{
		ID:        uuid.New(),
		ProductID: product.ID,
		Name:      req.Name,
		SKU:       req.SKU,
		PriceJOD:  priceJOD,
		PriceUSD:  priceUSD,
		IsActive:  req.IsActive,
	}
	if product.Kind != model.KindDigitalCode {
		variant.StockCount = -1
	}

	if err := s.repo.CreateVariant(ctx, variant); err != nil {
		if errors.Is(err, model.ErrSKUExists) {
			return nil, model.NewCatalogError(model.ErrCodeSKUExists, "sku already exists", err)
		}
		return nil, fmt.Errorf("create variant: %w", err)
	}

	s.invalidateProduct(ctx, product.Slug)
	return variant, nil
}

func (s *catalogService) AddCodes(ctx context.Context, adminID, productID uuid.UUID, req model.AddCodesRequest) (*model.AddCodesResult, error) {
	product, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, model.ErrProductNotFound) {
			return nil, model.NewCatalogError(model.ErrCodeProductNotFound, "product not found", err)
		}
		return nil, fmt.Errorf("load product: %w", err)
	}
	if product.Kind != model.KindDigitalCode {
		return nil, model.NewCatalogError(model.ErrCodeKindMismatch,
			"codes can only be added to digital_code products", model.ErrKindMismatch)
	}
	if req.VariantID != nil {
		variant, err := s.repo.GetVariantByID(ctx, *req.VariantID)
		if err != nil {
			return nil, model.NewCatalogError(model.ErrCodeVariantNotFound, "variant not found", err)
		}
		if variant.ProductID != product.ID {
			return nil, model.NewCatalogError(model.ErrCodeVariantNotFound, "variant does not belong to product", model.ErrVariantNotFound)
		}
	}

	stock, err := s.repo.AddCodes(ctx, productID, req.VariantID, req.Codes)
	if err != nil {
		return nil, fmt.Errorf("add codes: %w", err)
	}

	entry := &auditModel.Entry{
		ID:         uuid.New(),
		ActorID:    &adminID,
		ActorRole:  auditModel.RoleAdmin,
		Action:     auditModel.ActionCodesAdded,
		EntityType: "product",
		EntityID:   productID,
		After: map[string]interface{}{
			"added":       len(req.Codes),
			"stock_count": stock,
		},
	}
	if err := s.auditRepo.Append(ctx, entry); err != nil {
		logger.Error("failed to audit code upload", err)
	}

	s.invalidateProduct(ctx, product.Slug)
	return &model.AddCodesResult{Added: len(req.Codes), StockCount: stock}, nil
}

func (s *catalogService) ReconcileStock(ctx context.Context, actorID *uuid.UUID) (*model.ReconcileResult, error) {
	result, err := s.repo.ReconcileStockCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile stock: %w", err)
	}

	if len(result.Drifts) > 0 {
		logger.Warn("stock counters drifted from code pool", map[string]interface{}{
			"checked": result.Checked,
			"drifts":  len(result.Drifts),
		})

		role := auditModel.RoleSystem
		if actorID != nil {
			role = auditModel.RoleAdmin
		}
		after := make(map[string]interface{}, 2)
		after["checked"] = result.Checked
		after["drifts"] = result.Drifts
		entry := &auditModel.Entry{
			ID:         uuid.New(),
			ActorID:    actorID,
			ActorRole:  role,
			Action:     auditModel.ActionStockReconciled,
			EntityType: "catalog",
			EntityID:   uuid.Nil,
			After:      after,
		}
		if err := s.auditRepo.Append(ctx, entry); err != nil {
			logger.Error("failed to audit stock reconcile", err)
		}
	}
	return result, nil
}

// =====================================================
// STOREFRONT READS
// =====================================================

func (s *catalogService) ListProducts(ctx context.Context, filter model.ListFilter, page, limit int) ([]model.Product, int, error) {
	return s.repo.ListProducts(ctx, filter, page, limit)
}

func (s *catalogService) GetProduct(ctx context.Context, slug string) (*model.ProductDetail, error) {
	cacheKey := productCacheKeyPrefix + slug

	if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
		var detail model.ProductDetail
		if err := json.Unmarshal([]byte(cached), &detail); err == nil {
			return &detail, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn("product cache read failed", map[string]interface{}{
			"slug": slug, "error": err.Error(),
		})
	}

	product, err := s.repo.GetProductBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, model.ErrProductNotFound) {
			return nil, model.NewCatalogError(model.ErrCodeProductNotFound, "product not found", err)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	if !product.IsActive {
		return nil, model.NewCatalogError(model.ErrCodeProductNotFound, "product not found", model.ErrProductNotFound)
	}

	detail := &model.ProductDetail{Product: *product}
	if product.HasVariants {
		variants, err := s.repo.ListVariants(ctx, product.ID)
		if err != nil {
			return nil, fmt.Errorf("list variants: %w", err)
		}
		detail.Variants = variants
	}

	if b, err := json.Marshal(detail); err == nil {
		if err := s.cache.Set(ctx, cacheKey, string(b), productCacheTTL); err != nil {
			logger.Warn("product cache write failed", map[string]interface{}{
				"slug": slug, "error": err.Error(),
			})
		}
	}
	return detail, nil
}

func (s *catalogService) invalidateProduct(ctx context.Context, slug string) {
	if err := s.cache.Delete(ctx, productCacheKeyPrefix+slug); err != nil {
		logger.Warn("product cache invalidation failed", map[string]interface{}{
			"slug": slug, "error": err.Error(),
		})
	}
}

// =====================================================
// HELPERS
// =====================================================

func parsePrice(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.Decimal{}, model.NewCatalogError(model.ErrCodeInvalidKind, "invalid price", err)
	}
	return d.Round(2), nil
}

func parsePricePair(jod, usd string) (decimal.Decimal, decimal.Decimal, error) {
	priceJOD, err := parsePrice(jod)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	priceUSD, err := parsePrice(usd)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, err
	}
	return priceJOD, priceUSD, nil
}

func parseOptionalPrice(raw *string) (*decimal.Decimal, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	d, err := parsePrice(*raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
