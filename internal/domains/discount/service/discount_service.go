package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	auditModel "digistore-backend/internal/domains/audit/model"
	auditRepo "digistore-backend/internal/domains/audit/repository"
	catalogModel "digistore-backend/internal/domains/catalog/model"
	catalogRepo "digistore-backend/internal/domains/catalog/repository"
	"digistore-backend/internal/domains/discount/model"
	"digistore-backend/internal/domains/discount/repository"
	walletModel "digistore-backend/internal/domains/wallet/model"
	"digistore-backend/pkg/logger"
)

type discountService struct {
	repo        repository.RepositoryInterface
	catalogRepo catalogRepo.RepositoryInterface
	auditRepo   auditRepo.RepositoryInterface
	calculator  *Calculator
}

func NewDiscountService(
	repo repository.RepositoryInterface,
	catalog catalogRepo.RepositoryInterface,
	audit auditRepo.RepositoryInterface,
) ServiceInterface {
	return &discountService{
		repo:        repo,
		catalogRepo: catalog,
		auditRepo:   audit,
		calculator:  NewCalculator(),
	}
}

// =====================================================
// PRICING
// =====================================================

func (s *discountService) Preview(ctx context.Context, req model.PreviewRequest) (*model.Quote, error) {
	items := make([]model.CartItem, 0, len(req.Items))
	for _, line := range req.Items {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("invalid product id: %w", err)
		}

		product, err := s.catalogRepo.GetProductByID(ctx, productID)
		if err != nil {
			return nil, err
		}
		if !product.IsActive {
			return nil, catalogModel.NewCatalogError(catalogModel.ErrCodeProductInactive,
				"product is not active", catalogModel.ErrProductInactive)
		}

		item := model.CartItem{
			ProductID: productID,
			Quantity:  line.Quantity,
			UnitPrice: priceIn(req.Currency, product.PriceJOD, product.PriceUSD),
		}

		if line.VariantID != nil && *line.VariantID != "" {
			variantID, err := uuid.Parse(*line.VariantID)
			if err != nil {
				return nil, fmt.Errorf("invalid variant id: %w", err)
			}
			variant, err := s.catalogRepo.GetVariantByID(ctx, variantID)
			if err != nil {
				return nil, err
			}
			if variant.ProductID != productID {
				return nil, catalogModel.ErrVariantNotFound
			}
			item.VariantID = &variantID
			item.UnitPrice = priceIn(req.Currency, variant.PriceJOD, variant.PriceUSD)
		}

		items = append(items, item)
	}

	return s.Price(ctx, items, req.CouponCode)
}

func (s *discountService) Price(ctx context.Context, items []model.CartItem, couponCode string) (*model.Quote, error) {
	coupon, err := s.repo.GetByCode(ctx, couponCode)
	if err != nil {
		if errors.Is(err, model.ErrCouponNotFound) {
			return nil, model.NewDiscountError(model.ErrCodeCouponNotFound, "coupon not found", err)
		}
		return nil, fmt.Errorf("load coupon: %w", err)
	}

	return s.calculator.Quote(coupon, items, time.Now().UTC())
}

// =====================================================
// COMMIT
// =====================================================

func (s *discountService) ConsumeWithTx(ctx context.Context, tx pgx.Tx, usage *model.Usage) error {
	if err := s.repo.ConsumeWithTx(ctx, tx, usage.CouponID); err != nil {
		if errors.Is(err, model.ErrUsageRaceLost) {
			return model.NewDiscountError(model.ErrCodeUsageRaceLost,
				"coupon usage limit reached", err)
		}
		return err
	}
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	return s.repo.CreateUsageWithTx(ctx, tx, usage)
}

// =====================================================
// ADMIN
// =====================================================

func (s *discountService) CreateCoupon(ctx context.Context, adminID uuid.UUID, req model.CreateCouponRequest) (*model.Coupon, error) {
	value, err := decimal.NewFromString(req.Value)
	if err != nil || value.IsNegative() {
		return nil, model.NewDiscountError(model.ErrCodeCouponNotFound, "invalid discount value", err)
	}

	coupon := &model.Coupon{
		ID:           uuid.New(),
		Code:         strings.ToUpper(req.Code),
		DiscountType: model.DiscountType(req.DiscountType),
		Value:        value,
		MaxUses:      req.MaxUses,
		ValidUntil:   req.ValidUntil,
		IsActive:     req.IsActive,
	}

	if req.MinPurchase != "" {
		coupon.MinPurchase, err = decimal.NewFromString(req.MinPurchase)
		if err != nil || coupon.MinPurchase.IsNegative() {
			return nil, model.NewDiscountError(model.ErrCodeBelowMinPurchase, "invalid min purchase", err)
		}
	}
	if len(req.ApplicableProducts) > 0 {
		coupon.ApplicableProducts = pq.StringArray(req.ApplicableProducts)
	}

	if req.AffiliateID != nil {
		affiliateID, err := uuid.Parse(*req.AffiliateID)
		if err != nil {
			return nil, fmt.Errorf("invalid affiliate id: %w", err)
		}
		coupon.AffiliateID = &affiliateID

		if req.CommissionType == nil || req.CommissionValue == nil {
			return nil, model.NewDiscountError(model.ErrCodeCouponNotFound,
				"affiliate coupons need a commission type and value", nil)
		}
		ct := model.CommissionType(*req.CommissionType)
		if !ct.IsValid() {
			return nil, model.NewDiscountError(model.ErrCodeCouponNotFound, "invalid commission type", nil)
		}
		cv, err := decimal.NewFromString(*req.CommissionValue)
		if err != nil || cv.IsNegative() {
			return nil, model.NewDiscountError(model.ErrCodeCouponNotFound, "invalid commission value", err)
		}
		coupon.CommissionType = &ct
		coupon.CommissionValue = &cv
	}

	if err := s.repo.Create(ctx, coupon); err != nil {
		if errors.Is(err, model.ErrCouponExists) {
			return nil, model.NewDiscountError(model.ErrCodeCouponExists, "coupon code already exists", err)
		}
		return nil, fmt.Errorf("create coupon: %w", err)
	}

	s.auditCouponChange(ctx, adminID, coupon, nil)
	return coupon, nil
}

func (s *discountService) UpdateCoupon(ctx context.Context, adminID, id uuid.UUID, req model.UpdateCouponRequest) (*model.Coupon, error) {
	coupon, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrCouponNotFound) {
			return nil, model.NewDiscountError(model.ErrCodeCouponNotFound, "coupon not found", err)
		}
		return nil, fmt.Errorf("load coupon: %w", err)
	}

	before := map[string]interface{}{
		"value":        coupon.Value.String(),
		"min_purchase": coupon.MinPurchase.String(),
		"max_uses":     coupon.MaxUses,
		"is_active":    coupon.IsActive,
	}

	if req.Value != nil {
		v, err := decimal.NewFromString(*req.Value)
		if err != nil || v.IsNegative() {
			return nil, model.NewDiscountError(model.ErrCodeCouponNotFound, "invalid discount value", err)
		}
		coupon.Value = v
	}
	if req.MinPurchase != nil {
		v, err := decimal.NewFromString(*req.MinPurchase)
		if err != nil || v.IsNegative() {
			return nil, model.NewDiscountError(model.ErrCodeBelowMinPurchase, "invalid min purchase", err)
		}
		coupon.MinPurchase = v
	}
	if req.MaxUses != nil {
		coupon.MaxUses = req.MaxUses
	}
	if req.ValidUntil != nil {
		coupon.ValidUntil = req.ValidUntil
	}
	if req.ApplicableProducts != nil {
		coupon.ApplicableProducts = pq.StringArray(req.ApplicableProducts)
	}
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, coupon); err != nil {
		return nil, fmt.Errorf("update coupon: %w", err)
	}

	s.auditCouponChange(ctx, adminID, coupon, before)
	return coupon, nil
}

func (s *discountService) ListCoupons(ctx context.Context, page, limit int) ([]model.CouponStats, int, error) {
	return s.repo.List(ctx, page, limit)
}

func (s *discountService) auditCouponChange(ctx context.Context, adminID uuid.UUID, coupon *model.Coupon, before map[string]interface{}) {
	entry := &auditModel.Entry{
		ID:         uuid.New(),
		ActorID:    &adminID,
		ActorRole:  auditModel.RoleAdmin,
		Action:     auditModel.ActionCouponChanged,
		EntityType: "coupon",
		EntityID:   coupon.ID,
		Before:     before,
		After: map[string]interface{}{
			"code":         coupon.Code,
			"value":        coupon.Value.String(),
			"min_purchase": coupon.MinPurchase.String(),
			"max_uses":     coupon.MaxUses,
			"is_active":    coupon.IsActive,
		},
	}
	if err := s.auditRepo.Append(ctx, entry); err != nil {
		logger.Error("failed to audit coupon change", err)
	}
}

// priceIn picks the quote for the settlement currency. The two prices are
// independent, never FX-derived, so this is a lookup, not a conversion.
func priceIn(currency string, jod, usd decimal.Decimal) decimal.Decimal {
	if currency == walletModel.CurrencyUSD {
		return usd
	}
	return jod
}
