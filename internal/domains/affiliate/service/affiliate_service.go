package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"digistore-backend/internal/domains/affiliate/model"
	"digistore-backend/internal/domains/affiliate/repository"
	auditModel "digistore-backend/internal/domains/audit/model"
	auditRepo "digistore-backend/internal/domains/audit/repository"
	"digistore-backend/pkg/logger"
)

type affiliateService struct {
	repo      repository.RepositoryInterface
	auditRepo auditRepo.RepositoryInterface
}

func NewAffiliateService(repo repository.RepositoryInterface, audit auditRepo.RepositoryInterface) ServiceInterface {
	return &affiliateService{repo: repo, auditRepo: audit}
}

// =====================================================
// ADMIN
// =====================================================

func (s *affiliateService) Create(ctx context.Context, req model.CreateAffiliateRequest) (*model.Affiliate, error) {
	affiliate := &model.Affiliate{
		ID:       uuid.New(),
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		IsActive: req.IsActive,
	}
	if err := s.repo.Create(ctx, affiliate); err != nil {
		return nil, fmt.Errorf("create affiliate: %w", err)
	}
	return affiliate, nil
}

func (s *affiliateService) Update(ctx context.Context, id uuid.UUID, req model.UpdateAffiliateRequest) (*model.Affiliate, error) {
	affiliate, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrAffiliateNotFound) {
			return nil, model.NewAffiliateError(model.ErrCodeAffiliateNotFound, "affiliate not found", err)
		}
		return nil, fmt.Errorf("load affiliate: %w", err)
	}

	if req.Name != nil {
		affiliate.Name = *req.Name
	}
	if req.Email != nil {
		affiliate.Email = req.Email
	}
	if req.Phone != nil {
		affiliate.Phone = req.Phone
	}
	if req.IsActive != nil {
		affiliate.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, affiliate); err != nil {
		return nil, fmt.Errorf("update affiliate: %w", err)
	}
	return affiliate, nil
}

func (s *affiliateService) Get(ctx context.Context, id uuid.UUID) (*model.AffiliateDetail, error) {
	affiliate, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrAffiliateNotFound) {
			return nil, model.NewAffiliateError(model.ErrCodeAffiliateNotFound, "affiliate not found", err)
		}
		return nil, fmt.Errorf("load affiliate: %w", err)
	}

	stats, err := s.repo.GetStats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load affiliate stats: %w", err)
	}

	return &model.AffiliateDetail{Affiliate: *affiliate, Stats: stats}, nil
}

func (s *affiliateService) List(ctx context.Context, page, limit int) ([]model.Affiliate, int, error) {
	return s.repo.List(ctx, page, limit)
}

func (s *affiliateService) Recompute(ctx context.Context, actorID *uuid.UUID, id uuid.UUID) (*model.RecomputeResult, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, model.ErrAffiliateNotFound) {
			return nil, model.NewAffiliateError(model.ErrCodeAffiliateNotFound, "affiliate not found", err)
		}
		return nil, fmt.Errorf("load affiliate: %w", err)
	}

	result, err := s.repo.RecomputeStats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("recompute affiliate stats: %w", err)
	}

	if len(result.Drifts) > 0 {
		logger.Warn("affiliate stats drifted from usage records", map[string]interface{}{
			"affiliateId": id.String(),
			"drifts":      len(result.Drifts),
		})

		role := auditModel.RoleSystem
		if actorID != nil {
			role = auditModel.RoleAdmin
		}
		entry := &auditModel.Entry{
			ID:         uuid.New(),
			ActorID:    actorID,
			ActorRole:  role,
			Action:     auditModel.ActionAffiliateAccrue,
			EntityType: "affiliate",
			EntityID:   id,
			After:      map[string]interface{}{"drifts": result.Drifts},
		}
		if err := s.auditRepo.Append(ctx, entry); err != nil {
			logger.Error("failed to audit affiliate recompute", err)
		}
	}
	return result, nil
}

func (s *affiliateService) RecomputeAll(ctx context.Context) error {
	ids, err := s.repo.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("list affiliates: %w", err)
	}

	for _, id := range ids {
		if _, err := s.Recompute(ctx, nil, id); err != nil {
			logger.Error("affiliate recompute failed", err)
		}
	}
	return nil
}

// =====================================================
// ACCRUAL
// =====================================================

func (s *affiliateService) AccrueWithTx(ctx context.Context, tx pgx.Tx, affiliateID uuid.UUID, currency string, sale, commission decimal.Decimal) error {
	return s.repo.AccrueWithTx(ctx, tx, affiliateID, currency, sale, commission)
}
