package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digistore-backend/internal/domains/discount/model"
	"digistore-backend/internal/domains/discount/repository"
)

type fakeCouponRepo struct {
	repository.RepositoryInterface

	consumeErr error
	consumed   []uuid.UUID
	usages     []model.Usage
}

func (r *fakeCouponRepo) ConsumeWithTx(ctx context.Context, tx pgx.Tx, couponID uuid.UUID) error {
	if r.consumeErr != nil {
		return r.consumeErr
	}
	r.consumed = append(r.consumed, couponID)
	return nil
}

func (r *fakeCouponRepo) CreateUsageWithTx(ctx context.Context, tx pgx.Tx, usage *model.Usage) error {
	r.usages = append(r.usages, *usage)
	return nil
}

func consumeService(repo *fakeCouponRepo) ServiceInterface {
	// ConsumeWithTx touches only the coupon repository.
	return NewDiscountService(repo, nil, nil)
}

func TestConsumeWithTxRecordsUsage(t *testing.T) {
	repo := &fakeCouponRepo{}
	svc := consumeService(repo)

	usage := &model.Usage{
		CouponID: uuid.New(),
		UserID:   uuid.New(),
		OrderID:  uuid.New(),
		Currency: "JOD",
		Discount: dec("5.00"),
	}
	require.NoError(t, svc.ConsumeWithTx(context.Background(), nil, usage))

	assert.Equal(t, []uuid.UUID{usage.CouponID}, repo.consumed)
	require.Len(t, repo.usages, 1)
	assert.NotEqual(t, uuid.Nil, repo.usages[0].ID, "usage id assigned when absent")
}

// The guarded used_count increment matches zero rows when a concurrent order
// took the last use between preview and commit.
func TestConsumeWithTxSurfacesUsageRace(t *testing.T) {
	repo := &fakeCouponRepo{consumeErr: model.ErrUsageRaceLost}
	svc := consumeService(repo)

	err := svc.ConsumeWithTx(context.Background(), nil, &model.Usage{
		CouponID: uuid.New(),
		UserID:   uuid.New(),
		OrderID:  uuid.New(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUsageRaceLost)

	var discountErr *model.DiscountError
	require.ErrorAs(t, err, &discountErr)
	assert.Equal(t, model.ErrCodeUsageRaceLost, discountErr.Code)

	assert.Empty(t, repo.usages, "no usage row after a lost race")
}

func TestConsumeWithTxPassesThroughUnexpectedErrors(t *testing.T) {
	boom := errors.New("connection reset")
	repo := &fakeCouponRepo{consumeErr: boom}
	svc := consumeService(repo)

	err := svc.ConsumeWithTx(context.Background(), nil, &model.Usage{CouponID: uuid.New()})
	assert.ErrorIs(t, err, boom)
}
