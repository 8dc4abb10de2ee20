package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"digistore-backend/internal/domains/discount/model"
)

type postgresDiscountRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresDiscountRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresDiscountRepository{pool: pool}
}

const couponColumns = `
	id, code, discount_type, value, min_purchase, max_uses, used_count,
	valid_until, applicable_products, affiliate_id, commission_type,
	commission_value, is_active, created_at, updated_at
`

func scanCoupon(row pgx.Row) (*model.Coupon, error) {
	var c model.Coupon
	err := row.Scan(
		&c.ID, &c.Code, &c.DiscountType, &c.Value, &c.MinPurchase,
		&c.MaxUses, &c.UsedCount, &c.ValidUntil, &c.ApplicableProducts,
		&c.AffiliateID, &c.CommissionType, &c.CommissionValue,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// =====================================================
// ADMIN CRUD
// =====================================================

func (r *postgresDiscountRepository) Create(ctx context.Context, coupon *model.Coupon) error {
	query := `
		INSERT INTO coupons (
			id, code, discount_type, value, min_purchase, max_uses,
			valid_until, applicable_products, affiliate_id, commission_type,
			commission_value, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING used_count, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		coupon.ID, strings.ToUpper(coupon.Code), coupon.DiscountType, coupon.Value,
		coupon.MinPurchase, coupon.MaxUses, coupon.ValidUntil,
		coupon.ApplicableProducts, coupon.AffiliateID, coupon.CommissionType,
		coupon.CommissionValue, coupon.IsActive,
	).Scan(&coupon.UsedCount, &coupon.CreatedAt, &coupon.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return model.ErrCouponExists
		}
		return fmt.Errorf("failed to insert coupon: %w", err)
	}
	coupon.Code = strings.ToUpper(coupon.Code)
	return nil
}

func (r *postgresDiscountRepository) Update(ctx context.Context, coupon *model.Coupon) error {
	query := `
		UPDATE coupons SET
			value = $2, min_purchase = $3, max_uses = $4, valid_until = $5,
			applicable_products = $6, is_active = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		coupon.ID, coupon.Value, coupon.MinPurchase, coupon.MaxUses,
		coupon.ValidUntil, coupon.ApplicableProducts, coupon.IsActive,
	).Scan(&coupon.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrCouponNotFound
		}
		return fmt.Errorf("failed to update coupon: %w", err)
	}
	return nil
}

func (r *postgresDiscountRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	coupon, err := scanCoupon(r.pool.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}
	return coupon, nil
}

func (r *postgresDiscountRepository) List(ctx context.Context, page, limit int) ([]model.CouponStats, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM coupons`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count coupons: %w", err)
	}

	query := `
		SELECT
			c.id, c.code, c.discount_type, c.value, c.min_purchase, c.max_uses,
			c.used_count, c.valid_until, c.applicable_products, c.affiliate_id,
			c.commission_type, c.commission_value, c.is_active, c.created_at, c.updated_at,
			COALESCE(u.total_discount, 0),
			COALESCE(u.total_commission, 0),
			COALESCE(u.order_count, 0)
		FROM coupons c
		LEFT JOIN (
			SELECT coupon_id,
				SUM(discount) AS total_discount,
				SUM(commission) AS total_commission,
				COUNT(*) AS order_count
			FROM coupon_usages
			GROUP BY coupon_id
		) u ON u.coupon_id = c.id
		ORDER BY c.created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list coupons: %w", err)
	}
	defer rows.Close()

	stats := make([]model.CouponStats, 0)
	for rows.Next() {
		var s model.CouponStats
		err := rows.Scan(
			&s.Coupon.ID, &s.Coupon.Code, &s.Coupon.DiscountType, &s.Coupon.Value,
			&s.Coupon.MinPurchase, &s.Coupon.MaxUses, &s.Coupon.UsedCount,
			&s.Coupon.ValidUntil, &s.Coupon.ApplicableProducts, &s.Coupon.AffiliateID,
			&s.Coupon.CommissionType, &s.Coupon.CommissionValue, &s.Coupon.IsActive,
			&s.Coupon.CreatedAt, &s.Coupon.UpdatedAt,
			&s.TotalDiscount, &s.TotalCommission, &s.OrderCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan coupon stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, total, rows.Err()
}

// =====================================================
// PRICING / CONSUMPTION
// =====================================================

func (r *postgresDiscountRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = UPPER($1)`

	coupon, err := scanCoupon(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to get coupon by code: %w", err)
	}
	return coupon, nil
}

func (r *postgresDiscountRepository) ConsumeWithTx(ctx context.Context, tx pgx.Tx, couponID uuid.UUID) error {
	// The guard rides in the WHERE clause so two orders racing for the last
	// use resolve inside postgres: the loser matches zero rows.
	tag, err := tx.Exec(ctx, `
		UPDATE coupons
		SET used_count = used_count + 1, updated_at = now()
		WHERE id = $1
		  AND (max_uses IS NULL OR used_count < max_uses)
	`, couponID)
	if err != nil {
		return fmt.Errorf("failed to consume coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUsageRaceLost
	}
	return nil
}

func (r *postgresDiscountRepository) CreateUsageWithTx(ctx context.Context, tx pgx.Tx, usage *model.Usage) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO coupon_usages (id, coupon_id, user_id, order_id, currency, discount, commission)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, usage.ID, usage.CouponID, usage.UserID, usage.OrderID,
		usage.Currency, usage.Discount, usage.Commission,
	).Scan(&usage.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert coupon usage: %w", err)
	}
	return nil
}
