package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"digistore-backend/internal/domains/affiliate/model"
	"digistore-backend/pkg/database"
)

type postgresAffiliateRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresAffiliateRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresAffiliateRepository{pool: pool}
}

// =====================================================
// ADMIN CRUD
// =====================================================

func (r *postgresAffiliateRepository) Create(ctx context.Context, affiliate *model.Affiliate) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO affiliates (id, name, email, phone, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, affiliate.ID, affiliate.Name, affiliate.Email, affiliate.Phone, affiliate.IsActive,
	).Scan(&affiliate.CreatedAt, &affiliate.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert affiliate: %w", err)
	}
	return nil
}

func (r *postgresAffiliateRepository) Update(ctx context.Context, affiliate *model.Affiliate) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE affiliates
		SET name = $2, email = $3, phone = $4, is_active = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, affiliate.ID, affiliate.Name, affiliate.Email, affiliate.Phone, affiliate.IsActive,
	).Scan(&affiliate.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrAffiliateNotFound
		}
		return fmt.Errorf("failed to update affiliate: %w", err)
	}
	return nil
}

func (r *postgresAffiliateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Affiliate, error) {
	var a model.Affiliate
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, is_active, created_at, updated_at
		FROM affiliates WHERE id = $1
	`, id).Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrAffiliateNotFound
		}
		return nil, fmt.Errorf("failed to get affiliate: %w", err)
	}
	return &a, nil
}

func (r *postgresAffiliateRepository) List(ctx context.Context, page, limit int) ([]model.Affiliate, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM affiliates`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count affiliates: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, phone, is_active, created_at, updated_at
		FROM affiliates
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list affiliates: %w", err)
	}
	defer rows.Close()

	affiliates := make([]model.Affiliate, 0)
	for rows.Next() {
		var a model.Affiliate
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan affiliate: %w", err)
		}
		affiliates = append(affiliates, a)
	}
	return affiliates, total, rows.Err()
}

func (r *postgresAffiliateRepository) GetStats(ctx context.Context, affiliateID uuid.UUID) ([]model.Stats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT affiliate_id, currency, total_sales, total_commission, total_orders, updated_at
		FROM affiliate_stats
		WHERE affiliate_id = $1
		ORDER BY currency
	`, affiliateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get affiliate stats: %w", err)
	}
	defer rows.Close()

	return scanStats(rows)
}

func (r *postgresAffiliateRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM affiliates WHERE is_active = true`)
	if err != nil {
		return nil, fmt.Errorf("failed to list affiliate ids: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan affiliate id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// =====================================================
// ACCRUAL
// =====================================================

func (r *postgresAffiliateRepository) AccrueWithTx(ctx context.Context, tx pgx.Tx, affiliateID uuid.UUID, currency string, sale, commission decimal.Decimal) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO affiliate_stats (affiliate_id, currency, total_sales, total_commission, total_orders, updated_at)
		VALUES ($1, $2, $3, $4, 1, now())
		ON CONFLICT (affiliate_id, currency) DO UPDATE SET
			total_sales = affiliate_stats.total_sales + EXCLUDED.total_sales,
			total_commission = affiliate_stats.total_commission + EXCLUDED.total_commission,
			total_orders = affiliate_stats.total_orders + 1,
			updated_at = now()
	`, affiliateID, currency, sale, commission)
	if err != nil {
		return fmt.Errorf("failed to accrue affiliate stats: %w", err)
	}
	return nil
}

func (r *postgresAffiliateRepository) RecomputeStats(ctx context.Context, affiliateID uuid.UUID) (*model.RecomputeResult, error) {
	return database.WithTransactionResult(ctx, r.pool, func(tx pgx.Tx) (*model.RecomputeResult, error) {
		return r.recomputeStats(ctx, tx, affiliateID)
	})
}

func (r *postgresAffiliateRepository) recomputeStats(ctx context.Context, tx pgx.Tx, affiliateID uuid.UUID) (*model.RecomputeResult, error) {
	stored, err := r.statsWithTx(ctx, tx, affiliateID)
	if err != nil {
		return nil, err
	}

	// Rebuild from usage rows; orders that died after accrual fall out here,
	// which is exactly the drift this path exists to repair.
	rows, err := tx.Query(ctx, `
		SELECT u.currency,
			COALESCE(SUM(o.final_total), 0),
			COALESCE(SUM(u.commission), 0),
			COUNT(*)
		FROM coupon_usages u
		JOIN coupons c ON c.id = u.coupon_id
		JOIN orders o ON o.id = u.order_id
		WHERE c.affiliate_id = $1
		  AND o.status NOT IN ('cancelled', 'payment_failed', 'refunded')
		GROUP BY u.currency
	`, affiliateID)
	if err != nil {
		return nil, fmt.Errorf("failed to recompute affiliate stats: %w", err)
	}

	recomputed := make([]model.Stats, 0)
	for rows.Next() {
		s := model.Stats{AffiliateID: affiliateID}
		if err := rows.Scan(&s.Currency, &s.TotalSales, &s.TotalCommission, &s.TotalOrders); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan recomputed stats: %w", err)
		}
		recomputed = append(recomputed, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recomputed stats: %w", err)
	}

	result := &model.RecomputeResult{
		AffiliateID: affiliateID.String(),
		Drifts:      diffStats(affiliateID, stored, recomputed),
	}

	if _, err := tx.Exec(ctx, `DELETE FROM affiliate_stats WHERE affiliate_id = $1`, affiliateID); err != nil {
		return nil, fmt.Errorf("failed to clear affiliate stats: %w", err)
	}
	for _, s := range recomputed {
		_, err := tx.Exec(ctx, `
			INSERT INTO affiliate_stats (affiliate_id, currency, total_sales, total_commission, total_orders, updated_at)
			VALUES ($1, $2, $3, $4, $5, now())
		`, s.AffiliateID, s.Currency, s.TotalSales, s.TotalCommission, s.TotalOrders)
		if err != nil {
			return nil, fmt.Errorf("failed to write recomputed stats: %w", err)
		}
	}

	return result, nil
}

func (r *postgresAffiliateRepository) statsWithTx(ctx context.Context, tx pgx.Tx, affiliateID uuid.UUID) ([]model.Stats, error) {
	rows, err := tx.Query(ctx, `
		SELECT affiliate_id, currency, total_sales, total_commission, total_orders, updated_at
		FROM affiliate_stats
		WHERE affiliate_id = $1
		FOR UPDATE
	`, affiliateID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock affiliate stats: %w", err)
	}
	defer rows.Close()

	return scanStats(rows)
}

func scanStats(rows pgx.Rows) ([]model.Stats, error) {
	stats := make([]model.Stats, 0)
	for rows.Next() {
		var s model.Stats
		if err := rows.Scan(&s.AffiliateID, &s.Currency, &s.TotalSales, &s.TotalCommission, &s.TotalOrders, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan affiliate stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func diffStats(affiliateID uuid.UUID, stored, recomputed []model.Stats) []model.StatsDrift {
	byCurrency := make(map[string]model.Stats, len(stored))
	for _, s := range stored {
		byCurrency[s.Currency] = s
	}

	drifts := make([]model.StatsDrift, 0)
	seen := make(map[string]bool, len(recomputed))
	for _, rc := range recomputed {
		seen[rc.Currency] = true
		st := byCurrency[rc.Currency]
		if !st.TotalSales.Equal(rc.TotalSales) {
			drifts = append(drifts, model.StatsDrift{
				AffiliateID: affiliateID, Currency: rc.Currency, Field: "total_sales",
				Stored: st.TotalSales.String(), Recomputed: rc.TotalSales.String(),
			})
		}
		if !st.TotalCommission.Equal(rc.TotalCommission) {
			drifts = append(drifts, model.StatsDrift{
				AffiliateID: affiliateID, Currency: rc.Currency, Field: "total_commission",
				Stored: st.TotalCommission.String(), Recomputed: rc.TotalCommission.String(),
			})
		}
		if st.TotalOrders != rc.TotalOrders {
			drifts = append(drifts, model.StatsDrift{
				AffiliateID: affiliateID, Currency: rc.Currency, Field: "total_orders",
				Stored: fmt.Sprintf("%d", st.TotalOrders), Recomputed: fmt.Sprintf("%d", rc.TotalOrders),
			})
		}
	}
	for _, st := range stored {
		if !seen[st.Currency] && (st.TotalOrders != 0 || !st.TotalSales.IsZero()) {
			drifts = append(drifts, model.StatsDrift{
				AffiliateID: affiliateID, Currency: st.Currency, Field: "total_orders",
				Stored: fmt.Sprintf("%d", st.TotalOrders), Recomputed: "0",
			})
		}
	}
	return drifts
}
