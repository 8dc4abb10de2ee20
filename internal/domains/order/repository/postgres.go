package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"digistore-backend/internal/domains/order/model"
)

type postgresOrderRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresOrderRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresOrderRepository{pool: pool}
}

// =====================================================
// TRANSACTION MANAGEMENT
// =====================================================

func (r *postgresOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *postgresOrderRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	return tx.Commit(ctx)
}

func (r *postgresOrderRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	return tx.Rollback(ctx)
}

// =====================================================
// WRITES
// =====================================================

func (r *postgresOrderRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, order *model.Order, items []model.OrderItem) error {
	query := `
		INSERT INTO orders (
			id, order_number, user_id, product_kind, currency,
			total_jod, total_usd, subtotal, discount_amount, final_total,
			coupon_id, affiliate_id, commission_due,
			status, contact_email, contact_phone, contact_password, customer_note, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, 1)
		RETURNING version, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		order.ID, order.OrderNumber, order.UserID, order.ProductKind, order.Currency,
		order.TotalJOD, order.TotalUSD, order.Subtotal, order.DiscountAmount, order.FinalTotal,
		order.CouponID, order.AffiliateID, order.CommissionDue,
		order.Status, order.ContactEmail, order.ContactPhone, order.ContactPassword, order.CustomerNote,
	).Scan(&order.Version, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range items {
		item := &items[i]
		item.OrderID = order.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, variant_id,
				product_name, product_slug, variant_name,
				quantity, unit_price_jod, unit_price_usd, line_total_jod, line_total_usd
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING created_at
		`, item.ID, item.OrderID, item.ProductID, item.VariantID,
			item.ProductName, item.ProductSlug, item.VariantName,
			item.Quantity, item.UnitPriceJOD, item.UnitPriceUSD,
			item.LineTotalJOD, item.LineTotalUSD,
		).Scan(&item.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	return nil
}

const orderColumns = `
	id, order_number, user_id, product_kind, currency,
	total_jod, total_usd, subtotal, discount_amount, final_total,
	coupon_id, affiliate_id, commission_due,
	status, previous_status, contact_email, contact_phone, contact_password, customer_note,
	delivery_data, revealed_at, delivered_at, dispute_reason, dispute_opened_at,
	version, created_at, updated_at
`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.ProductKind, &o.Currency,
		&o.TotalJOD, &o.TotalUSD, &o.Subtotal, &o.DiscountAmount, &o.FinalTotal,
		&o.CouponID, &o.AffiliateID, &o.CommissionDue,
		&o.Status, &o.PreviousStatus, &o.ContactEmail, &o.ContactPhone, &o.ContactPassword, &o.CustomerNote,
		&o.DeliveryData, &o.RevealedAt, &o.DeliveredAt, &o.DisputeReason, &o.DisputeOpenedAt,
		&o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *postgresOrderRepository) GetByIDWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	order, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	return order, nil
}

func (r *postgresOrderRepository) UpdateWithTx(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	tag, err := tx.Exec(ctx, `
		UPDATE orders SET
			status = $2, previous_status = $3,
			delivery_data = $4, revealed_at = $5, delivered_at = $6,
			dispute_reason = $7, dispute_opened_at = $8,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $9
	`, order.ID, order.Status, order.PreviousStatus,
		order.DeliveryData, order.RevealedAt, order.DeliveredAt,
		order.DisputeReason, order.DisputeOpenedAt, order.Version)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrVersionMismatch
	}
	order.Version++
	return nil
}

func (r *postgresOrderRepository) AppendHistoryWithTx(ctx context.Context, tx pgx.Tx, history *model.StatusHistory) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO order_status_history (id, order_id, from_status, to_status, changed_by, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING changed_at
	`, history.ID, history.OrderID, history.FromStatus, history.ToStatus,
		history.ChangedBy, history.Notes,
	).Scan(&history.ChangedAt)
	if err != nil {
		return fmt.Errorf("failed to insert status history: %w", err)
	}
	return nil
}

// =====================================================
// READS
// =====================================================

func (r *postgresOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

func (r *postgresOrderRepository) GetItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, product_id, variant_id,
			product_name, product_slug, variant_name,
			quantity, unit_price_jod, unit_price_usd, line_total_jod, line_total_usd,
			created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	items := make([]model.OrderItem, 0)
	for rows.Next() {
		var it model.OrderItem
		err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantID,
			&it.ProductName, &it.ProductSlug, &it.VariantName,
			&it.Quantity, &it.UnitPriceJOD, &it.UnitPriceUSD,
			&it.LineTotalJOD, &it.LineTotalUSD, &it.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *postgresOrderRepository) GetHistory(ctx context.Context, orderID uuid.UUID) ([]model.StatusHistory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, from_status, to_status, changed_by, notes, changed_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY changed_at ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get status history: %w", err)
	}
	defer rows.Close()

	history := make([]model.StatusHistory, 0)
	for rows.Next() {
		var h model.StatusHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.FromStatus, &h.ToStatus, &h.ChangedBy, &h.Notes, &h.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

func (r *postgresOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.OrderListResponse, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT o.id, o.order_number, o.product_kind, o.currency, o.final_total, o.status,
			(SELECT COUNT(*) FROM order_items i WHERE i.order_id = o.id),
			o.created_at
		FROM orders o
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	return scanOrderList(rows, total)
}

func (r *postgresOrderRepository) Search(ctx context.Context, query model.SearchQuery) ([]model.OrderListResponse, int, error) {
	where := `WHERE 1=1`
	args := []interface{}{}
	argn := 0

	if query.UserID != nil {
		argn++
		where += fmt.Sprintf(` AND o.user_id = $%d`, argn)
		args = append(args, *query.UserID)
	}
	if query.Status != nil {
		argn++
		where += fmt.Sprintf(` AND o.status = $%d`, argn)
		args = append(args, *query.Status)
	}
	if query.DateFrom != nil {
		argn++
		where += fmt.Sprintf(` AND o.created_at >= $%d`, argn)
		args = append(args, *query.DateFrom)
	}
	if query.DateTo != nil {
		argn++
		where += fmt.Sprintf(` AND o.created_at <= $%d`, argn)
		args = append(args, *query.DateTo)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders o `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	sql := fmt.Sprintf(`
		SELECT o.id, o.order_number, o.product_kind, o.currency, o.final_total, o.status,
			(SELECT COUNT(*) FROM order_items i WHERE i.order_id = o.id),
			o.created_at
		FROM orders o %s
		ORDER BY o.created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, argn+1, argn+2)
	args = append(args, query.Limit, (query.Page-1)*query.Limit)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search orders: %w", err)
	}
	defer rows.Close()

	return scanOrderList(rows, total)
}

func scanOrderList(rows pgx.Rows, total int) ([]model.OrderListResponse, int, error) {
	orders := make([]model.OrderListResponse, 0)
	for rows.Next() {
		var o model.OrderListResponse
		err := rows.Scan(&o.ID, &o.OrderNumber, &o.ProductKind, &o.Currency,
			&o.FinalTotal, &o.Status, &o.ItemCount, &o.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}
