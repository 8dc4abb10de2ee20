package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"digistore-backend/internal/domains/order/model"
)

type RepositoryInterface interface {
	// ============================================
	// TRANSACTION MANAGEMENT
	// ============================================
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CommitTx(ctx context.Context, tx pgx.Tx) error
	RollbackTx(ctx context.Context, tx pgx.Tx) error

	// ============================================
	// TRANSACTION-AWARE METHODS
	// ============================================

	// CreateWithTx inserts the order and its frozen items. The order number
	// is generated by the database and written back.
	CreateWithTx(ctx context.Context, tx pgx.Tx, order *model.Order, items []model.OrderItem) error

	// GetByIDWithTx locks the order row. Reveal, dispute and status ops all
	// serialize on this lock.
	GetByIDWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	// UpdateWithTx writes status, fulfillment and dispute fields, guarded by
	// the optimistic version column. ErrVersionMismatch means a concurrent
	// writer got there first.
	UpdateWithTx(ctx context.Context, tx pgx.Tx, order *model.Order) error

	AppendHistoryWithTx(ctx context.Context, tx pgx.Tx, history *model.StatusHistory) error

	// ============================================
	// READS
	// ============================================
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error)
	GetHistory(ctx context.Context, orderID uuid.UUID) ([]model.StatusHistory, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.OrderListResponse, int, error)
	Search(ctx context.Context, query model.SearchQuery) ([]model.OrderListResponse, int, error)
}
