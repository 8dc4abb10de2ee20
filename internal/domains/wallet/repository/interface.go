package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"digistore-backend/internal/domains/wallet/model"
)

// CurrencyPair identifies one ledger chain.
type CurrencyPair struct {
	UserID   uuid.UUID
	Currency string
}

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

	// LockAccountWithTx takes the row lock that serializes all ledger writes
	// for one (user, currency) pair, creating the anchor row on first use.
	// The lock is held until the surrounding transaction ends.
	LockAccountWithTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, currency string) error

	// LatestBalanceWithTx returns the balance_after of the most recent ledger
	// row for the pair, or zero if the ledger is empty. Must be called with
	// the account lock held.
	LatestBalanceWithTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, currency string) (decimal.Decimal, error)

	// InsertWithTx appends a ledger row.
	InsertWithTx(ctx context.Context, tx pgx.Tx, transaction *model.Transaction) error

	// ============================================
	// STANDALONE METHODS (read paths)
	// ============================================

	GetBalance(ctx context.Context, userID uuid.UUID, currency string) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, currency string, page, limit int) ([]model.Transaction, int, error)

	// ListCurrencyPairs returns every (user, currency) pair with at least one
	// ledger row. Used by the scheduled ledger verification job.
	ListCurrencyPairs(ctx context.Context) ([]CurrencyPair, error)

	// ListAllTransactions returns the full ordered chain for one pair.
	ListAllTransactions(ctx context.Context, userID uuid.UUID, currency string) ([]model.Transaction, error)
}
