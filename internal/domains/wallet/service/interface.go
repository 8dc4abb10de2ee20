package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"digistore-backend/internal/domains/wallet/model"
)

// LedgerDrift reports one broken balance chain found by VerifyLedgers.
type LedgerDrift struct {
	UserID   uuid.UUID
	Currency string
	Seq      int64
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

type ServiceInterface interface {
	// Credit appends a credit row in its own transaction.
	Credit(ctx context.Context, userID uuid.UUID, currency string, amount decimal.Decimal, reason string, referenceID *uuid.UUID) (*model.Transaction, error)

	// Debit appends a debit row in its own transaction. Returns
	// model.ErrInsufficientFunds without side effects when the balance is
	// short.
	Debit(ctx context.Context, userID uuid.UUID, currency string, amount decimal.Decimal, reason string, referenceID *uuid.UUID) (*model.Transaction, error)

	// CreditWithTx/DebitWithTx participate in a caller-owned transaction;
	// the order commit uses these so the wallet movement and the order are
	// atomic.
	CreditWithTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, currency string, amount decimal.Decimal, reason string, referenceID *uuid.UUID) (*model.Transaction, error)
	DebitWithTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, currency string, amount decimal.Decimal, reason string, referenceID *uuid.UUID) (*model.Transaction, error)

	// AdminCredit is the back-office top-up: the credit and its audit entry
	// commit in the same transaction.
	AdminCredit(ctx context.Context, adminID, userID uuid.UUID, currency string, amount decimal.Decimal, reason string) (*model.Transaction, error)

	GetBalance(ctx context.Context, userID uuid.UUID, currency string) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, currency string, page, limit int) ([]model.Transaction, int, error)

	// VerifyLedgers replays every chain and reports drift. Reconciliation
	// only; it never mutates the ledger.
	VerifyLedgers(ctx context.Context) ([]LedgerDrift, error)
}
