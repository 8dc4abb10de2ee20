package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================================================
// CURRENCY CONSTANTS
// =====================================================
// JOD and USD are independently quoted on every product; neither is ever
// derived from the other by an exchange rate.
const (
	CurrencyJOD = "JOD"
	CurrencyUSD = "USD"
)

func IsValidCurrency(currency string) bool {
	return currency == CurrencyJOD || currency == CurrencyUSD
}

// =====================================================
// TRANSACTION TYPE CONSTANTS
// =====================================================
// Amounts are always positive; the direction is carried by the type.
const (
	TxTypeCredit = "credit"
	TxTypeDebit  = "debit"
)

// Transaction is one row of the append-only wallet ledger. BalanceAfter is
// snapshotted at write time; the current balance of a (user, currency) pair
// is defined as the BalanceAfter of its most recent row.
type Transaction struct {
	ID           uuid.UUID       `json:"id"`
	Seq          int64           `json:"seq"`
	UserID       uuid.UUID       `json:"user_id"`
	Currency     string          `json:"currency"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Reason       string          `json:"reason"`
	ReferenceID  *uuid.UUID      `json:"reference_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Apply returns the balance after this transaction, given the balance before it.
func (t *Transaction) Apply(balanceBefore decimal.Decimal) decimal.Decimal {
	if t.Type == TxTypeDebit {
		return balanceBefore.Sub(t.Amount)
	}
	return balanceBefore.Add(t.Amount)
}
