package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdminCreditRequest is the admin back-office wallet top-up.
type AdminCreditRequest struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
	Reason   string `json:"reason"`
}

func (r AdminCreditRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Currency, validation.Required, validation.In(CurrencyJOD, CurrencyUSD)),
		validation.Field(&r.Amount, validation.Required),
		validation.Field(&r.Reason, validation.Required, validation.Length(3, 500)),
	)
}

type BalanceResponse struct {
	UserID   uuid.UUID       `json:"user_id"`
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

type TransactionResponse struct {
	ID           uuid.UUID       `json:"id"`
	Currency     string          `json:"currency"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Reason       string          `json:"reason"`
	ReferenceID  *uuid.UUID      `json:"reference_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func ToTransactionResponse(tx *Transaction) TransactionResponse {
	return TransactionResponse{
		ID:           tx.ID,
		Currency:     tx.Currency,
		Type:         tx.Type,
		Amount:       tx.Amount,
		BalanceAfter: tx.BalanceAfter,
		Reason:       tx.Reason,
		ReferenceID:  tx.ReferenceID,
		CreatedAt:    tx.CreatedAt,
	}
}
