package model

import "errors"

// =====================================================
// CUSTOM ERROR CODES
// =====================================================
const (
	ErrCodeInsufficientFunds = "WAL001"
	ErrCodeInvalidAmount     = "WAL002"
	ErrCodeInvalidCurrency   = "WAL003"
	ErrCodeLedgerDrift       = "WAL004"
)

// =====================================================
// ERROR DEFINITIONS
// =====================================================
var (
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidCurrency   = errors.New("unsupported currency")
	ErrLedgerDrift       = errors.New("ledger balance chain is inconsistent")
)

type WalletError struct {
	Code    string
	Message string
	Err     error
}

func (e *WalletError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *WalletError) Unwrap() error {
	return e.Err
}

func NewWalletError(code, message string, err error) *WalletError {
	return &WalletError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
