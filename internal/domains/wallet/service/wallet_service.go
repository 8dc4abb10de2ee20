package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	auditModel "digistore-backend/internal/domains/audit/model"
	auditRepo "digistore-backend/internal/domains/audit/repository"
	"digistore-backend/internal/domains/wallet/model"
	"digistore-backend/internal/domains/wallet/repository"
	"digistore-backend/pkg/logger"
)

type walletService struct {
	repo      repository.RepositoryInterface
	auditRepo auditRepo.RepositoryInterface
}

func NewWalletService(repo repository.RepositoryInterface, audit auditRepo.RepositoryInterface) ServiceInterface {
	return &walletService{repo: repo, auditRepo: audit}
}

func validateMovement(currency string, amount decimal.Decimal) error {
	if !model.IsValidCurrency(currency) {
		return model.NewWalletError(model.ErrCodeInvalidCurrency,
			fmt.Sprintf("Unsupported currency '%s'", currency), model.ErrInvalidCurrency)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return model.NewWalletError(model.ErrCodeInvalidAmount,
			"Amount must be greater than zero", model.ErrInvalidAmount)
	}
	return nil
}

// =====================================================
// CREDIT / DEBIT
// =====================================================

func (s *walletService) Credit(ctx context.Context, userID uuid.UUID, currency string, amount decimal.Decimal, reason string, referenceID *uuid.UUID) (*model.Transaction, error) {
	if err := validateMovement(currency, amount); err != nil {
		return nil, err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.repo.RollbackTx(ctx, tx)

	transaction, err := s.CreditWithTx(ctx, tx, userID, currency, amount, reason, referenceID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return transaction, nil
}

func (s *walletService) Debit(ctx context.Context, userID uuid.UUID, currency string, amount decimal.Decimal, reason string, referenceID *uuid.UUID) (*model.Transaction, error) {
	if err := validateMovement(currency, amount); err != nil {
		return nil, err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.repo.RollbackTx(ctx, tx)

	transaction, err := s.DebitWithTx(ctx, tx, userID, currency, amount, reason, referenceID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return transaction, nil
}

func (s *walletService) CreditWithTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, currency string, amount decimal.Decimal, reason string, referenceID *uuid.UUID) (*model.Transaction, error) {
	if err := validateMovement(currency, amount); err != nil {
		return nil, err
	}
	return s.appendWithTx(ctx, tx, userID, currency, model.TxTypeCredit, amount, reason, referenceID)
}

func (s *walletService) DebitWithTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, currency string, amount decimal.Decimal, reason string, referenceID *uuid.UUID) (*model.Transaction, error) {
	if err := validateMovement(currency, amount); err != nil {
		return nil, err
	}
	return s.appendWithTx(ctx, tx, userID, currency, model.TxTypeDebit, amount, reason, referenceID)
}

// appendWithTx serializes on the account row, derives balance_after from the
// latest ledger row, and appends. Two concurrent writers for the same pair
// queue on the row lock, so balance_after values always form a single chain.
func (s *walletService) appendWithTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, currency, txType string, amount decimal.Decimal, reason string, referenceID *uuid.UUID) (*model.Transaction, error) {
	if err := s.repo.LockAccountWithTx(ctx, tx, userID, currency); err != nil {
		return nil, err
	}

	balance, err := s.repo.LatestBalanceWithTx(ctx, tx, userID, currency)
	if err != nil {
		return nil, err
	}

	transaction := &model.Transaction{
		UserID:      userID,
		Currency:    currency,
		Type:        txType,
		Amount:      amount,
		Reason:      reason,
		ReferenceID: referenceID,
	}

	if txType == model.TxTypeDebit && balance.LessThan(amount) {
		return nil, model.NewWalletError(model.ErrCodeInsufficientFunds,
			fmt.Sprintf("Balance %s %s is below %s", balance.StringFixed(2), currency, amount.StringFixed(2)),
			model.ErrInsufficientFunds)
	}

	transaction.BalanceAfter = transaction.Apply(balance)

	if err := s.repo.InsertWithTx(ctx, tx, transaction); err != nil {
		return nil, err
	}

	return transaction, nil
}

// =====================================================
// ADMIN CREDIT
// =====================================================

func (s *walletService) AdminCredit(ctx context.Context, adminID, userID uuid.UUID, currency string, amount decimal.Decimal, reason string) (*model.Transaction, error) {
	if err := validateMovement(currency, amount); err != nil {
		return nil, err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.repo.RollbackTx(ctx, tx)

	transaction, err := s.CreditWithTx(ctx, tx, userID, currency, amount, reason, nil)
	if err != nil {
		return nil, err
	}

	entry := &auditModel.Entry{
		ActorID:    &adminID,
		ActorRole:  auditModel.RoleAdmin,
		Action:     auditModel.ActionWalletCredit,
		EntityType: "wallet_transaction",
		EntityID:   transaction.ID,
		After: map[string]interface{}{
			"user_id":       userID.String(),
			"currency":      currency,
			"amount":        amount.StringFixed(2),
			"balance_after": transaction.BalanceAfter.StringFixed(2),
			"reason":        reason,
		},
	}
	if err := s.auditRepo.AppendWithTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := s.repo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return transaction, nil
}

// =====================================================
// READS
// =====================================================

func (s *walletService) GetBalance(ctx context.Context, userID uuid.UUID, currency string) (decimal.Decimal, error) {
	if !model.IsValidCurrency(currency) {
		return decimal.Zero, model.NewWalletError(model.ErrCodeInvalidCurrency,
			fmt.Sprintf("Unsupported currency '%s'", currency), model.ErrInvalidCurrency)
	}
	return s.repo.GetBalance(ctx, userID, currency)
}

func (s *walletService) ListTransactions(ctx context.Context, userID uuid.UUID, currency string, page, limit int) ([]model.Transaction, int, error) {
	return s.repo.ListTransactions(ctx, userID, currency, page, limit)
}

// =====================================================
// RECONCILIATION
// =====================================================

func (s *walletService) VerifyLedgers(ctx context.Context) ([]LedgerDrift, error) {
	pairs, err := s.repo.ListCurrencyPairs(ctx)
	if err != nil {
		return nil, err
	}

	var drifts []LedgerDrift
	for _, pair := range pairs {
		chain, err := s.repo.ListAllTransactions(ctx, pair.UserID, pair.Currency)
		if err != nil {
			return nil, err
		}

		running := decimal.Zero
		for _, tx := range chain {
			running = tx.Apply(running)
			if !running.Equal(tx.BalanceAfter) {
				drifts = append(drifts, LedgerDrift{
					UserID:   pair.UserID,
					Currency: pair.Currency,
					Seq:      tx.Seq,
					Expected: running,
					Actual:   tx.BalanceAfter,
				})
				logger.Warn("Ledger drift detected", map[string]interface{}{
					"user_id":  pair.UserID,
					"currency": pair.Currency,
					"seq":      tx.Seq,
					"expected": running.String(),
					"actual":   tx.BalanceAfter.String(),
				})
				// Keep replaying from the stored value so one broken row
				// does not cascade into a report for every later row.
				running = tx.BalanceAfter
			}
		}
	}

	return drifts, nil
}
