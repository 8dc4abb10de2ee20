package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"digistore-backend/internal/domains/wallet/model"
)

type postgresWalletRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresWalletRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresWalletRepository{pool: pool}
}

// =====================================================
// TRANSACTION MANAGEMENT
// =====================================================

func (r *postgresWalletRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *postgresWalletRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	return tx.Commit(ctx)
}

func (r *postgresWalletRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	return tx.Rollback(ctx)
}

// =====================================================
// LEDGER WRITES
// =====================================================

func (r *postgresWalletRepository) LockAccountWithTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, currency string) error {
	// The account row carries no balance; it exists only so FOR UPDATE has
	// something to lock before the first ledger row is written.
	_, err := tx.Exec(ctx, `
		INSERT INTO wallet_accounts (user_id, currency)
		VALUES ($1, $2)
		ON CONFLICT (user_id, currency) DO NOTHING
	`, userID, currency)
	if err != nil {
		return fmt.Errorf("failed to ensure wallet account: %w", err)
	}

	_, err = tx.Exec(ctx, `
		SELECT 1 FROM wallet_accounts
		WHERE user_id = $1 AND currency = $2
		FOR UPDATE
	`, userID, currency)
	if err != nil {
		return fmt.Errorf("failed to lock wallet account: %w", err)
	}

	return nil
}

func (r *postgresWalletRepository) LatestBalanceWithTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, currency string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRow(ctx, `
		SELECT balance_after FROM wallet_transactions
		WHERE user_id = $1 AND currency = $2
		ORDER BY seq DESC
		LIMIT 1
	`, userID, currency).Scan(&balance)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to read latest balance: %w", err)
	}

	return balance, nil
}

func (r *postgresWalletRepository) InsertWithTx(ctx context.Context, tx pgx.Tx, transaction *model.Transaction) error {
	if transaction.ID == uuid.Nil {
		transaction.ID = uuid.New()
	}

	err := tx.QueryRow(ctx, `
		INSERT INTO wallet_transactions (
			id, user_id, currency, type, amount, balance_after, reason, reference_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq, created_at
	`,
		transaction.ID,
		transaction.UserID,
		transaction.Currency,
		transaction.Type,
		transaction.Amount,
		transaction.BalanceAfter,
		transaction.Reason,
		transaction.ReferenceID,
	).Scan(&transaction.Seq, &transaction.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert wallet transaction: %w", err)
	}

	return nil
}

// =====================================================
// READ PATHS
// =====================================================

func (r *postgresWalletRepository) GetBalance(ctx context.Context, userID uuid.UUID, currency string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.pool.QueryRow(ctx, `
		SELECT balance_after FROM wallet_transactions
		WHERE user_id = $1 AND currency = $2
		ORDER BY seq DESC
		LIMIT 1
	`, userID, currency).Scan(&balance)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}

	return balance, nil
}

const transactionColumns = `id, seq, user_id, currency, type, amount, balance_after, reason, reference_id, created_at`

func (r *postgresWalletRepository) ListTransactions(ctx context.Context, userID uuid.UUID, currency string, page, limit int) ([]model.Transaction, int, error) {
	offset := (page - 1) * limit

	where := ` WHERE user_id = $1`
	args := []interface{}{userID}
	if currency != "" {
		where += ` AND currency = $2`
		args = append(args, currency)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM wallet_transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count wallet transactions: %w", err)
	}

	query := `SELECT ` + transactionColumns + ` FROM wallet_transactions` + where +
		fmt.Sprintf(` ORDER BY seq DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list wallet transactions: %w", err)
	}
	defer rows.Close()

	transactions, err := scanTransactions(rows)
	if err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}

func (r *postgresWalletRepository) ListCurrencyPairs(ctx context.Context) ([]CurrencyPair, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT user_id, currency FROM wallet_transactions
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list currency pairs: %w", err)
	}
	defer rows.Close()

	var pairs []CurrencyPair
	for rows.Next() {
		var pair CurrencyPair
		if err := rows.Scan(&pair.UserID, &pair.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan currency pair: %w", err)
		}
		pairs = append(pairs, pair)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating currency pairs: %w", rows.Err())
	}

	return pairs, nil
}

func (r *postgresWalletRepository) ListAllTransactions(ctx context.Context, userID uuid.UUID, currency string) ([]model.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM wallet_transactions
		WHERE user_id = $1 AND currency = $2
		ORDER BY seq ASC
	`, userID, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger chain: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func scanTransactions(rows pgx.Rows) ([]model.Transaction, error) {
	var transactions []model.Transaction
	for rows.Next() {
		var tx model.Transaction
		err := rows.Scan(
			&tx.ID,
			&tx.Seq,
			&tx.UserID,
			&tx.Currency,
			&tx.Type,
			&tx.Amount,
			&tx.BalanceAfter,
			&tx.Reason,
			&tx.ReferenceID,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating wallet transactions: %w", rows.Err())
	}

	return transactions, nil
}
