package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditModel "digistore-backend/internal/domains/audit/model"
	auditRepo "digistore-backend/internal/domains/audit/repository"
	"digistore-backend/internal/domains/wallet/model"
	"digistore-backend/internal/domains/wallet/repository"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// fakeWalletRepo keeps the ledger in memory with the same append-only
// semantics as the postgres implementation.
type fakeWalletRepo struct {
	repository.RepositoryInterface

	ledgers map[string][]model.Transaction
	seq     int64

	commits   int
	rollbacks int
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{ledgers: make(map[string][]model.Transaction)}
}

func key(userID uuid.UUID, currency string) string {
	return userID.String() + "/" + currency
}

func (r *fakeWalletRepo) BeginTx(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (r *fakeWalletRepo) CommitTx(ctx context.Context, tx pgx.Tx) error {
	r.commits++
	return nil
}
func (r *fakeWalletRepo) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	r.rollbacks++
	return nil
}

func (r *fakeWalletRepo) LockAccountWithTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, currency string) error {
	return nil
}

func (r *fakeWalletRepo) LatestBalanceWithTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, currency string) (decimal.Decimal, error) {
	chain := r.ledgers[key(userID, currency)]
	if len(chain) == 0 {
		return decimal.Zero, nil
	}
	return chain[len(chain)-1].BalanceAfter, nil
}

func (r *fakeWalletRepo) InsertWithTx(ctx context.Context, tx pgx.Tx, transaction *model.Transaction) error {
	r.seq++
	transaction.ID = uuid.New()
	transaction.Seq = r.seq
	k := key(transaction.UserID, transaction.Currency)
	r.ledgers[k] = append(r.ledgers[k], *transaction)
	return nil
}

func (r *fakeWalletRepo) GetBalance(ctx context.Context, userID uuid.UUID, currency string) (decimal.Decimal, error) {
	return r.LatestBalanceWithTx(ctx, nil, userID, currency)
}

func (r *fakeWalletRepo) ListCurrencyPairs(ctx context.Context) ([]repository.CurrencyPair, error) {
	var pairs []repository.CurrencyPair
	for _, chain := range r.ledgers {
		pairs = append(pairs, repository.CurrencyPair{
			UserID:   chain[0].UserID,
			Currency: chain[0].Currency,
		})
	}
	return pairs, nil
}

func (r *fakeWalletRepo) ListAllTransactions(ctx context.Context, userID uuid.UUID, currency string) ([]model.Transaction, error) {
	return r.ledgers[key(userID, currency)], nil
}

type fakeAuditRepo struct {
	auditRepo.RepositoryInterface

	entries []auditModel.Entry
}

func (a *fakeAuditRepo) AppendWithTx(ctx context.Context, tx pgx.Tx, entry *auditModel.Entry) error {
	a.entries = append(a.entries, *entry)
	return nil
}

func newService() (ServiceInterface, *fakeWalletRepo, *fakeAuditRepo) {
	repo := newFakeWalletRepo()
	audit := &fakeAuditRepo{}
	return NewWalletService(repo, audit), repo, audit
}

// ============================================
// MOVEMENTS
// ============================================

func TestCreditThenDebit(t *testing.T) {
	svc, repo, _ := newService()
	userID := uuid.New()
	ctx := context.Background()

	credit, err := svc.Credit(ctx, userID, model.CurrencyJOD, dec("50.00"), "top up", nil)
	require.NoError(t, err)
	assert.True(t, credit.BalanceAfter.Equal(dec("50.00")))

	debit, err := svc.Debit(ctx, userID, model.CurrencyJOD, dec("20.00"), "order", nil)
	require.NoError(t, err)
	assert.True(t, debit.BalanceAfter.Equal(dec("30.00")))

	balance, err := svc.GetBalance(ctx, userID, model.CurrencyJOD)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("30.00")))
	assert.Equal(t, 2, repo.commits)
}

func TestDebitInsufficientFunds(t *testing.T) {
	svc, repo, _ := newService()
	userID := uuid.New()
	ctx := context.Background()

	_, err := svc.Credit(ctx, userID, model.CurrencyJOD, dec("10.00"), "top up", nil)
	require.NoError(t, err)

	_, err = svc.Debit(ctx, userID, model.CurrencyJOD, dec("10.01"), "order", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInsufficientFunds)

	// The failed debit left no ledger row behind.
	chain, _ := repo.ListAllTransactions(ctx, userID, model.CurrencyJOD)
	assert.Len(t, chain, 1)
}

func TestCurrenciesAreIndependentLedgers(t *testing.T) {
	svc, _, _ := newService()
	userID := uuid.New()
	ctx := context.Background()

	_, err := svc.Credit(ctx, userID, model.CurrencyJOD, dec("50.00"), "top up", nil)
	require.NoError(t, err)

	// A JOD balance buys nothing in USD.
	_, err = svc.Debit(ctx, userID, model.CurrencyUSD, dec("1.00"), "order", nil)
	assert.ErrorIs(t, err, model.ErrInsufficientFunds)

	usd, err := svc.GetBalance(ctx, userID, model.CurrencyUSD)
	require.NoError(t, err)
	assert.True(t, usd.IsZero())
}

func TestMovementValidation(t *testing.T) {
	svc, _, _ := newService()
	userID := uuid.New()
	ctx := context.Background()

	_, err := svc.Credit(ctx, userID, "EUR", dec("10.00"), "top up", nil)
	assert.ErrorIs(t, err, model.ErrInvalidCurrency)

	_, err = svc.Credit(ctx, userID, model.CurrencyJOD, dec("0"), "top up", nil)
	assert.ErrorIs(t, err, model.ErrInvalidAmount)

	_, err = svc.Debit(ctx, userID, model.CurrencyJOD, dec("-5.00"), "order", nil)
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
}

func TestAdminCreditWritesAudit(t *testing.T) {
	svc, _, audit := newService()
	adminID := uuid.New()
	userID := uuid.New()

	tx, err := svc.AdminCredit(context.Background(), adminID, userID, model.CurrencyUSD, dec("100.00"), "promo compensation")
	require.NoError(t, err)
	assert.True(t, tx.BalanceAfter.Equal(dec("100.00")))

	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	assert.Equal(t, auditModel.ActionWalletCredit, entry.Action)
	assert.Equal(t, auditModel.RoleAdmin, entry.ActorRole)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, adminID, *entry.ActorID)
}

// ============================================
// LEDGER VERIFICATION
// ============================================

func TestVerifyLedgersCleanChain(t *testing.T) {
	svc, _, _ := newService()
	userID := uuid.New()
	ctx := context.Background()

	_, err := svc.Credit(ctx, userID, model.CurrencyJOD, dec("50.00"), "top up", nil)
	require.NoError(t, err)
	_, err = svc.Debit(ctx, userID, model.CurrencyJOD, dec("20.00"), "order", nil)
	require.NoError(t, err)
	_, err = svc.Credit(ctx, userID, model.CurrencyJOD, dec("5.00"), "refund", nil)
	require.NoError(t, err)

	drifts, err := svc.VerifyLedgers(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestVerifyLedgersDetectsTamperedRow(t *testing.T) {
	svc, repo, _ := newService()
	userID := uuid.New()
	ctx := context.Background()

	_, err := svc.Credit(ctx, userID, model.CurrencyJOD, dec("50.00"), "top up", nil)
	require.NoError(t, err)
	_, err = svc.Debit(ctx, userID, model.CurrencyJOD, dec("20.00"), "order", nil)
	require.NoError(t, err)

	// Corrupt the stored balance_after of the second row.
	k := key(userID, model.CurrencyJOD)
	repo.ledgers[k][1].BalanceAfter = dec("99.00")

	drifts, err := svc.VerifyLedgers(ctx)
	require.NoError(t, err)
	require.Len(t, drifts, 1)

	drift := drifts[0]
	assert.Equal(t, userID, drift.UserID)
	assert.Equal(t, model.CurrencyJOD, drift.Currency)
	assert.True(t, drift.Expected.Equal(dec("30.00")))
	assert.True(t, drift.Actual.Equal(dec("99.00")))
}

func TestVerifyLedgersResyncsAfterDrift(t *testing.T) {
	svc, repo, _ := newService()
	userID := uuid.New()
	ctx := context.Background()

	_, err := svc.Credit(ctx, userID, model.CurrencyJOD, dec("50.00"), "top up", nil)
	require.NoError(t, err)
	_, err = svc.Debit(ctx, userID, model.CurrencyJOD, dec("20.00"), "order", nil)
	require.NoError(t, err)
	_, err = svc.Credit(ctx, userID, model.CurrencyJOD, dec("10.00"), "refund", nil)
	require.NoError(t, err)

	// One corrupted middle row; the rows after it chain off the stored value,
	// so exactly one drift is reported.
	k := key(userID, model.CurrencyJOD)
	repo.ledgers[k][1].BalanceAfter = dec("35.00")
	repo.ledgers[k][2].BalanceAfter = dec("45.00")

	drifts, err := svc.VerifyLedgers(ctx)
	require.NoError(t, err)
	assert.Len(t, drifts, 1)
}
