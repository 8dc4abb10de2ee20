package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	affiliateService "digistore-backend/internal/domains/affiliate/service"
	auditModel "digistore-backend/internal/domains/audit/model"
	auditRepo "digistore-backend/internal/domains/audit/repository"
	catalogModel "digistore-backend/internal/domains/catalog/model"
	catalogRepo "digistore-backend/internal/domains/catalog/repository"
	discountModel "digistore-backend/internal/domains/discount/model"
	discountService "digistore-backend/internal/domains/discount/service"
	"digistore-backend/internal/domains/order/model"
	orderRepo "digistore-backend/internal/domains/order/repository"
	walletModel "digistore-backend/internal/domains/wallet/model"
	walletService "digistore-backend/internal/domains/wallet/service"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ============================================
// FAKES
// ============================================

type fakeOrderRepo struct {
	orderRepo.RepositoryInterface

	orders  map[uuid.UUID]*model.Order
	items   map[uuid.UUID][]model.OrderItem
	history []model.StatusHistory

	commits   int
	rollbacks int
	seq       int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: make(map[uuid.UUID]*model.Order),
		items:  make(map[uuid.UUID][]model.OrderItem),
	}
}

func (r *fakeOrderRepo) BeginTx(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (r *fakeOrderRepo) CommitTx(ctx context.Context, tx pgx.Tx) error {
	r.commits++
	return nil
}
func (r *fakeOrderRepo) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	r.rollbacks++
	return nil
}

func (r *fakeOrderRepo) CreateWithTx(ctx context.Context, tx pgx.Tx, order *model.Order, items []model.OrderItem) error {
	r.seq++
	order.Version = 1
	r.orders[order.ID] = order
	r.items[order.ID] = items
	return nil
}

func (r *fakeOrderRepo) GetByIDWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.GetByIDWithTx(ctx, nil, id)
}

func (r *fakeOrderRepo) UpdateWithTx(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	order.Version++
	return nil
}

func (r *fakeOrderRepo) AppendHistoryWithTx(ctx context.Context, tx pgx.Tx, history *model.StatusHistory) error {
	r.history = append(r.history, *history)
	return nil
}

func (r *fakeOrderRepo) GetItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	return r.items[orderID], nil
}

func (r *fakeOrderRepo) GetHistory(ctx context.Context, orderID uuid.UUID) ([]model.StatusHistory, error) {
	var out []model.StatusHistory
	for _, h := range r.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) statusTrail(orderID uuid.UUID) []string {
	var trail []string
	for _, h := range r.history {
		if h.OrderID == orderID {
			trail = append(trail, h.ToStatus)
		}
	}
	return trail
}

type fakeCatalogRepo struct {
	catalogRepo.RepositoryInterface

	products map[uuid.UUID]*catalogModel.Product
	variants map[uuid.UUID]*catalogModel.Variant

	stock    int
	reserved map[uuid.UUID]int // orderID -> reserved count
	revealed map[uuid.UUID][]catalogModel.Code
	released []uuid.UUID
}

func newFakeCatalogRepo(stock int) *fakeCatalogRepo {
	return &fakeCatalogRepo{
		products: make(map[uuid.UUID]*catalogModel.Product),
		variants: make(map[uuid.UUID]*catalogModel.Variant),
		stock:    stock,
		reserved: make(map[uuid.UUID]int),
		revealed: make(map[uuid.UUID][]catalogModel.Code),
	}
}

func (r *fakeCatalogRepo) addProduct(kind catalogModel.ProductKind, priceJOD, priceUSD string) *catalogModel.Product {
	p := &catalogModel.Product{
		ID:       uuid.New(),
		Name:     "Test Product",
		Slug:     "test-product",
		Kind:     kind,
		PriceJOD: dec(priceJOD),
		PriceUSD: dec(priceUSD),
		IsActive: true,
	}
	r.products[p.ID] = p
	return p
}

func (r *fakeCatalogRepo) GetProductByID(ctx context.Context, id uuid.UUID) (*catalogModel.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, catalogModel.ErrProductNotFound
	}
	return p, nil
}

func (r *fakeCatalogRepo) GetVariantByID(ctx context.Context, id uuid.UUID) (*catalogModel.Variant, error) {
	v, ok := r.variants[id]
	if !ok {
		return nil, catalogModel.ErrVariantNotFound
	}
	return v, nil
}

func (r *fakeCatalogRepo) ReserveCodesWithTx(ctx context.Context, tx pgx.Tx, productID uuid.UUID, variantID *uuid.UUID, orderID uuid.UUID, qty int) (int, error) {
	if r.stock < qty {
		return 0, catalogModel.ErrInsufficientStock
	}
	r.stock -= qty
	r.reserved[orderID] += qty
	return r.stock, nil
}

func (r *fakeCatalogRepo) RevealCodesWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) ([]catalogModel.Code, error) {
	n := r.reserved[orderID]
	codes := make([]catalogModel.Code, 0, n)
	for i := 0; i < n; i++ {
		codes = append(codes, catalogModel.Code{ID: uuid.New(), Payload: "CODE-" + uuid.NewString()[:6]})
	}
	r.reserved[orderID] = 0
	r.revealed[orderID] = codes
	return codes, nil
}

func (r *fakeCatalogRepo) GetRevealedCodes(ctx context.Context, orderID uuid.UUID) ([]catalogModel.Code, error) {
	return r.revealed[orderID], nil
}

func (r *fakeCatalogRepo) ReleaseCodesWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error {
	r.stock += r.reserved[orderID]
	r.reserved[orderID] = 0
	r.released = append(r.released, orderID)
	return nil
}

type fakeWalletService struct {
	walletService.ServiceInterface

	balance decimal.Decimal
	debits  []decimal.Decimal
	credits []decimal.Decimal
}

func (w *fakeWalletService) DebitWithTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, currency string, amount decimal.Decimal, reason string, referenceID *uuid.UUID) (*walletModel.Transaction, error) {
	if w.balance.LessThan(amount) {
		return nil, walletModel.NewWalletError(walletModel.ErrCodeInsufficientFunds, "insufficient funds", walletModel.ErrInsufficientFunds)
	}
	w.balance = w.balance.Sub(amount)
	w.debits = append(w.debits, amount)
	return &walletModel.Transaction{ID: uuid.New(), Amount: amount.Neg()}, nil
}

func (w *fakeWalletService) CreditWithTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, currency string, amount decimal.Decimal, reason string, referenceID *uuid.UUID) (*walletModel.Transaction, error) {
	w.balance = w.balance.Add(amount)
	w.credits = append(w.credits, amount)
	return &walletModel.Transaction{ID: uuid.New(), Amount: amount}, nil
}

type fakeDiscountService struct {
	discountService.ServiceInterface

	quote    *discountModel.Quote
	quoteErr error
	consumed []discountModel.Usage
}

func (d *fakeDiscountService) Price(ctx context.Context, items []discountModel.CartItem, couponCode string) (*discountModel.Quote, error) {
	if d.quoteErr != nil {
		return nil, d.quoteErr
	}
	return d.quote, nil
}

func (d *fakeDiscountService) ConsumeWithTx(ctx context.Context, tx pgx.Tx, usage *discountModel.Usage) error {
	d.consumed = append(d.consumed, *usage)
	return nil
}

type fakeAffiliateService struct {
	affiliateService.ServiceInterface

	accruals []decimal.Decimal
}

func (a *fakeAffiliateService) AccrueWithTx(ctx context.Context, tx pgx.Tx, affiliateID uuid.UUID, currency string, sale, commission decimal.Decimal) error {
	a.accruals = append(a.accruals, commission)
	return nil
}

type fakeAuditRepo struct {
	auditRepo.RepositoryInterface

	entries []auditModel.Entry
}

func (a *fakeAuditRepo) AppendWithTx(ctx context.Context, tx pgx.Tx, entry *auditModel.Entry) error {
	a.entries = append(a.entries, *entry)
	return nil
}

func (a *fakeAuditRepo) actions() []string {
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

// ============================================
// FIXTURE
// ============================================

type fixture struct {
	orders    *fakeOrderRepo
	catalog   *fakeCatalogRepo
	wallet    *fakeWalletService
	discount  *fakeDiscountService
	affiliate *fakeAffiliateService
	audit     *fakeAuditRepo
	service   ServiceInterface
}

func newFixture(stock int, balance string) *fixture {
	f := &fixture{
		orders:    newFakeOrderRepo(),
		catalog:   newFakeCatalogRepo(stock),
		wallet:    &fakeWalletService{balance: dec(balance)},
		discount:  &fakeDiscountService{},
		affiliate: &fakeAffiliateService{},
		audit:     &fakeAuditRepo{},
	}
	f.service = NewOrderService(
		f.orders, f.catalog, f.wallet, f.discount, f.affiliate, f.audit,
		nil, // no queue in tests; enqueue is a no-op
		5,
	)
	return f
}

func orderRequest(p *catalogModel.Product, qty int) model.CreateOrderRequest {
	return model.CreateOrderRequest{
		Items: []model.OrderLine{
			{ProductID: p.ID.String(), Quantity: qty},
		},
		Currency: walletModel.CurrencyJOD,
	}
}

// ============================================
// CREATE ORDER
// ============================================

func TestCreateOrderDigitalHappyPath(t *testing.T) {
	f := newFixture(10, "100.00")
	product := f.catalog.addProduct(catalogModel.KindDigitalCode, "10.00", "14.10")
	userID := uuid.New()

	resp, err := f.service.CreateOrder(context.Background(), userID, orderRequest(product, 2))
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, resp.Status)
	assert.Regexp(t, `^ORD-\d{8}-[0-9A-F]{8}$`, resp.OrderNumber)
	assert.True(t, resp.TotalJOD.Equal(dec("20.00")), "total JOD = %s", resp.TotalJOD)
	assert.True(t, resp.TotalUSD.Equal(dec("28.20")), "total USD = %s", resp.TotalUSD)
	assert.True(t, resp.FinalTotal.Equal(dec("20.00")))

	assert.Equal(t, 1, f.orders.commits)
	assert.Equal(t, 8, f.catalog.stock, "two codes reserved")
	require.Len(t, f.wallet.debits, 1)
	assert.True(t, f.wallet.debits[0].Equal(dec("20.00")))

	trail := f.orders.statusTrail(resp.ID)
	assert.Equal(t, []string{"pending_payment", "processing", "completed"}, trail)
	assert.Contains(t, f.audit.actions(), auditModel.ActionOrderCreated)
}

func TestCreateOrderAccountKindAwaitsAdmin(t *testing.T) {
	f := newFixture(0, "100.00")
	product := f.catalog.addProduct(catalogModel.KindExistingAccount, "25.00", "35.25")
	userID := uuid.New()

	resp, err := f.service.CreateOrder(context.Background(), userID, orderRequest(product, 1))
	require.NoError(t, err)

	// Account kinds skip the code pool entirely.
	assert.Equal(t, model.StatusAwaitingAdmin, resp.Status)
	assert.Empty(t, f.catalog.reserved[resp.ID])
	require.Len(t, f.wallet.debits, 1)
	assert.True(t, f.wallet.debits[0].Equal(dec("25.00")))
}

func TestCreateOrderInsufficientStockRollsBack(t *testing.T) {
	f := newFixture(1, "100.00")
	product := f.catalog.addProduct(catalogModel.KindDigitalCode, "10.00", "14.10")

	_, err := f.service.CreateOrder(context.Background(), uuid.New(), orderRequest(product, 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, catalogModel.ErrInsufficientStock)

	assert.Zero(t, f.orders.commits)
	assert.Empty(t, f.wallet.debits, "wallet never touched on failed reserve")
}

func TestCreateOrderInsufficientFundsRollsBack(t *testing.T) {
	f := newFixture(10, "5.00")
	product := f.catalog.addProduct(catalogModel.KindDigitalCode, "10.00", "14.10")

	_, err := f.service.CreateOrder(context.Background(), uuid.New(), orderRequest(product, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, walletModel.ErrInsufficientFunds)
	assert.Zero(t, f.orders.commits)
}

func TestCreateOrderRejectsMixedKinds(t *testing.T) {
	f := newFixture(10, "100.00")
	digital := f.catalog.addProduct(catalogModel.KindDigitalCode, "10.00", "14.10")
	account := f.catalog.addProduct(catalogModel.KindNewAccount, "20.00", "28.20")

	req := model.CreateOrderRequest{
		Items: []model.OrderLine{
			{ProductID: digital.ID.String(), Quantity: 1},
			{ProductID: account.ID.String(), Quantity: 1},
		},
		Currency: walletModel.CurrencyJOD,
	}

	_, err := f.service.CreateOrder(context.Background(), uuid.New(), req)
	assert.ErrorIs(t, err, model.ErrMixedKinds)
}

func TestCreateOrderRejectsEmptyCart(t *testing.T) {
	f := newFixture(10, "100.00")
	_, err := f.service.CreateOrder(context.Background(), uuid.New(), model.CreateOrderRequest{
		Currency: walletModel.CurrencyJOD,
	})
	assert.ErrorIs(t, err, model.ErrEmptyOrder)
}

func TestCreateOrderRejectsInactiveProduct(t *testing.T) {
	f := newFixture(10, "100.00")
	product := f.catalog.addProduct(catalogModel.KindDigitalCode, "10.00", "14.10")
	product.IsActive = false

	_, err := f.service.CreateOrder(context.Background(), uuid.New(), orderRequest(product, 1))
	assert.ErrorIs(t, err, catalogModel.ErrProductInactive)
}

func TestCreateOrderEnforcesRequiredContactFields(t *testing.T) {
	f := newFixture(0, "100.00")
	product := f.catalog.addProduct(catalogModel.KindNewAccount, "15.00", "21.15")
	product.RequiresEmail = true
	product.RequiresPassword = true
	product.RequiresPhone = true

	email := "buyer@example.com"
	password := "s3cret-pass"
	phone := "+962790000000"

	tests := []struct {
		name     string
		email    *string
		password *string
		phone    *string
	}{
		{"missing email", nil, &password, &phone},
		{"missing password", &email, nil, &phone},
		{"missing phone", &email, &password, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := orderRequest(product, 1)
			req.ContactEmail = tt.email
			req.ContactPassword = tt.password
			req.ContactPhone = tt.phone

			_, err := f.service.CreateOrder(context.Background(), uuid.New(), req)
			assert.ErrorIs(t, err, model.ErrMissingContact)
			assert.Zero(t, f.orders.commits)
		})
	}

	// All required fields present: the order goes through and the details
	// ride along for the admin to fulfill against.
	req := orderRequest(product, 1)
	req.ContactEmail = &email
	req.ContactPassword = &password
	req.ContactPhone = &phone

	resp, err := f.service.CreateOrder(context.Background(), uuid.New(), req)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAwaitingAdmin, resp.Status)

	stored := f.orders.orders[resp.ID]
	require.NotNil(t, stored.ContactPassword)
	assert.Equal(t, password, *stored.ContactPassword)
}

func TestCreateOrderWithCoupon(t *testing.T) {
	f := newFixture(10, "100.00")
	product := f.catalog.addProduct(catalogModel.KindDigitalCode, "50.00", "70.50")

	couponID := uuid.New()
	affiliateID := uuid.New()
	f.discount.quote = &discountModel.Quote{
		Subtotal:           dec("50.00"),
		ApplicableSubtotal: dec("50.00"),
		Discount:           dec("5.00"),
		FinalTotal:         dec("45.00"),
		Commission:         dec("9.00"),
		CouponID:           &couponID,
		AffiliateID:        &affiliateID,
	}

	req := orderRequest(product, 1)
	code := "SAVE10"
	req.CouponCode = &code

	resp, err := f.service.CreateOrder(context.Background(), uuid.New(), req)
	require.NoError(t, err)

	assert.True(t, resp.DiscountAmount.Equal(dec("5.00")))
	assert.True(t, resp.FinalTotal.Equal(dec("45.00")))

	// The discounted amount is what the wallet pays.
	require.Len(t, f.wallet.debits, 1)
	assert.True(t, f.wallet.debits[0].Equal(dec("45.00")))

	require.Len(t, f.discount.consumed, 1)
	assert.Equal(t, couponID, f.discount.consumed[0].CouponID)
	assert.True(t, f.discount.consumed[0].Discount.Equal(dec("5.00")))

	require.Len(t, f.affiliate.accruals, 1)
	assert.True(t, f.affiliate.accruals[0].Equal(dec("9.00")))
	assert.Contains(t, f.audit.actions(), auditModel.ActionCouponConsumed)
}

func TestCreateOrderFullyDiscountedMovesNoMoney(t *testing.T) {
	f := newFixture(10, "0.00")
	product := f.catalog.addProduct(catalogModel.KindDigitalCode, "50.00", "70.50")

	couponID := uuid.New()
	f.discount.quote = &discountModel.Quote{
		Subtotal:           dec("50.00"),
		ApplicableSubtotal: dec("50.00"),
		Discount:           dec("50.00"),
		FinalTotal:         decimal.Zero,
		CouponID:           &couponID,
	}

	req := orderRequest(product, 1)
	code := "FREEBIE"
	req.CouponCode = &code

	// An empty wallet can still complete a free order.
	resp, err := f.service.CreateOrder(context.Background(), uuid.New(), req)
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, resp.Status)
	assert.True(t, resp.FinalTotal.IsZero())
	assert.Equal(t, 1, f.orders.commits)
	assert.Empty(t, f.wallet.debits, "zero total leaves no ledger row")
	require.Len(t, f.discount.consumed, 1, "coupon use is still burned")

	// Refunding it later credits nothing back either.
	_, err = f.service.UpdateStatus(context.Background(), uuid.New(), resp.ID, model.UpdateStatusRequest{
		Status: "refunded",
	})
	require.NoError(t, err)
	assert.Empty(t, f.wallet.credits)
}

func TestCreateOrderInvalidCouponFailsOrder(t *testing.T) {
	f := newFixture(10, "100.00")
	product := f.catalog.addProduct(catalogModel.KindDigitalCode, "50.00", "70.50")
	f.discount.quoteErr = discountModel.ErrCouponExpired

	req := orderRequest(product, 1)
	code := "EXPIRED"
	req.CouponCode = &code

	_, err := f.service.CreateOrder(context.Background(), uuid.New(), req)
	assert.ErrorIs(t, err, discountModel.ErrCouponExpired)
	assert.Zero(t, f.orders.commits)
}

// ============================================
// REVEAL
// ============================================

func createCompletedOrder(t *testing.T, f *fixture, userID uuid.UUID) *model.OrderResponse {
	t.Helper()
	product := f.catalog.addProduct(catalogModel.KindDigitalCode, "10.00", "14.10")
	resp, err := f.service.CreateOrder(context.Background(), userID, orderRequest(product, 2))
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, resp.Status)
	return resp
}

func TestRevealCodes(t *testing.T) {
	f := newFixture(10, "100.00")
	userID := uuid.New()
	order := createCompletedOrder(t, f, userID)

	result, err := f.service.RevealCodes(context.Background(), userID, order.ID)
	require.NoError(t, err)

	assert.Len(t, result.Codes, 2)
	assert.NotNil(t, result.RevealedAt)
	assert.Equal(t, model.StatusRevealed, f.orders.orders[order.ID].Status)
	assert.Contains(t, f.audit.actions(), auditModel.ActionOrderRevealed)
}

func TestRevealCodesIsIdempotent(t *testing.T) {
	f := newFixture(10, "100.00")
	userID := uuid.New()
	order := createCompletedOrder(t, f, userID)

	first, err := f.service.RevealCodes(context.Background(), userID, order.ID)
	require.NoError(t, err)
	auditCount := len(f.audit.entries)

	second, err := f.service.RevealCodes(context.Background(), userID, order.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Codes, second.Codes, "same codes on repeat reveal")
	assert.Len(t, f.audit.entries, auditCount, "no extra audit entry on repeat reveal")
	assert.Equal(t, model.StatusRevealed, f.orders.orders[order.ID].Status)
}

func TestRevealCodesRejectsNonOwner(t *testing.T) {
	f := newFixture(10, "100.00")
	order := createCompletedOrder(t, f, uuid.New())

	_, err := f.service.RevealCodes(context.Background(), uuid.New(), order.ID)
	assert.ErrorIs(t, err, model.ErrNotOwner)
}

func TestRevealCodesRejectsAccountKind(t *testing.T) {
	f := newFixture(0, "100.00")
	product := f.catalog.addProduct(catalogModel.KindExistingAccount, "25.00", "35.25")
	userID := uuid.New()
	resp, err := f.service.CreateOrder(context.Background(), userID, orderRequest(product, 1))
	require.NoError(t, err)

	_, err = f.service.RevealCodes(context.Background(), userID, resp.ID)
	assert.ErrorIs(t, err, model.ErrRevealNotAllowed)
}

// ============================================
// DISPUTES
// ============================================

func TestOpenDisputeStoresPreviousStatus(t *testing.T) {
	f := newFixture(10, "100.00")
	userID := uuid.New()
	order := createCompletedOrder(t, f, userID)
	_, err := f.service.RevealCodes(context.Background(), userID, order.ID)
	require.NoError(t, err)

	resp, err := f.service.OpenDispute(context.Background(), userID, order.ID, model.OpenDisputeRequest{
		Reason: "codes were already redeemed by someone else",
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusDisputed, resp.Status)
	stored := f.orders.orders[order.ID]
	require.NotNil(t, stored.PreviousStatus)
	assert.Equal(t, model.StatusRevealed.String(), *stored.PreviousStatus)
	assert.NotNil(t, stored.DisputeOpenedAt)
	assert.Contains(t, f.audit.actions(), auditModel.ActionDisputeOpened)
}

func TestOpenDisputeRejectsWrongState(t *testing.T) {
	f := newFixture(10, "100.00")
	product := f.catalog.addProduct(catalogModel.KindDigitalCode, "10.00", "14.10")
	userID := uuid.New()
	resp, err := f.service.CreateOrder(context.Background(), userID, orderRequest(product, 1))
	require.NoError(t, err)

	// Force a terminal state, then try to dispute.
	f.orders.orders[resp.ID].Status = model.StatusRefunded

	_, err = f.service.OpenDispute(context.Background(), userID, resp.ID, model.OpenDisputeRequest{
		Reason: "still want my money back after the refund",
	})
	assert.ErrorIs(t, err, model.ErrDisputeNotAllowed)
}

func disputedOrder(t *testing.T, f *fixture, userID uuid.UUID) uuid.UUID {
	t.Helper()
	order := createCompletedOrder(t, f, userID)
	_, err := f.service.RevealCodes(context.Background(), userID, order.ID)
	require.NoError(t, err)
	_, err = f.service.OpenDispute(context.Background(), userID, order.ID, model.OpenDisputeRequest{
		Reason: "codes were invalid at the retailer",
	})
	require.NoError(t, err)
	return order.ID
}

func TestResolveDisputeRefund(t *testing.T) {
	f := newFixture(10, "100.00")
	userID := uuid.New()
	orderID := disputedOrder(t, f, userID)
	adminID := uuid.New()

	resp, err := f.service.ResolveDispute(context.Background(), adminID, orderID, model.ResolveDisputeRequest{
		Decision: "refund",
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusRefunded, resp.Status)
	require.Len(t, f.wallet.credits, 1)
	assert.True(t, f.wallet.credits[0].Equal(dec("20.00")), "full paid amount credited back")
	assert.Contains(t, f.catalog.released, orderID)
	assert.Contains(t, f.audit.actions(), auditModel.ActionDisputeResolved)
}

func TestResolveDisputeRejectRestoresPreviousStatus(t *testing.T) {
	f := newFixture(10, "100.00")
	userID := uuid.New()
	orderID := disputedOrder(t, f, userID)

	resp, err := f.service.ResolveDispute(context.Background(), uuid.New(), orderID, model.ResolveDisputeRequest{
		Decision: "reject",
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusRevealed, resp.Status)
	assert.Nil(t, f.orders.orders[orderID].PreviousStatus)
	assert.Empty(t, f.wallet.credits, "reject never moves money")
}

func TestResolveDisputeRedeliverDigital(t *testing.T) {
	f := newFixture(10, "100.00")
	userID := uuid.New()
	orderID := disputedOrder(t, f, userID)
	stockBefore := f.catalog.stock
	debitsBefore := len(f.wallet.debits)

	resp, err := f.service.ResolveDispute(context.Background(), uuid.New(), orderID, model.ResolveDisputeRequest{
		Decision: "redeliver",
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusRevealed, resp.Status)
	assert.Equal(t, stockBefore-2, f.catalog.stock, "fresh codes pulled from the pool")
	assert.Len(t, f.wallet.debits, debitsBefore, "redelivery never charges again")
}

func TestResolveDisputeRequiresOpenDispute(t *testing.T) {
	f := newFixture(10, "100.00")
	userID := uuid.New()
	order := createCompletedOrder(t, f, userID)

	_, err := f.service.ResolveDispute(context.Background(), uuid.New(), order.ID, model.ResolveDisputeRequest{
		Decision: "refund",
	})
	assert.ErrorIs(t, err, model.ErrNoOpenDispute)
}

func TestResolveDisputeRejectsUnknownDecision(t *testing.T) {
	f := newFixture(10, "100.00")
	_, err := f.service.ResolveDispute(context.Background(), uuid.New(), uuid.New(), model.ResolveDisputeRequest{
		Decision: "escalate",
	})
	assert.ErrorIs(t, err, model.ErrInvalidDecision)
}

// ============================================
// ADMIN STATUS OPS
// ============================================

func TestUpdateStatusRefundCreditsAndReleases(t *testing.T) {
	f := newFixture(10, "100.00")
	userID := uuid.New()
	order := createCompletedOrder(t, f, userID)
	adminID := uuid.New()

	resp, err := f.service.UpdateStatus(context.Background(), adminID, order.ID, model.UpdateStatusRequest{
		Status: "refunded",
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusRefunded, resp.Status)
	require.Len(t, f.wallet.credits, 1)
	assert.True(t, f.wallet.credits[0].Equal(dec("20.00")))
	assert.Contains(t, f.catalog.released, order.ID)
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	f := newFixture(10, "100.00")
	order := createCompletedOrder(t, f, uuid.New())

	_, err := f.service.UpdateStatus(context.Background(), uuid.New(), order.ID, model.UpdateStatusRequest{
		Status: "pending_payment",
	})
	assert.ErrorIs(t, err, model.ErrIllegalTransition)
}

func TestUpdateStatusRejectsReservedTargets(t *testing.T) {
	f := newFixture(10, "100.00")
	order := createCompletedOrder(t, f, uuid.New())

	for _, target := range []string{"revealed", "delivered", "disputed"} {
		_, err := f.service.UpdateStatus(context.Background(), uuid.New(), order.ID, model.UpdateStatusRequest{
			Status: target,
		})
		assert.ErrorIs(t, err, model.ErrIllegalTransition, "target %s must use its dedicated operation", target)
	}
}

func TestDeliver(t *testing.T) {
	f := newFixture(0, "100.00")
	product := f.catalog.addProduct(catalogModel.KindNewAccount, "30.00", "42.30")
	userID := uuid.New()
	resp, err := f.service.CreateOrder(context.Background(), userID, orderRequest(product, 1))
	require.NoError(t, err)
	require.Equal(t, model.StatusAwaitingAdmin, resp.Status)

	adminID := uuid.New()
	delivered, err := f.service.Deliver(context.Background(), adminID, resp.ID, model.DeliverRequest{
		DeliveryData: model.DeliveryData{"username": "acc@example.com", "password": "pw"},
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusDelivered, delivered.Status)
	stored := f.orders.orders[resp.ID]
	assert.NotNil(t, stored.DeliveredAt)
	assert.Equal(t, "acc@example.com", stored.DeliveryData["username"])
	assert.Contains(t, f.audit.actions(), auditModel.ActionOrderDelivered)
}

func TestDeliverRejectsNonAwaitingOrder(t *testing.T) {
	f := newFixture(10, "100.00")
	order := createCompletedOrder(t, f, uuid.New())

	_, err := f.service.Deliver(context.Background(), uuid.New(), order.ID, model.DeliverRequest{
		DeliveryData: model.DeliveryData{"username": "x"},
	})
	assert.ErrorIs(t, err, model.ErrIllegalTransition)
}

// ============================================
// READS
// ============================================

func TestGetOrderEnforcesOwnership(t *testing.T) {
	f := newFixture(10, "100.00")
	owner := uuid.New()
	order := createCompletedOrder(t, f, owner)

	_, err := f.service.GetOrder(context.Background(), owner, false, order.ID)
	assert.NoError(t, err)

	_, err = f.service.GetOrder(context.Background(), uuid.New(), false, order.ID)
	assert.ErrorIs(t, err, model.ErrNotOwner)

	_, err = f.service.GetOrder(context.Background(), uuid.New(), true, order.ID)
	assert.NoError(t, err, "admins can read any order")
}
