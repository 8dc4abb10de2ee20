package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

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
	"digistore-backend/internal/shared"
	"digistore-backend/internal/shared/middleware"
	"digistore-backend/internal/shared/utils"
	"digistore-backend/pkg/logger"
)

type orderService struct {
	orderRepo    orderRepo.RepositoryInterface
	catalogRepo  catalogRepo.RepositoryInterface
	walletSvc    walletService.ServiceInterface
	discountSvc  discountService.ServiceInterface
	affiliateSvc affiliateService.ServiceInterface
	auditRepo    auditRepo.RepositoryInterface
	asynq        *asynq.Client

	lowStockThreshold int
}

func NewOrderService(
	orders orderRepo.RepositoryInterface,
	catalog catalogRepo.RepositoryInterface,
	wallet walletService.ServiceInterface,
	discount discountService.ServiceInterface,
	affiliate affiliateService.ServiceInterface,
	audit auditRepo.RepositoryInterface,
	asynqClient *asynq.Client,
	lowStockThreshold int,
) ServiceInterface {
	return &orderService{
		orderRepo:         orders,
		catalogRepo:       catalog,
		walletSvc:         wallet,
		discountSvc:       discount,
		affiliateSvc:      affiliate,
		auditRepo:         audit,
		asynq:             asynqClient,
		lowStockThreshold: lowStockThreshold,
	}
}

// lineData pairs a requested line with its catalog snapshot.
type lineData struct {
	product  *catalogModel.Product
	variant  *catalogModel.Variant
	quantity int
}

// =====================================================
// CREATE ORDER
// =====================================================

func (s *orderService) CreateOrder(ctx context.Context, userID uuid.UUID, req model.CreateOrderRequest) (*model.OrderResponse, error) {
	lines, kind, err := s.loadLines(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	if err := checkContactRequirements(lines, req); err != nil {
		return nil, err
	}

	items, cart, totalJOD, totalUSD := buildSnapshot(lines, req.Currency)
	subtotal := settlementTotal(req.Currency, totalJOD, totalUSD)

	// Preview-only pricing; consumption happens inside the transaction.
	var quote *discountModel.Quote
	if req.CouponCode != nil && *req.CouponCode != "" {
		quote, err = s.discountSvc.Price(ctx, cart, *req.CouponCode)
		if err != nil {
			return nil, err
		}
	}

	order := &model.Order{
		ID:          uuid.New(),
		OrderNumber: utils.GenerateOrderNumber(),
		UserID:      userID,
		ProductKind: kind,
		Currency:    req.Currency,
		TotalJOD:    totalJOD,
		TotalUSD:    totalUSD,
		Subtotal:    subtotal,
		FinalTotal:  subtotal,
		Status:      model.StatusPendingPayment,

		ContactEmail:    req.ContactEmail,
		ContactPhone:    req.ContactPhone,
		ContactPassword: req.ContactPassword,
		CustomerNote:    req.CustomerNote,
	}
	if quote != nil {
		order.DiscountAmount = quote.Discount
		order.FinalTotal = quote.FinalTotal
		order.CommissionDue = quote.Commission
		order.CouponID = quote.CouponID
		order.AffiliateID = quote.AffiliateID
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin order tx: %w", err)
	}
	defer s.orderRepo.RollbackTx(ctx, tx)

	if err := s.orderRepo.CreateWithTx(ctx, tx, order, items); err != nil {
		return nil, err
	}
	if err := s.appendHistory(ctx, tx, order.ID, nil, order.Status, &userID, nil); err != nil {
		return nil, err
	}
	if err := s.transitionWithTx(ctx, tx, order, model.StatusProcessing, &userID, nil); err != nil {
		return nil, err
	}

	// Reserve pool codes; any shortfall rolls the whole order back.
	lowStock := make([]shared.LowStockPayload, 0)
	if kind == catalogModel.KindDigitalCode {
		for i := range items {
			remaining, err := s.catalogRepo.ReserveCodesWithTx(ctx, tx,
				items[i].ProductID, items[i].VariantID, order.ID, items[i].Quantity)
			if err != nil {
				return nil, err
			}
			if remaining <= s.lowStockThreshold {
				event := shared.LowStockPayload{
					ProductID: items[i].ProductID.String(),
					Remaining: remaining,
				}
				if items[i].VariantID != nil {
					event.VariantID = items[i].VariantID.String()
				}
				lowStock = append(lowStock, event)
			}
		}
	}

	// Burn the coupon use and accrue commission only at commit, never during
	// preview.
	if quote != nil {
		usage := &discountModel.Usage{
			ID:         uuid.New(),
			CouponID:   *quote.CouponID,
			UserID:     userID,
			OrderID:    order.ID,
			Currency:   order.Currency,
			Discount:   quote.Discount,
			Commission: quote.Commission,
		}
		if err := s.discountSvc.ConsumeWithTx(ctx, tx, usage); err != nil {
			return nil, err
		}
		if quote.AffiliateID != nil {
			err := s.affiliateSvc.AccrueWithTx(ctx, tx, *quote.AffiliateID,
				order.Currency, order.FinalTotal, order.CommissionDue)
			if err != nil {
				return nil, err
			}
		}
		if err := s.auditWithTx(ctx, tx, &userID, auditModel.RoleCustomer,
			auditModel.ActionCouponConsumed, "coupon", *quote.CouponID, nil,
			map[string]interface{}{
				"order_id": order.ID.String(),
				"discount": quote.Discount.String(),
			}); err != nil {
			return nil, err
		}
	}

	// A coupon can discount the total to exactly zero; the ledger records only
	// real money movements, so a free order skips the debit entirely.
	if order.FinalTotal.IsPositive() {
		_, err = s.walletSvc.DebitWithTx(ctx, tx, userID, order.Currency, order.FinalTotal,
			"order "+order.OrderNumber, &order.ID)
		if err != nil {
			return nil, err
		}
	}

	finalStatus := model.StatusCompleted
	if kind != catalogModel.KindDigitalCode {
		finalStatus = model.StatusAwaitingAdmin
	}
	if err := s.transitionWithTx(ctx, tx, order, finalStatus, &userID, nil); err != nil {
		return nil, err
	}

	if err := s.auditWithTx(ctx, tx, &userID, auditModel.RoleCustomer,
		auditModel.ActionOrderCreated, "order", order.ID, nil,
		map[string]interface{}{
			"order_number": order.OrderNumber,
			"status":       order.Status.String(),
			"final_total":  order.FinalTotal.String(),
			"currency":     order.Currency,
		}); err != nil {
		return nil, err
	}

	if err := s.orderRepo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("commit order tx: %w", err)
	}

	// Post-commit, best effort: a lost event never unwinds money movement.
	s.enqueue(shared.TypeNotifyOrderCreated, shared.OrderCreatedPayload{
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		UserID:      userID.String(),
		Total:       order.FinalTotal.String(),
		Currency:    order.Currency,
	}, shared.QueueCritical)
	for _, event := range lowStock {
		s.enqueue(shared.TypeNotifyLowStock, event, shared.QueueEvents)
	}

	return order.ToResponse(items, nil), nil
}

func (s *orderService) loadLines(ctx context.Context, reqItems []model.OrderLine) ([]lineData, catalogModel.ProductKind, error) {
	if len(reqItems) == 0 {
		return nil, "", model.NewOrderError(model.ErrCodeEmptyOrder, "order has no items", model.ErrEmptyOrder)
	}

	lines := make([]lineData, 0, len(reqItems))
	var kind catalogModel.ProductKind

	for _, line := range reqItems {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			return nil, "", fmt.Errorf("invalid product id: %w", err)
		}

		product, err := s.catalogRepo.GetProductByID(ctx, productID)
		if err != nil {
			return nil, "", err
		}
		if !product.IsActive {
			return nil, "", catalogModel.NewCatalogError(catalogModel.ErrCodeProductInactive,
				"product is not active", catalogModel.ErrProductInactive)
		}

		if kind == "" {
			kind = product.Kind
		} else if kind != product.Kind {
			// One fulfillment flow per order.
			return nil, "", model.NewOrderError(model.ErrCodeMixedKinds,
				"order cannot mix product kinds", model.ErrMixedKinds)
		}

		data := lineData{product: product, quantity: line.Quantity}
		if line.VariantID != nil && *line.VariantID != "" {
			variantID, err := uuid.Parse(*line.VariantID)
			if err != nil {
				return nil, "", fmt.Errorf("invalid variant id: %w", err)
			}
			variant, err := s.catalogRepo.GetVariantByID(ctx, variantID)
			if err != nil {
				return nil, "", err
			}
			if variant.ProductID != product.ID {
				return nil, "", catalogModel.ErrVariantNotFound
			}
			data.variant = variant
		}
		lines = append(lines, data)
	}
	return lines, kind, nil
}

// checkContactRequirements enforces each product's capability flags: an
// account-kind product that needs an email, a password or a phone to fulfill
// rejects the order up front rather than leaving the admin nothing to work
// with.
func checkContactRequirements(lines []lineData, req model.CreateOrderRequest) error {
	missing := func(v *string) bool { return v == nil || *v == "" }

	for _, line := range lines {
		p := line.product
		if p.RequiresEmail && missing(req.ContactEmail) {
			return model.NewOrderError(model.ErrCodeMissingContact,
				p.Name+" requires a contact email", model.ErrMissingContact)
		}
		if p.RequiresPassword && missing(req.ContactPassword) {
			return model.NewOrderError(model.ErrCodeMissingContact,
				p.Name+" requires an account password", model.ErrMissingContact)
		}
		if p.RequiresPhone && missing(req.ContactPhone) {
			return model.NewOrderError(model.ErrCodeMissingContact,
				p.Name+" requires a contact phone", model.ErrMissingContact)
		}
	}
	return nil
}

// buildSnapshot freezes both currency quotes into order items and builds the
// settlement-currency cart for the discount engine.
func buildSnapshot(lines []lineData, currency string) ([]model.OrderItem, []discountModel.CartItem, decimal.Decimal, decimal.Decimal) {
	items := make([]model.OrderItem, 0, len(lines))
	cart := make([]discountModel.CartItem, 0, len(lines))
	totalJOD := decimal.Zero
	totalUSD := decimal.Zero

	for _, line := range lines {
		priceJOD := line.product.PriceJOD
		priceUSD := line.product.PriceUSD
		var variantID *uuid.UUID
		var variantName *string
		if line.variant != nil {
			priceJOD = line.variant.PriceJOD
			priceUSD = line.variant.PriceUSD
			variantID = &line.variant.ID
			variantName = &line.variant.Name
		}

		qty := decimal.NewFromInt(int64(line.quantity))
		item := model.OrderItem{
			ID:           uuid.New(),
			ProductID:    line.product.ID,
			VariantID:    variantID,
			ProductName:  line.product.Name,
			ProductSlug:  line.product.Slug,
			VariantName:  variantName,
			Quantity:     line.quantity,
			UnitPriceJOD: priceJOD,
			UnitPriceUSD: priceUSD,
			LineTotalJOD: priceJOD.Mul(qty),
			LineTotalUSD: priceUSD.Mul(qty),
		}
		items = append(items, item)
		totalJOD = totalJOD.Add(item.LineTotalJOD)
		totalUSD = totalUSD.Add(item.LineTotalUSD)

		cart = append(cart, discountModel.CartItem{
			ProductID: line.product.ID,
			VariantID: variantID,
			UnitPrice: settlementTotal(currency, priceJOD, priceUSD),
			Quantity:  line.quantity,
		})
	}
	return items, cart, totalJOD, totalUSD
}

func settlementTotal(currency string, jod, usd decimal.Decimal) decimal.Decimal {
	if currency == walletModel.CurrencyUSD {
		return usd
	}
	return jod
}

// =====================================================
// REVEAL
// =====================================================

func (s *orderService) RevealCodes(ctx context.Context, userID, orderID uuid.UUID) (*model.RevealResponse, error) {
	resp, err := s.revealOnce(ctx, userID, orderID)
	if errors.Is(err, model.ErrVersionMismatch) {
		// One transparent retry; the second loser surfaces the conflict.
		resp, err = s.revealOnce(ctx, userID, orderID)
		if errors.Is(err, model.ErrVersionMismatch) {
			return nil, model.NewOrderError(model.ErrCodeConcurrencyConflict,
				"order was modified concurrently", err)
		}
	}
	return resp, err
}

func (s *orderService) revealOnce(ctx context.Context, userID, orderID uuid.UUID) (*model.RevealResponse, error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reveal tx: %w", err)
	}
	defer s.orderRepo.RollbackTx(ctx, tx)

	order, err := s.orderRepo.GetByIDWithTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, model.NewOrderError(model.ErrCodeNotOwner, "order belongs to another user", model.ErrNotOwner)
	}

	// Second call: same codes, no new transition, no new audit entry.
	if order.RevealedAt != nil {
		codes, err := s.catalogRepo.GetRevealedCodes(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return revealResponse(order, codes), nil
	}

	if order.ProductKind != catalogModel.KindDigitalCode || order.Status != model.StatusCompleted {
		return nil, model.NewOrderError(model.ErrCodeRevealNotAllowed,
			"order is not ready to reveal", model.ErrRevealNotAllowed)
	}

	codes, err := s.catalogRepo.RevealCodesWithTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order.RevealedAt = &now
	if err := s.transitionWithTx(ctx, tx, order, model.StatusRevealed, &userID, nil); err != nil {
		return nil, err
	}

	// The IP rides into the audit entry as non-repudiation evidence for
	// later refund disputes.
	ip := middleware.GetClientIPFromContext(ctx)
	entry := &auditModel.Entry{
		ID:         uuid.New(),
		ActorID:    &userID,
		ActorRole:  auditModel.RoleCustomer,
		Action:     auditModel.ActionOrderRevealed,
		EntityType: "order",
		EntityID:   order.ID,
		After: map[string]interface{}{
			"code_count":  len(codes),
			"revealed_at": now.Format(time.RFC3339),
		},
	}
	if ip != "" {
		entry.IPAddress = &ip
	}
	if err := s.auditRepo.AppendWithTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := s.orderRepo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("commit reveal tx: %w", err)
	}

	s.enqueue(shared.TypeNotifyCodesRevealed, shared.CodesRevealedPayload{
		OrderID:   order.ID.String(),
		UserID:    userID.String(),
		CodeCount: len(codes),
		IPAddress: ip,
	}, shared.QueueEvents)

	return revealResponse(order, codes), nil
}

func revealResponse(order *model.Order, codes []catalogModel.Code) *model.RevealResponse {
	payloads := make([]string, 0, len(codes))
	for _, c := range codes {
		payloads = append(payloads, c.Payload)
	}
	return &model.RevealResponse{
		OrderID:    order.ID,
		RevealedAt: order.RevealedAt,
		Codes:      payloads,
	}
}

// =====================================================
// DISPUTES
// =====================================================

func (s *orderService) OpenDispute(ctx context.Context, userID, orderID uuid.UUID, req model.OpenDisputeRequest) (*model.OrderResponse, error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin dispute tx: %w", err)
	}
	defer s.orderRepo.RollbackTx(ctx, tx)

	order, err := s.orderRepo.GetByIDWithTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, model.NewOrderError(model.ErrCodeNotOwner, "order belongs to another user", model.ErrNotOwner)
	}
	if !model.CanTransition(order.Status, model.StatusDisputed) {
		return nil, model.NewOrderError(model.ErrCodeDisputeNotAllowed,
			"order cannot be disputed in its current state", model.ErrDisputeNotAllowed)
	}

	prev := order.Status.String()
	now := time.Now().UTC()
	order.PreviousStatus = &prev
	order.DisputeReason = &req.Reason
	order.DisputeOpenedAt = &now
	if err := s.transitionWithTx(ctx, tx, order, model.StatusDisputed, &userID, &req.Reason); err != nil {
		return nil, err
	}

	ip := middleware.GetClientIPFromContext(ctx)
	entry := &auditModel.Entry{
		ID:         uuid.New(),
		ActorID:    &userID,
		ActorRole:  auditModel.RoleCustomer,
		Action:     auditModel.ActionDisputeOpened,
		EntityType: "order",
		EntityID:   order.ID,
		Before:     map[string]interface{}{"status": prev},
		After:      map[string]interface{}{"status": order.Status.String(), "reason": req.Reason},
	}
	if ip != "" {
		entry.IPAddress = &ip
	}
	if err := s.auditRepo.AppendWithTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := s.orderRepo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("commit dispute tx: %w", err)
	}

	s.enqueue(shared.TypeNotifyDisputeOpened, shared.DisputeOpenedPayload{
		OrderID: order.ID.String(),
		UserID:  userID.String(),
		Reason:  req.Reason,
	}, shared.QueueCritical)

	return s.toResponse(ctx, order)
}

func (s *orderService) ResolveDispute(ctx context.Context, adminID, orderID uuid.UUID, req model.ResolveDisputeRequest) (*model.OrderResponse, error) {
	decision := model.DisputeDecision(req.Decision)
	if !decision.IsValid() {
		return nil, model.NewOrderError(model.ErrCodeInvalidDecision, "invalid dispute decision", model.ErrInvalidDecision)
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin resolve tx: %w", err)
	}
	defer s.orderRepo.RollbackTx(ctx, tx)

	order, err := s.orderRepo.GetByIDWithTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.StatusDisputed {
		return nil, model.NewOrderError(model.ErrCodeNoOpenDispute, "order has no open dispute", model.ErrNoOpenDispute)
	}

	before := map[string]interface{}{"status": order.Status.String()}

	switch decision {
	case model.DecisionRefund:
		// Credit back the paid amount; revealed codes stay burned. A fully
		// discounted order paid nothing, so there is nothing to credit.
		if order.FinalTotal.IsPositive() {
			_, err := s.walletSvc.CreditWithTx(ctx, tx, order.UserID, order.Currency,
				order.FinalTotal, "refund order "+order.OrderNumber, &order.ID)
			if err != nil {
				return nil, err
			}
		}
		if err := s.catalogRepo.ReleaseCodesWithTx(ctx, tx, order.ID); err != nil {
			return nil, err
		}
		order.PreviousStatus = nil
		if err := s.transitionWithTx(ctx, tx, order, model.StatusRefunded, &adminID, req.Notes); err != nil {
			return nil, err
		}

	case model.DecisionRedeliver:
		if order.ProductKind == catalogModel.KindDigitalCode {
			// Fresh codes, no new charge; the old ones stay revealed.
			items, err := s.orderRepo.GetItems(ctx, order.ID)
			if err != nil {
				return nil, err
			}
			for i := range items {
				_, err := s.catalogRepo.ReserveCodesWithTx(ctx, tx,
					items[i].ProductID, items[i].VariantID, order.ID, items[i].Quantity)
				if err != nil {
					return nil, err
				}
			}
			if _, err := s.catalogRepo.RevealCodesWithTx(ctx, tx, order.ID); err != nil {
				return nil, err
			}
			now := time.Now().UTC()
			order.RevealedAt = &now
			order.PreviousStatus = nil
			if err := s.transitionWithTx(ctx, tx, order, model.StatusRevealed, &adminID, req.Notes); err != nil {
				return nil, err
			}
		} else {
			order.PreviousStatus = nil
			if err := s.transitionWithTx(ctx, tx, order, model.StatusAwaitingAdmin, &adminID, req.Notes); err != nil {
				return nil, err
			}
		}

	case model.DecisionReject:
		if order.PreviousStatus == nil {
			return nil, model.NewOrderError(model.ErrCodeNoOpenDispute, "order has no open dispute", model.ErrNoOpenDispute)
		}
		restored := model.OrderStatus(*order.PreviousStatus)
		order.PreviousStatus = nil
		if err := s.transitionWithTx(ctx, tx, order, restored, &adminID, req.Notes); err != nil {
			return nil, err
		}
	}

	after := map[string]interface{}{
		"status":   order.Status.String(),
		"decision": string(decision),
	}
	if err := s.auditWithTx(ctx, tx, &adminID, auditModel.RoleAdmin,
		auditModel.ActionDisputeResolved, "order", order.ID, before, after); err != nil {
		return nil, err
	}

	if err := s.orderRepo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("commit resolve tx: %w", err)
	}
	return s.toResponse(ctx, order)
}

// =====================================================
// ADMIN STATUS OPS
// =====================================================

func (s *orderService) UpdateStatus(ctx context.Context, adminID, orderID uuid.UUID, req model.UpdateStatusRequest) (*model.OrderResponse, error) {
	target := model.OrderStatus(req.Status)
	if !target.IsValid() {
		return nil, model.NewOrderError(model.ErrCodeIllegalTransition, "unknown status", model.ErrIllegalTransition)
	}
	// These moves carry side effects owned by dedicated operations.
	switch target {
	case model.StatusRevealed, model.StatusDelivered, model.StatusDisputed:
		return nil, model.NewOrderError(model.ErrCodeIllegalTransition,
			"use the dedicated operation for this transition", model.ErrIllegalTransition)
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin status tx: %w", err)
	}
	defer s.orderRepo.RollbackTx(ctx, tx)

	order, err := s.orderRepo.GetByIDWithTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	before := map[string]interface{}{"status": order.Status.String()}

	switch target {
	case model.StatusRefunded:
		if order.FinalTotal.IsPositive() {
			_, err := s.walletSvc.CreditWithTx(ctx, tx, order.UserID, order.Currency,
				order.FinalTotal, "refund order "+order.OrderNumber, &order.ID)
			if err != nil {
				return nil, err
			}
		}
		if err := s.catalogRepo.ReleaseCodesWithTx(ctx, tx, order.ID); err != nil {
			return nil, err
		}
	case model.StatusCancelled:
		if err := s.catalogRepo.ReleaseCodesWithTx(ctx, tx, order.ID); err != nil {
			return nil, err
		}
	}

	if err := s.transitionWithTx(ctx, tx, order, target, &adminID, req.Notes); err != nil {
		return nil, err
	}

	if err := s.auditWithTx(ctx, tx, &adminID, auditModel.RoleAdmin,
		auditModel.ActionOrderStatus, "order", order.ID, before,
		map[string]interface{}{"status": order.Status.String()}); err != nil {
		return nil, err
	}

	if err := s.orderRepo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("commit status tx: %w", err)
	}
	return s.toResponse(ctx, order)
}

func (s *orderService) Deliver(ctx context.Context, adminID, orderID uuid.UUID, req model.DeliverRequest) (*model.OrderResponse, error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin deliver tx: %w", err)
	}
	defer s.orderRepo.RollbackTx(ctx, tx)

	order, err := s.orderRepo.GetByIDWithTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.StatusAwaitingAdmin {
		return nil, model.NewOrderError(model.ErrCodeIllegalTransition,
			"order is not awaiting delivery", model.ErrIllegalTransition)
	}

	now := time.Now().UTC()
	order.DeliveryData = req.DeliveryData
	order.DeliveredAt = &now
	if err := s.transitionWithTx(ctx, tx, order, model.StatusDelivered, &adminID, req.Notes); err != nil {
		return nil, err
	}

	if err := s.auditWithTx(ctx, tx, &adminID, auditModel.RoleAdmin,
		auditModel.ActionOrderDelivered, "order", order.ID,
		map[string]interface{}{"status": model.StatusAwaitingAdmin.String()},
		map[string]interface{}{"status": order.Status.String()}); err != nil {
		return nil, err
	}

	if err := s.orderRepo.CommitTx(ctx, tx); err != nil {
		return nil, fmt.Errorf("commit deliver tx: %w", err)
	}
	return s.toResponse(ctx, order)
}

// =====================================================
// READS
// =====================================================

func (s *orderService) GetOrder(ctx context.Context, actorID uuid.UUID, isAdmin bool, orderID uuid.UUID) (*model.OrderResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, model.ErrOrderNotFound) {
			return nil, model.NewOrderError(model.ErrCodeOrderNotFound, "order not found", err)
		}
		return nil, err
	}
	if !isAdmin && order.UserID != actorID {
		return nil, model.NewOrderError(model.ErrCodeNotOwner, "order belongs to another user", model.ErrNotOwner)
	}
	return s.toResponse(ctx, order)
}

func (s *orderService) ListOrders(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.OrderListResponse, int, error) {
	return s.orderRepo.ListByUser(ctx, userID, page, limit)
}

func (s *orderService) SearchOrders(ctx context.Context, query model.SearchQuery) ([]model.OrderListResponse, int, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 || query.Limit > 100 {
		query.Limit = 20
	}
	return s.orderRepo.Search(ctx, query)
}

// =====================================================
// HELPERS
// =====================================================

// transitionWithTx is the single chokepoint for status changes: every move is
// validated against the state machine and leaves a history row.
func (s *orderService) transitionWithTx(ctx context.Context, tx pgx.Tx, order *model.Order, to model.OrderStatus, actor *uuid.UUID, notes *string) error {
	if !model.CanTransition(order.Status, to) {
		return model.NewOrderError(model.ErrCodeIllegalTransition,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, to),
			model.ErrIllegalTransition)
	}

	from := order.Status
	order.Status = to
	if err := s.orderRepo.UpdateWithTx(ctx, tx, order); err != nil {
		order.Status = from
		return err
	}
	return s.appendHistory(ctx, tx, order.ID, &from, to, actor, notes)
}

func (s *orderService) appendHistory(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, from *model.OrderStatus, to model.OrderStatus, actor *uuid.UUID, notes *string) error {
	history := &model.StatusHistory{
		ID:        uuid.New(),
		OrderID:   orderID,
		ToStatus:  to.String(),
		ChangedBy: actor,
		Notes:     notes,
	}
	if from != nil {
		f := from.String()
		history.FromStatus = &f
	}
	return s.orderRepo.AppendHistoryWithTx(ctx, tx, history)
}

func (s *orderService) auditWithTx(ctx context.Context, tx pgx.Tx, actorID *uuid.UUID, role, action, entityType string, entityID uuid.UUID, before, after map[string]interface{}) error {
	entry := &auditModel.Entry{
		ID:         uuid.New(),
		ActorID:    actorID,
		ActorRole:  role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Before:     before,
		After:      after,
	}
	if ip := middleware.GetClientIPFromContext(ctx); ip != "" {
		entry.IPAddress = &ip
	}
	return s.auditRepo.AppendWithTx(ctx, tx, entry)
}

func (s *orderService) toResponse(ctx context.Context, order *model.Order) (*model.OrderResponse, error) {
	items, err := s.orderRepo.GetItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	history, err := s.orderRepo.GetHistory(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return order.ToResponse(items, history), nil
}

func (s *orderService) enqueue(taskType string, payload interface{}, queue string) {
	if s.asynq == nil {
		return
	}
	task, err := utils.MarshalTask(taskType, payload)
	if err != nil {
		logger.Error("failed to build task", err)
		return
	}
	if _, err := s.asynq.Enqueue(task, asynq.Queue(queue)); err != nil {
		logger.Error("failed to enqueue "+taskType, err)
	}
}
