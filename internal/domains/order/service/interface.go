package service

import (
	"context"

	"github.com/google/uuid"

	"digistore-backend/internal/domains/order/model"
)

type ServiceInterface interface {
	// ============================================
	// STOREFRONT
	// ============================================

	// CreateOrder runs the whole checkout in one transaction: price
	// snapshot, code reservation, coupon consumption, affiliate accrual and
	// wallet debit commit together or not at all.
	CreateOrder(ctx context.Context, userID uuid.UUID, req model.CreateOrderRequest) (*model.OrderResponse, error)

	// RevealCodes discloses the order's codes to its owner. Idempotent: a
	// second call returns the same codes and records nothing new.
	RevealCodes(ctx context.Context, userID, orderID uuid.UUID) (*model.RevealResponse, error)

	GetOrder(ctx context.Context, actorID uuid.UUID, isAdmin bool, orderID uuid.UUID) (*model.OrderResponse, error)
	ListOrders(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.OrderListResponse, int, error)

	OpenDispute(ctx context.Context, userID, orderID uuid.UUID, req model.OpenDisputeRequest) (*model.OrderResponse, error)

	// ============================================
	// ADMIN
	// ============================================
	SearchOrders(ctx context.Context, query model.SearchQuery) ([]model.OrderListResponse, int, error)

	// UpdateStatus applies a generic legal transition. Reveal, delivery and
	// dispute moves go through their dedicated operations.
	UpdateStatus(ctx context.Context, adminID, orderID uuid.UUID, req model.UpdateStatusRequest) (*model.OrderResponse, error)

	// Deliver is the manual account-kind fulfillment.
	Deliver(ctx context.Context, adminID, orderID uuid.UUID, req model.DeliverRequest) (*model.OrderResponse, error)

	ResolveDispute(ctx context.Context, adminID, orderID uuid.UUID, req model.ResolveDisputeRequest) (*model.OrderResponse, error)
}
