package model

import (
	"time"

	"github.com/google/uuid"
)

// =====================================================
// AUDIT ACTION CONSTANTS
// =====================================================
const (
	ActionOrderCreated    = "order.created"
	ActionOrderStatus     = "order.status_changed"
	ActionOrderRevealed   = "order.codes_revealed"
	ActionOrderDelivered  = "order.delivered"
	ActionDisputeOpened   = "order.dispute_opened"
	ActionDisputeResolved = "order.dispute_resolved"
	ActionWalletCredit    = "wallet.credited"
	ActionWalletDebit     = "wallet.debited"
	ActionCouponConsumed  = "coupon.consumed"
	ActionCouponChanged   = "coupon.changed"
	ActionStockReconciled = "catalog.stock_reconciled"
	ActionCodesAdded      = "catalog.codes_added"
	ActionAffiliateAccrue = "affiliate.commission_accrued"
)

// ActorRole values recorded alongside the actor id.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
	RoleSystem   = "system"
)

/// Entry is one immutable audit record. Rows are append-only: no update or
// delete path exists anywhere in the repository.
type Entry struct {
	ID         uuid.UUID              `json:"id"`
	ActorID    *uuid.UUID             `json:"actor_id,omitempty"`
	ActorRole  string                 `json:"actor_role"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   uuid.UUID              `json:"entity_id"`
	Before     map[string]interface{} `json:"before,omitempty"`
	After      map[string]interface{} `json:"after,omitempty"`
	IPAddress  *string                `json:"ip_address,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}
