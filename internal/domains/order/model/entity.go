package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalogModel "digistore-backend/internal/domains/catalog/model"
)

// ============================================================================
// ORDER STATUS
// ============================================================================

type OrderStatus string

const (
	StatusPendingPayment OrderStatus = "pending_payment"
	StatusProcessing     OrderStatus = "processing"
	StatusCompleted      OrderStatus = "completed"
	StatusRevealed       OrderStatus = "revealed"
	StatusAwaitingAdmin  OrderStatus = "awaiting_admin"
	StatusDelivered      OrderStatus = "delivered"
	StatusPaymentFailed  OrderStatus = "payment_failed"
	StatusCancelled      OrderStatus = "cancelled"
	StatusDisputed       OrderStatus = "disputed"
	StatusRefunded       OrderStatus = "refunded"
)

func (s OrderStatus) IsValid() bool {
	_, ok := legalTransitions[s]
	return ok
}

func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return len(legalTransitions[s]) == 0
}

// legalTransitions is the full state machine. Exits from disputed carry the
// resolution outcomes: refund, or restoring the pre-dispute state on reject
// and redeliver.
var legalTransitions = map[OrderStatus][]OrderStatus{
	StatusPendingPayment: {StatusProcessing, StatusCancelled, StatusRefunded},
	StatusProcessing:     {StatusCompleted, StatusAwaitingAdmin, StatusPaymentFailed, StatusCancelled, StatusRefunded},
	StatusCompleted:      {StatusRevealed, StatusDisputed, StatusRefunded},
	StatusRevealed:       {StatusDisputed},
	StatusAwaitingAdmin:  {StatusDelivered, StatusDisputed, StatusRefunded},
	StatusDelivered:      {StatusDisputed},
	StatusDisputed:       {StatusRefunded, StatusRevealed, StatusDelivered, StatusCompleted, StatusAwaitingAdmin},
	StatusPaymentFailed:  {StatusProcessing, StatusCancelled},
	StatusCancelled:      {},
	StatusRefunded:       {},
}

// CanTransition reports whether from → to is a legal move. Illegal moves are
// rejected, never coerced.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ============================================================================
// DISPUTE RESOLUTION
// ============================================================================

type DisputeDecision string

const (
	DecisionRefund    DisputeDecision = "refund"
	DecisionRedeliver DisputeDecision = "redeliver"
	DecisionReject    DisputeDecision = "reject"
)

func (d DisputeDecision) IsValid() bool {
	switch d {
	case DecisionRefund, DecisionRedeliver, DecisionReject:
		return true
	}
	return false
}

// ============================================================================
// DELIVERY DATA (JSONB)
// ============================================================================

// DeliveryData holds the credentials an admin hands over for account-kind
// fulfillment.
type DeliveryData map[string]interface{}

func (d DeliveryData) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func (d *DeliveryData) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return ErrInvalidDeliveryData
	}
	return json.Unmarshal(bytes, d)
}

// ============================================================================
// ENTITIES
// ============================================================================

// Order is one purchase. All monetary fields are frozen at creation; catalog
// price edits never touch an existing order. The settlement currency picks
// which of the two frozen totals the wallet was debited in.
type Order struct {
	ID          uuid.UUID `json:"id" db:"id"`
	OrderNumber string    `json:"order_number" db:"order_number"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`

	// One kind per order; mixed carts are rejected at creation.
	ProductKind catalogModel.ProductKind `json:"product_kind" db:"product_kind"`
	Currency    string                   `json:"currency" db:"currency"`

	// Frozen pricing. TotalJOD/TotalUSD are the undiscounted totals in both
	// independent quotes; Subtotal, DiscountAmount and FinalTotal are in the
	// settlement currency.
	TotalJOD       decimal.Decimal `json:"total_jod" db:"total_jod"`
	TotalUSD       decimal.Decimal `json:"total_usd" db:"total_usd"`
	Subtotal       decimal.Decimal `json:"subtotal" db:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	FinalTotal     decimal.Decimal `json:"final_total" db:"final_total"`

	// Coupon / affiliate snapshot
	CouponID      *uuid.UUID      `json:"coupon_id" db:"coupon_id"`
	AffiliateID   *uuid.UUID      `json:"affiliate_id" db:"affiliate_id"`
	CommissionDue decimal.Decimal `json:"commission_due" db:"commission_due"`

	Status OrderStatus `json:"status" db:"status"`
	// PreviousStatus is set while disputed so reject can restore it.
	PreviousStatus *string `json:"previous_status" db:"previous_status"`

	// Contact details for account-kind fulfillment. The password never leaves
	// through API responses; admins read it from the fulfillment view only.
	ContactEmail    *string `json:"contact_email" db:"contact_email"`
	ContactPhone    *string `json:"contact_phone" db:"contact_phone"`
	ContactPassword *string `json:"-" db:"contact_password"`
	CustomerNote    *string `json:"customer_note" db:"customer_note"`

	// Fulfillment
	DeliveryData DeliveryData `json:"delivery_data,omitempty" db:"delivery_data"`
	RevealedAt   *time.Time   `json:"revealed_at" db:"revealed_at"`
	DeliveredAt  *time.Time   `json:"delivered_at" db:"delivered_at"`

	// Dispute
	DisputeReason   *string    `json:"dispute_reason" db:"dispute_reason"`
	DisputeOpenedAt *time.Time `json:"dispute_opened_at" db:"dispute_opened_at"`

	Version   int       `json:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// OrderItem is one frozen line. Both currency quotes are snapshotted so the
// order renders identically in either currency forever.
type OrderItem struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	OrderID   uuid.UUID  `json:"order_id" db:"order_id"`
	ProductID uuid.UUID  `json:"product_id" db:"product_id"`
	VariantID *uuid.UUID `json:"variant_id" db:"variant_id"`

	// Snapshot data
	ProductName string  `json:"product_name" db:"product_name"`
	ProductSlug string  `json:"product_slug" db:"product_slug"`
	VariantName *string `json:"variant_name" db:"variant_name"`

	Quantity     int             `json:"quantity" db:"quantity"`
	UnitPriceJOD decimal.Decimal `json:"unit_price_jod" db:"unit_price_jod"`
	UnitPriceUSD decimal.Decimal `json:"unit_price_usd" db:"unit_price_usd"`
	LineTotalJOD decimal.Decimal `json:"line_total_jod" db:"line_total_jod"`
	LineTotalUSD decimal.Decimal `json:"line_total_usd" db:"line_total_usd"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// StatusHistory tracks every transition an order has made.
type StatusHistory struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	OrderID    uuid.UUID  `json:"order_id" db:"order_id"`
	FromStatus *string    `json:"from_status" db:"from_status"`
	ToStatus   string     `json:"to_status" db:"to_status"`
	ChangedBy  *uuid.UUID `json:"changed_by" db:"changed_by"`
	Notes      *string    `json:"notes" db:"notes"`
	ChangedAt  time.Time  `json:"changed_at" db:"changed_at"`
}
