package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalogModel "digistore-backend/internal/domains/catalog/model"
)

// ============================================================================
// REQUESTS
// ============================================================================

// OrderLine is one requested item; prices are never accepted from the client.
type OrderLine struct {
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id"`
	Quantity  int     `json:"quantity"`
}

func (l OrderLine) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.ProductID, validation.Required, is.UUID),
		validation.Field(&l.VariantID, validation.NilOrNotEmpty, is.UUID),
		validation.Field(&l.Quantity, validation.Required, validation.Min(1), validation.Max(100)),
	)
}

type CreateOrderRequest struct {
	Items      []OrderLine `json:"items"`
	Currency   string      `json:"currency"`
	CouponCode *string     `json:"coupon_code"`

	// Contact details for account-kind fulfillment; which ones are mandatory
	// depends on the ordered product's capability flags.
	ContactEmail    *string `json:"contact_email"`
	ContactPhone    *string `json:"contact_phone"`
	ContactPassword *string `json:"contact_password"`
	CustomerNote    *string `json:"customer_note"`
}

func (r CreateOrderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Items, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.Currency, validation.Required, validation.In("JOD", "USD")),
		validation.Field(&r.CouponCode, validation.NilOrNotEmpty, validation.Length(1, 64)),
		validation.Field(&r.ContactEmail, validation.NilOrNotEmpty, is.Email),
		validation.Field(&r.ContactPassword, validation.NilOrNotEmpty, validation.Length(6, 128)),
		validation.Field(&r.CustomerNote, validation.Length(0, 500)),
	)
}

type UpdateStatusRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

func (r UpdateStatusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required),
		validation.Field(&r.Notes, validation.Length(0, 1000)),
	)
}

// DeliverRequest carries the credentials for manual account fulfillment.
type DeliverRequest struct {
	DeliveryData DeliveryData `json:"delivery_data"`
	Notes        *string      `json:"notes"`
}

func (r DeliverRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DeliveryData, validation.Required),
	)
}

type OpenDisputeRequest struct {
	Reason string `json:"reason"`
}

func (r OpenDisputeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Reason, validation.Required, validation.Length(10, 1000)),
	)
}

type ResolveDisputeRequest struct {
	Decision string  `json:"decision"`
	Notes    *string `json:"notes"`
}

func (r ResolveDisputeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Decision, validation.Required, validation.In(
			string(DecisionRefund), string(DecisionRedeliver), string(DecisionReject))),
		validation.Field(&r.Notes, validation.Length(0, 1000)),
	)
}

// SearchQuery narrows the admin order listing.
type SearchQuery struct {
	UserID   *uuid.UUID `form:"user_id"`
	Status   *string    `form:"status"`
	DateFrom *time.Time `form:"date_from"`
	DateTo   *time.Time `form:"date_to"`
	Page     int        `form:"page"`
	Limit    int        `form:"limit"`
}

// ============================================================================
// RESPONSES
// ============================================================================

type OrderResponse struct {
	ID          uuid.UUID                `json:"id"`
	OrderNumber string                   `json:"order_number"`
	UserID      uuid.UUID                `json:"user_id"`
	ProductKind catalogModel.ProductKind `json:"product_kind"`
	Currency    string                   `json:"currency"`

	Items []OrderItem `json:"items"`

	TotalJOD       decimal.Decimal `json:"total_jod"`
	TotalUSD       decimal.Decimal `json:"total_usd"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalTotal     decimal.Decimal `json:"final_total"`

	Status        OrderStatus     `json:"status"`
	StatusHistory []StatusHistory `json:"status_history,omitempty"`

	DeliveryData    DeliveryData `json:"delivery_data,omitempty"`
	RevealedAt      *time.Time   `json:"revealed_at,omitempty"`
	DeliveredAt     *time.Time   `json:"delivered_at,omitempty"`
	DisputeReason   *string      `json:"dispute_reason,omitempty"`
	DisputeOpenedAt *time.Time   `json:"dispute_opened_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (o *Order) ToResponse(items []OrderItem, history []StatusHistory) *OrderResponse {
	return &OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		ProductKind:     o.ProductKind,
		Currency:        o.Currency,
		Items:           items,
		TotalJOD:        o.TotalJOD,
		TotalUSD:        o.TotalUSD,
		Subtotal:        o.Subtotal,
		DiscountAmount:  o.DiscountAmount,
		FinalTotal:      o.FinalTotal,
		Status:          o.Status,
		StatusHistory:   history,
		DeliveryData:    o.DeliveryData,
		RevealedAt:      o.RevealedAt,
		DeliveredAt:     o.DeliveredAt,
		DisputeReason:   o.DisputeReason,
		DisputeOpenedAt: o.DisputeOpenedAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// OrderListResponse is the slim row for list views.
type OrderListResponse struct {
	ID          uuid.UUID                `json:"id"`
	OrderNumber string                   `json:"order_number"`
	ProductKind catalogModel.ProductKind `json:"product_kind"`
	Currency    string                   `json:"currency"`
	FinalTotal  decimal.Decimal          `json:"final_total"`
	Status      OrderStatus              `json:"status"`
	ItemCount   int                      `json:"item_count"`
	CreatedAt   time.Time                `json:"created_at"`
}

// RevealResponse returns the order's codes exactly once revealed.
type RevealResponse struct {
	OrderID    uuid.UUID  `json:"order_id"`
	RevealedAt *time.Time `json:"revealed_at"`
	Codes      []string   `json:"codes"`
}
