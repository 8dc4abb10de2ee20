package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================================
// PRODUCT KIND
// ============================================================================

// ProductKind determines the fulfillment flow an order for the product takes.
type ProductKind string

const (
	// KindDigitalCode is fulfilled automatically from the code pool.
	KindDigitalCode ProductKind = "digital_code"
	// KindExistingAccount is fulfilled manually by an admin handing over
	// credentials of a pre-provisioned account.
	KindExistingAccount ProductKind = "existing_account"
	// KindNewAccount is fulfilled manually by an admin creating an account
	// with the customer's own contact details.
	KindNewAccount ProductKind = "new_account"
)

func (k ProductKind) IsValid() bool {
	switch k {
	case KindDigitalCode, KindExistingAccount, KindNewAccount:
		return true
	}
	return false
}

func (k ProductKind) String() string {
	return string(k)
}

// ============================================================================
// CODE STATE
// ============================================================================

// CodeState is the lifecycle state of a pooled code. Transitions are forward
// only: available → reserved → revealed. Release (reserved → available) is the
// single sanctioned rollback, used when an order is cancelled or refunded
// before reveal.
type CodeState string

const (
	CodeStateAvailable CodeState = "available"
	CodeStateReserved  CodeState = "reserved"
	CodeStateRevealed  CodeState = "revealed"
)

func (s CodeState) String() string {
	return string(s)
}

// ============================================================================
// ENTITIES
// ============================================================================

// Product is a sellable digital good. JOD and USD prices are independent
// quotes set at write time, never derived from each other via FX.
type Product struct {
	ID   uuid.UUID   `json:"id" db:"id"`
	Kind ProductKind `json:"kind" db:"kind"`
	Name string      `json:"name" db:"name"`
	Slug string      `json:"slug" db:"slug"`

	Description *string `json:"description" db:"description"`
	ImageURL    *string `json:"image_url" db:"image_url"`

	// Pricing (both currencies quoted independently)
	PriceJOD         decimal.Decimal  `json:"price_jod" db:"price_jod"`
	PriceUSD         decimal.Decimal  `json:"price_usd" db:"price_usd"`
	OriginalPriceJOD *decimal.Decimal `json:"original_price_jod" db:"original_price_jod"`
	OriginalPriceUSD *decimal.Decimal `json:"original_price_usd" db:"original_price_usd"`

	// StockCount is a denormalized counter over available pool codes. It is
	// meaningful for digital_code products only; account kinds carry -1
	// (unlimited, fulfilled manually).
	StockCount  int  `json:"stock_count" db:"stock_count"`
	HasVariants bool `json:"has_variants" db:"has_variants"`

	// Capability flags: which customer details the checkout must collect
	// for account-kind fulfillment.
	RequiresEmail    bool `json:"requires_email" db:"requires_email"`
	RequiresPassword bool `json:"requires_password" db:"requires_password"`
	RequiresPhone    bool `json:"requires_phone" db:"requires_phone"`

	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Variant is a denomination of a product (e.g. $10 / $25 / $50 card) with its
// own prices and its own slice of the code pool.
type Variant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Name      string    `json:"name" db:"name"`
	SKU       string    `json:"sku" db:"sku"`

	PriceJOD decimal.Decimal `json:"price_jod" db:"price_jod"`
	PriceUSD decimal.Decimal `json:"price_usd" db:"price_usd"`

	StockCount int       `json:"stock_count" db:"stock_count"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Code is one pooled redemption code. The payload is stored encrypted at rest
// (pgcrypto) and only decrypted on reveal; it is never listed in bulk reads.
type Code struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	ProductID uuid.UUID  `json:"product_id" db:"product_id"`
	VariantID *uuid.UUID `json:"variant_id" db:"variant_id"`

	// Payload is populated only by reveal paths; zero elsewhere.
	Payload string    `json:"payload,omitempty" db:"-"`
	State   CodeState `json:"state" db:"state"`

	OrderID    *uuid.UUID `json:"order_id" db:"order_id"`
	RevealedAt *time.Time `json:"revealed_at" db:"revealed_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// StockDrift is one product or variant whose stock_count disagreed with the
// recount of available pool codes.
type StockDrift struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Stored    int        `json:"stored"`
	Counted   int        `json:"counted"`
}
