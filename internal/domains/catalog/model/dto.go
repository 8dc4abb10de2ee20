package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// ============================================================================
// ADMIN REQUESTS
// ============================================================================

// CreateProductRequest carries both currency quotes; neither is derived from
// the other, the admin sets each explicitly.
type CreateProductRequest struct {
	Kind        string  `json:"kind"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`

	PriceJOD         string  `json:"price_jod"`
	PriceUSD         string  `json:"price_usd"`
	OriginalPriceJOD *string `json:"original_price_jod"`
	OriginalPriceUSD *string `json:"original_price_usd"`

	RequiresEmail    bool `json:"requires_email"`
	RequiresPassword bool `json:"requires_password"`
	RequiresPhone    bool `json:"requires_phone"`
	IsActive         bool `json:"is_active"`
}

func (r CreateProductRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Kind, validation.Required,
			validation.In(KindDigitalCode.String(), KindExistingAccount.String(), KindNewAccount.String())),
		validation.Field(&r.Name, validation.Required, validation.Length(2, 255)),
		validation.Field(&r.Slug, validation.Length(2, 255)),
		validation.Field(&r.PriceJOD, validation.Required),
		validation.Field(&r.PriceUSD, validation.Required),
	)
}

// UpdateProductRequest uses pointers so the handler can tell "not sent" from
// "set to zero value".
type UpdateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`

	PriceJOD         *string `json:"price_jod"`
	PriceUSD         *string `json:"price_usd"`
	OriginalPriceJOD *string `json:"original_price_jod"`
	OriginalPriceUSD *string `json:"original_price_usd"`

	RequiresEmail    *bool `json:"requires_email"`
	RequiresPassword *bool `json:"requires_password"`
	RequiresPhone    *bool `json:"requires_phone"`
	IsActive         *bool `json:"is_active"`
}

func (r UpdateProductRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(2, 255)),
	)
}

type CreateVariantRequest struct {
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	PriceJOD string `json:"price_jod"`
	PriceUSD string `json:"price_usd"`
	IsActive bool   `json:"is_active"`
}

func (r CreateVariantRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.SKU, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.PriceJOD, validation.Required),
		validation.Field(&r.PriceUSD, validation.Required),
	)
}

// AddCodesRequest is the admin bulk code upload. Codes arrive as a plain list
// of strings in the JSON body.
type AddCodesRequest struct {
	VariantID *uuid.UUID `json:"variant_id"`
	Codes     []string   `json:"codes"`
}

func (r AddCodesRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Codes, validation.Required, validation.Length(1, 1000),
			validation.Each(validation.Required, validation.Length(1, 2048))),
	)
}

// ============================================================================
// QUERY / RESPONSES
// ============================================================================

// ListFilter narrows the public product listing.
type ListFilter struct {
	Kind       string
	Search     string
	OnlyActive bool
}

// ProductDetail is the public product view, with variants inlined.
type ProductDetail struct {
	Product  Product   `json:"product"`
	Variants []Variant `json:"variants,omitempty"`
}

// AddCodesResult reports what a bulk upload changed.
type AddCodesResult struct {
	Added      int `json:"added"`
	StockCount int `json:"stock_count"`
}

// ReconcileResult reports the drifts a stock reconciliation found and fixed.
type ReconcileResult struct {
	Checked int          `json:"checked"`
	Drifts  []StockDrift `json:"drifts"`
}
