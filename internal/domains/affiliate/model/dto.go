package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

type CreateAffiliateRequest struct {
	Name     string  `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	IsActive bool    `json:"is_active"`
}

func (r CreateAffiliateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(2, 255)),
		validation.Field(&r.Email, validation.NilOrNotEmpty, is.Email),
	)
}

type UpdateAffiliateRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	IsActive *bool   `json:"is_active"`
}

func (r UpdateAffiliateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(2, 255)),
		validation.Field(&r.Email, validation.NilOrNotEmpty, is.Email),
	)
}

// AffiliateDetail is the admin view: the affiliate with its per-currency
// running totals.
type AffiliateDetail struct {
	Affiliate Affiliate `json:"affiliate"`
	Stats     []Stats   `json:"stats"`
}

// RecomputeResult reports what the reconciliation repaired.
type RecomputeResult struct {
	AffiliateID string       `json:"affiliate_id"`
	Drifts      []StatsDrift `json:"drifts"`
}
