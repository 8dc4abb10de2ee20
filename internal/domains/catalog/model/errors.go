package model

import "errors"

// =====================================================
// CUSTOM ERROR CODES
// =====================================================
const (
	ErrCodeProductNotFound   = "CAT001"
	ErrCodeVariantNotFound   = "CAT002"
	ErrCodeInsufficientStock = "CAT003"
	ErrCodeSlugExists        = "CAT004"
	ErrCodeSKUExists         = "CAT005"
	ErrCodeInvalidKind       = "CAT006"
	ErrCodeKindMismatch      = "CAT007"
	ErrCodeProductInactive   = "CAT008"
)

// =====================================================
// ERROR DEFINITIONS
// =====================================================
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrVariantNotFound   = errors.New("variant not found")
	ErrInsufficientStock = errors.New("not enough codes in stock")
	ErrSlugExists        = errors.New("slug already exists")
	ErrSKUExists         = errors.New("sku already exists")
	ErrInvalidKind       = errors.New("invalid product kind")
	ErrKindMismatch      = errors.New("operation not valid for this product kind")
	ErrProductInactive   = errors.New("product is not active")
)

type CatalogError struct {
	Code    string
	Message string
	Err     error
}

func (e *CatalogError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

func NewCatalogError(code, message string, err error) *CatalogError {
	return &CatalogError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
