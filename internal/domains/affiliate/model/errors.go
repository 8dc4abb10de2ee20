package model

import "errors"

// =====================================================
// CUSTOM ERROR CODES
// =====================================================
const (
	ErrCodeAffiliateNotFound = "AFF001"
	ErrCodeAffiliateInactive = "AFF002"
)

// =====================================================
// ERROR DEFINITIONS
// =====================================================
var (
	ErrAffiliateNotFound = errors.New("affiliate not found")
	ErrAffiliateInactive = errors.New("affiliate is not active")
)

type AffiliateError struct {
	Code    string
	Message string
	Err     error
}

func (e *AffiliateError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AffiliateError) Unwrap() error {
	return e.Err
}

func NewAffiliateError(code, message string, err error) *AffiliateError {
	return &AffiliateError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
