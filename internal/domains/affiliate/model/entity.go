package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Affiliate is a partner whose coupon sales accrue commission.
type Affiliate struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Name  string    `json:"name" db:"name"`
	Email *string   `json:"email" db:"email"`
	Phone *string   `json:"phone" db:"phone"`

	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Stats is the per-currency running total, accrued inside the order
// transaction. Recompute rebuilds these rows from usage records; the request
// path only ever increments them.
type Stats struct {
	AffiliateID     uuid.UUID       `json:"affiliate_id" db:"affiliate_id"`
	Currency        string          `json:"currency" db:"currency"`
	TotalSales      decimal.Decimal `json:"total_sales" db:"total_sales"`
	TotalCommission decimal.Decimal `json:"total_commission" db:"total_commission"`
	TotalOrders     int             `json:"total_orders" db:"total_orders"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// StatsDrift reports one stats row the reconciliation had to repair.
type StatsDrift struct {
	AffiliateID uuid.UUID `json:"affiliate_id"`
	Currency    string    `json:"currency"`
	Field       string    `json:"field"`
	Stored      string    `json:"stored"`
	Recomputed  string    `json:"recomputed"`
}
