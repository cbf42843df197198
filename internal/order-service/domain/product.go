package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string
	Slug        string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Published   bool
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Orderable reports whether the product can be placed in a new order.
func (p Product) Orderable() bool {
	return p.Published && p.DeletedAt == nil
}
