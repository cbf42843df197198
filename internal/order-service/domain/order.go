package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID          string
	Items       []OrderItem
	Amounts     Amounts
	Payment     Payment
	Status      OrderStatus
	User        *Customer
	Idempotency *IdempotencyMetadata
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderItem is the price snapshot taken when the order was placed.
type OrderItem struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

type Amounts struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

type Payment struct {
	Method     PaymentMethod
	ProviderID string
	Status     PaymentStatus
}

type Customer struct {
	Email string `json:"email,omitempty" validate:"omitempty,max=254"`
	Name  string `json:"name,omitempty" validate:"omitempty,max=200"`
}

type IdempotencyMetadata struct {
	Key       string
	CreatedAt time.Time
}

// Clone returns a deep copy so callers can hand orders across goroutines
// without sharing the items slice.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Items = append([]OrderItem(nil), o.Items...)
	if o.User != nil {
		u := *o.User
		cp.User = &u
	}
	if o.Idempotency != nil {
		m := *o.Idempotency
		cp.Idempotency = &m
	}
	return &cp
}

// Reservations lists the stock held by the order, one entry per item.
func (o *Order) Reservations() []StockItem {
	out := make([]StockItem, len(o.Items))
	for i, it := range o.Items {
		out[i] = StockItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return out
}

type StockItem struct {
	ProductID string
	Quantity  int
}

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusCancelled OrderStatus = "cancelled"
	StatusFailed    OrderStatus = "failed"
)

// CanTransitionTo reports whether the status machine allows moving to next.
// Only pending orders move; paid, cancelled and failed are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s != StatusPending {
		return false
	}
	switch next {
	case StatusPaid, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentStripe   PaymentMethod = "stripe"
	PaymentYape     PaymentMethod = "yape"
	PaymentPlin     PaymentMethod = "plin"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentCOD      PaymentMethod = "cod"

	DefaultPaymentMethod = PaymentCOD
)

// RequiresGateway reports whether the method is settled through the
// external payment gateway.
func (m PaymentMethod) RequiresGateway() bool {
	return m == PaymentStripe
}

type PaymentStatus string

const (
	PaymentRequiresPayment PaymentStatus = "requires_payment"
	PaymentSucceeded       PaymentStatus = "succeeded"
	PaymentFailed          PaymentStatus = "failed"
)

// OrderPatch is a partial update. Nil fields are left untouched. When
// ExpectStatus is set the update only applies if the stored status matches.
type OrderPatch struct {
	ExpectStatus  *OrderStatus
	Status        *OrderStatus
	PaymentStatus *PaymentStatus
	ProviderID    *string
}

// ListFilter narrows order listings. Empty Email lists every order.
type ListFilter struct {
	Email string
	Limit int
}
