package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrTransactionsUnsupported is reported by a Transactor when the backing
	// store cannot run multi-document transactions.
	ErrTransactionsUnsupported = errors.New("store does not support multi-document transactions")

	// ErrStatusConflict is returned when a conditional status update finds the
	// order in a different status than expected.
	ErrStatusConflict = errors.New("order status changed concurrently")

	// ErrIdempotencyInFlight is returned when another request holding the same
	// idempotency key did not finish within the wait budget.
	ErrIdempotencyInFlight = errors.New("a request with this idempotency key is still in progress")

	ErrGatewayDisabled = errors.New("payment gateway is not configured")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed input. Fields identify the offending
// field or item, e.g. "items[1].qty".
type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: msg}}}
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ProductUnavailableError means a referenced product is missing, unpublished
// or soft-deleted.
type ProductUnavailableError struct {
	ProductID string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is not available", e.ProductID)
}

type OutOfStockError struct {
	ProductID string
	Available int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %s is out of stock (available: %d)", e.ProductID, e.Available)
}

// PersistenceError wraps a storage failure unrelated to business rules.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// GatewayError wraps a payment gateway failure. Order creation treats it as
// recoverable.
type GatewayError struct {
	Provider string
	Err      error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s: %v", e.Provider, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// IsBusinessError reports whether err is a rule violation that must reach
// the caller untouched.
func IsBusinessError(err error) bool {
	var (
		ve  *ValidationError
		pu  *ProductUnavailableError
		oos *OutOfStockError
	)
	return errors.As(err, &ve) || errors.As(err, &pu) || errors.As(err, &oos)
}
