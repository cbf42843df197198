package ports

import (
	"context"

	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
)

// InventoryStore owns product stock. Reserve must be a single conditional
// update at the storage layer: decrement iff stock >= qty.
type InventoryStore interface {
	// Reserve returns *domain.OutOfStockError carrying the stock that was
	// available when the decrement was refused.
	Reserve(ctx context.Context, productID string, qty int) error
	// Restock unconditionally adds qty back.
	Restock(ctx context.Context, productID string, qty int) error
	// FindProducts loads the given products in one read. Unknown ids are
	// omitted from the result.
	FindProducts(ctx context.Context, ids []string) ([]domain.Product, error)
}

// Transactor runs fn inside a multi-document transaction. Store calls made
// with the ctx passed to fn join the transaction. Implementations return
// domain.ErrTransactionsUnsupported when the store cannot start one.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
