package ports

import (
	"context"
	"time"

	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
)

type OrderRepository interface {
	// NextID returns a fresh identifier in the store's native format.
	NextID() string
	// Create inserts the order, assigning an ID when empty and stamping
	// CreatedAt/UpdatedAt.
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	// Update applies patch and returns the stored order. It returns
	// domain.ErrStatusConflict when patch.ExpectStatus does not match.
	Update(ctx context.Context, id string, patch domain.OrderPatch) (*domain.Order, error)
	// FindByIdempotencyKey returns the newest order carrying key whose key
	// timestamp is at or after since, or domain.ErrNotFound.
	FindByIdempotencyKey(ctx context.Context, key string, since time.Time) (*domain.Order, error)
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error)
}

// IdempotencyClaimer grants one in-flight owner per key for ttl.
type IdempotencyClaimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
