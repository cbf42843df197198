package ports

import (
	"context"

	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
)

// Notifier receives change events for downstream fan-out. Delivery is best
// effort; callers never fail on a notifier error.
type Notifier interface {
	NotifyProductChanged(ctx context.Context, event domain.ProductChanged) error
	NotifyOrderUpdated(ctx context.Context, event domain.OrderUpdated) error
}

type PaymentIntentRequest struct {
	OrderID        string
	AmountMinor    int64
	Currency       string
	IdempotencyKey string
}

type PaymentIntent struct {
	ProviderID   string
	ClientSecret string
}

type PaymentGateway interface {
	// Enabled is false when no gateway credentials are configured.
	Enabled() bool
	CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (PaymentIntent, error)
}
