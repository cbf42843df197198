package paymentservice

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jcmexdev/storefront-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
	"github.com/jcmexdev/storefront-orders/internal/pkg/telemetry"
)

var _ ports.PaymentGateway = (*BreakerGateway)(nil)

// BreakerGateway stops calling a failing gateway for a while so order
// placement does not wait on its timeout every time.
type BreakerGateway struct {
	next ports.PaymentGateway
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerGateway(name string, next ports.PaymentGateway, logger *slog.Logger) *BreakerGateway {
	if logger == nil {
		logger = slog.Default()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // Max requests allowed in half-open state
		Interval:    15 * time.Second, // Window to track failures
		Timeout:     30 * time.Second, // Time to wait before half-open
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			// Trip if 60% or more requests fail and at least 3 requests have been made
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(cbName string, from gobreaker.State, to gobreaker.State) {
			telemetry.CircuitBreakerState.WithLabelValues(cbName).Set(stateValue(to))
			logger.Info("circuit breaker state changed", "circuit", cbName, "from", from.String(), "to", to.String())
		},
	})
	telemetry.CircuitBreakerState.WithLabelValues(name).Set(0)

	return &BreakerGateway{next: next, cb: cb}
}

func (b *BreakerGateway) Enabled() bool { return b.next.Enabled() }

func (b *BreakerGateway) State() gobreaker.State { return b.cb.State() }

func (b *BreakerGateway) CreatePaymentIntent(ctx context.Context, req ports.PaymentIntentRequest) (ports.PaymentIntent, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.CreatePaymentIntent(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return ports.PaymentIntent{}, &domain.GatewayError{Provider: b.cb.Name(), Err: err}
		}
		return ports.PaymentIntent{}, err
	}
	return res.(ports.PaymentIntent), nil
}

// stateValue maps a breaker state to the gauge value: 0 closed, 1 open,
// 2 half-open.
func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
