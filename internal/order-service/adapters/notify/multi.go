package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/jcmexdev/storefront-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
	"github.com/jcmexdev/storefront-orders/internal/pkg/telemetry"
)

var _ ports.Notifier = (*Multi)(nil)

type Sink struct {
	Name     string
	Notifier ports.Notifier
}

// Multi delivers every event to all sinks. One failing sink does not stop
// the others; the failures are joined.
type Multi struct {
	sinks []Sink
}

func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) NotifyProductChanged(ctx context.Context, event domain.ProductChanged) error {
	return m.each(func(n ports.Notifier) error { return n.NotifyProductChanged(ctx, event) })
}

func (m *Multi) NotifyOrderUpdated(ctx context.Context, event domain.OrderUpdated) error {
	return m.each(func(n ports.Notifier) error { return n.NotifyOrderUpdated(ctx, event) })
}

func (m *Multi) each(send func(ports.Notifier) error) error {
	var errs []error
	for _, s := range m.sinks {
		if err := send(s.Notifier); err != nil {
			telemetry.NotifierFailures.WithLabelValues(s.Name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
