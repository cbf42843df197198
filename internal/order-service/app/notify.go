package app

import (
	"context"
	"sync"
	"time"

	"github.com/jcmexdev/storefront-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
	"github.com/jcmexdev/storefront-orders/internal/pkg/telemetry"
)

const (
	defaultNotifyTimeout   = 2 * time.Second
	defaultNotifyInFlight  = 256
	notifierQueueSinkLabel = "queue"
)

// announcer delivers change events off the request path. Each delivery runs
// in its own goroutine under a fresh deadline; at most limit deliveries are
// pending at once and anything beyond that is dropped.
type announcer struct {
	notifier ports.Notifier
	timeout  time.Duration
	slots    chan struct{}
	wg       sync.WaitGroup
}

func newAnnouncer(notifier ports.Notifier, timeout time.Duration, limit int) *announcer {
	return &announcer{
		notifier: notifier,
		timeout:  timeout,
		slots:    make(chan struct{}, limit),
	}
}

// dispatch runs send in the background. The request's values (trace span,
// request id) are kept but its cancellation and deadline are not.
func (a *announcer) dispatch(ctx context.Context, send func(ctx context.Context, n ports.Notifier)) bool {
	select {
	case a.slots <- struct{}{}:
	default:
		telemetry.NotifierFailures.WithLabelValues(notifierQueueSinkLabel).Inc()
		return false
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() { <-a.slots }()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		send(ctx, a.notifier)
	}()
	return true
}

func (a *announcer) flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush waits for pending change notifications, or until ctx is done.
func (s *OrderService) Flush(ctx context.Context) error {
	if s.announcer == nil {
		return nil
	}
	return s.announcer.flush(ctx)
}

// announceStock emits a product.changed event per product. The current
// stock is read back for the payload; if that read fails the events carry
// the id only. Nothing here can fail or delay the caller.
func (s *OrderService) announceStock(ctx context.Context, ids []string) {
	if s.announcer == nil || len(ids) == 0 {
		return
	}
	ids = append([]string(nil), ids...)

	queued := s.announcer.dispatch(ctx, func(ctx context.Context, n ports.Notifier) {
		byID := make(map[string]domain.Product, len(ids))
		products, err := s.deps.Inventory.FindProducts(ctx, ids)
		if err != nil {
			s.logger.WarnContext(ctx, "could not read back stock for change events", "error", err)
		}
		for _, p := range products {
			byID[p.ID] = p
		}

		for _, id := range ids {
			event := domain.ProductChanged{
				Action:  domain.ActionUpdate,
				Product: domain.ProductSnapshot{ID: id},
			}
			if p, ok := byID[id]; ok {
				event = domain.NewProductChanged(p)
			}
			if err := n.NotifyProductChanged(ctx, event); err != nil {
				s.logger.WarnContext(ctx, "product change notification failed", "product_id", id, "error", err)
			}
		}
	})
	if !queued {
		s.logger.WarnContext(ctx, "too many pending notifications, dropping product change events", "products", len(ids))
	}
}

func (s *OrderService) announceOrder(ctx context.Context, order *domain.Order) {
	if s.announcer == nil {
		return
	}
	event := domain.OrderUpdated{
		ID:            order.ID,
		Status:        order.Status,
		PaymentStatus: order.Payment.Status,
	}

	queued := s.announcer.dispatch(ctx, func(ctx context.Context, n ports.Notifier) {
		if err := n.NotifyOrderUpdated(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "order update notification failed", "order_id", event.ID, "error", err)
		}
	})
	if !queued {
		s.logger.WarnContext(ctx, "too many pending notifications, dropping order update", "order_id", order.ID)
	}
}
