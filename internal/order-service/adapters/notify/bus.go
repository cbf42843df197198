package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jcmexdev/storefront-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
)

var _ ports.Notifier = (*Bus)(nil)

const subscriberBuffer = 32

// Bus is an in-process broadcaster. Publish never blocks: a subscriber whose
// buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]chan Event
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{subs: make(map[string]chan Event), logger: logger}
}

// Subscribe registers a listener. The returned func unsubscribes and closes
// the channel; it is safe to call more than once.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.logger.Warn("dropping event for slow subscriber", "subscriber", id, "type", e.Type)
		}
	}
}

func (b *Bus) NotifyProductChanged(_ context.Context, event domain.ProductChanged) error {
	return b.publish(domain.EventProductChanged, event)
}

func (b *Bus) NotifyOrderUpdated(_ context.Context, event domain.OrderUpdated) error {
	return b.publish(domain.EventOrderUpdated, event)
}

func (b *Bus) publish(eventType string, payload any) error {
	e, err := NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	b.Publish(e)
	return nil
}
