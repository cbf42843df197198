package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jcmexdev/storefront-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
)

// ledger answers "was this key already used within the window". The key
// lives on the order document itself, so there is nothing to insert; the
// optional claimer closes the gap between lookup and write for concurrent
// requests carrying the same key.
type ledger struct {
	orders  ports.OrderRepository
	claimer ports.IdempotencyClaimer
	window  time.Duration
	wait    time.Duration
	poll    time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// FindRecent returns the order created with key inside the window, or nil.
func (l *ledger) FindRecent(ctx context.Context, key string) (*domain.Order, error) {
	order, err := l.orders.FindByIdempotencyKey(ctx, key, l.now().Add(-l.window))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "idempotency lookup", Err: err}
	}
	return order, nil
}

// Acquire claims key for this request. If another request holds it, Acquire
// waits for that request's order to appear and returns it. The returned
// release func must be called when this request fails to create an order.
func (l *ledger) Acquire(ctx context.Context, key string) (release func(), existing *domain.Order, err error) {
	noop := func() {}
	if l.claimer == nil {
		return noop, nil, nil
	}

	claimed, err := l.claimer.Claim(ctx, key, l.window)
	if err != nil {
		// Degrade to lookup-only idempotency rather than refusing orders.
		l.logger.WarnContext(ctx, "idempotency claim failed, continuing without claim", "error", err)
		return noop, nil, nil
	}
	if claimed {
		return func() {
			if err := l.claimer.Release(context.WithoutCancel(ctx), key); err != nil {
				l.logger.WarnContext(ctx, "idempotency claim release failed", "error", err)
			}
		}, nil, nil
	}

	order, err := l.awaitOrder(ctx, key)
	if err != nil {
		return noop, nil, err
	}
	return noop, order, nil
}

func (l *ledger) awaitOrder(ctx context.Context, key string) (*domain.Order, error) {
	deadline := time.NewTimer(l.wait)
	defer deadline.Stop()
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		order, err := l.FindRecent(ctx, key)
		if err != nil || order != nil {
			return order, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, domain.ErrIdempotencyInFlight
		case <-ticker.C:
		}
	}
}
