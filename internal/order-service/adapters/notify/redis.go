package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/jcmexdev/storefront-orders/internal/order-service/core/ports"
	"github.com/jcmexdev/storefront-orders/internal/order-service/domain"
)

var _ ports.Notifier = (*RedisPublisher)(nil)

// RedisPublisher publishes events on a pub/sub channel so every instance can
// relay them to its own SSE clients.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
}

func NewRedisPublisher(client redis.UniversalClient, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) NotifyProductChanged(ctx context.Context, event domain.ProductChanged) error {
	return p.publish(ctx, domain.EventProductChanged, event)
}

func (p *RedisPublisher) NotifyOrderUpdated(ctx context.Context, event domain.OrderUpdated) error {
	return p.publish(ctx, domain.EventOrderUpdated, event)
}

func (p *RedisPublisher) publish(ctx context.Context, eventType string, payload any) error {
	e, err := NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", eventType, err)
	}
	if err := p.client.Publish(ctx, p.channel, msg).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", eventType, err)
	}
	return nil
}

// RedisRelay forwards events from a pub/sub channel into a local Bus.
type RedisRelay struct {
	client  redis.UniversalClient
	channel string
	bus     *Bus
	logger  *slog.Logger
}

func NewRedisRelay(client redis.UniversalClient, channel string, bus *Bus, logger *slog.Logger) *RedisRelay {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisRelay{client: client, channel: channel, bus: bus, logger: logger}
}

// Run relays until ctx is cancelled. It returns an error only if the
// subscription cannot be established.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", r.channel, err)
	}
	r.logger.InfoContext(ctx, "relaying events from redis", "channel", r.channel)

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				r.logger.WarnContext(ctx, "skipping malformed event", "channel", r.channel, "error", err)
				continue
			}
			r.bus.Publish(e)
		}
	}
}
