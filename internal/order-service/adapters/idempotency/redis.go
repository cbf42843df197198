package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jcmexdev/storefront-orders/internal/order-service/core/ports"
)

var _ ports.IdempotencyClaimer = (*RedisClaimer)(nil)

// releaseScript deletes the claim only if this process still owns it, so a
// claim that expired and was taken by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisClaimer grants one owner per idempotency key with SET NX PX.
type RedisClaimer struct {
	client      *redis.Client
	serviceName string
	owner       string
}

func NewRedisClaimer(client *redis.Client, serviceName string) *RedisClaimer {
	return &RedisClaimer{
		client:      client,
		serviceName: serviceName,
		owner:       uuid.NewString(),
	}
}

func (r *RedisClaimer) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.generateKey(key), r.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency: claim %q: %w", key, err)
	}
	return ok, nil
}

func (r *RedisClaimer) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, r.client, []string{r.generateKey(key)}, r.owner).Err(); err != nil {
		return fmt.Errorf("idempotency: release %q: %w", key, err)
	}
	return nil
}

func (r *RedisClaimer) generateKey(key string) string {
	return fmt.Sprintf("%s:idempotency:%s", r.serviceName, key)
}
