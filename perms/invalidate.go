package perms

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// InvalidationChannel is the redis pub/sub channel carrying rule-mutation
// signals between processes sharing one rule store.
const InvalidationChannel = "permgate:invalidate"

// RedisInvalidator fans cache invalidations out over redis pub/sub.
// Each server publishes after a mutation and subscribes to flush its own
// projection cache when another process mutates the rule table.
type RedisInvalidator struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisInvalidator creates a RedisInvalidator over the given client.
func NewRedisInvalidator(client *redis.Client, logger zerolog.Logger) *RedisInvalidator {
	return &RedisInvalidator{client: client, logger: logger}
}

// Ensure RedisInvalidator implements Invalidator
var _ Invalidator = (*RedisInvalidator)(nil)

// Broadcast publishes an invalidation signal. Best effort: a failed
// publish leaves remote caches stale until their next mutation, but local
// invalidation has already happened by the time Broadcast is called.
func (i *RedisInvalidator) Broadcast(ctx context.Context) error {
	return i.client.Publish(ctx, InvalidationChannel, "1").Err()
}

// Listen subscribes to the invalidation channel and calls onSignal for
// every message until ctx is cancelled. Runs in its own goroutine,
// typically as `go inv.Listen(ctx, engine.Invalidate)`.
func (i *RedisInvalidator) Listen(ctx context.Context, onSignal func()) {
	sub := i.client.Subscribe(ctx, InvalidationChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			i.logger.Debug().Str("channel", msg.Channel).
				Msg("received cache invalidation signal")
			onSignal()
		}
	}
}
