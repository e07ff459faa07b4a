package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/aescanero/crossplot/pkg/ports"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock only if it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements Locker using a Redis SET NX lease
type Locker struct {
	client        redis.Cmdable
	ttl           time.Duration
	retryInterval time.Duration
	logger        *zap.Logger
}

var _ ports.Locker = (*Locker)(nil)

// NewLocker creates a new Redis locker
func NewLocker(client redis.Cmdable, ttl, retryInterval time.Duration, logger *zap.Logger) *Locker {
	if retryInterval <= 0 {
		retryInterval = 500 * time.Millisecond
	}
	return &Locker{
		client:        client,
		ttl:           ttl,
		retryInterval: retryInterval,
		logger:        logger,
	}
}

// Acquire polls SET NX until it wins the key or ctx is done
func (l *Locker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	lockKey := getLockKey(key)
	token := uuid.New().String()

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", lockKey, err)
		}
		if ok {
			l.logger.Debug("lock acquired", zap.String("key", lockKey))
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	release := func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, l.client, []string{lockKey}, token).Int()
		if err != nil {
			return fmt.Errorf("failed to release lock %s: %w", lockKey, err)
		}
		if n == 0 {
			l.logger.Warn("lock lease expired before release", zap.String("key", lockKey))
		}
		return nil
	}
	return release, nil
}

// getLockKey returns the Redis key guarding a local file path
func getLockKey(key string) string {
	return fmt.Sprintf("crossplot:lock:%s", key)
}
