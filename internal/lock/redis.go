package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when no Redis client is configured.
var ErrUnavailable = errors.New("lock: redis client not configured")

var releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

// Redis serialises work on a key across API replicas using SET NX tokens.
type Redis struct {
	client  *redis.Client
	prefix  string
	backoff time.Duration
}

// NewRedis builds a locker whose keys are namespaced with prefix.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix, backoff: 25 * time.Millisecond}
}

// WithLock runs fn while holding key. The lock expires after ttl if the holder
// dies; acquisition waits until ctx is done.
func (l *Redis) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l == nil || l.client == nil {
		return ErrUnavailable
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	full := l.prefix + key
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, full, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			break
		}
		timer := time.NewTimer(l.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	defer l.release(full, token)
	return fn(ctx)
}

func (l *Redis) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
}
