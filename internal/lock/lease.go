package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lease grants exclusive, time-bounded ownership of the dispatch pass.
// ok is false when another holder owns it. release is a no-op after expiry
// or when the lease was not acquired.
type Lease interface {
	Acquire(ctx context.Context, ttl time.Duration) (release func(), ok bool, err error)
}

// LocalLease serializes holders inside one process.
type LocalLease struct {
	mu sync.Mutex
}

func NewLocalLease() *LocalLease {
	return &LocalLease{}
}

func (l *LocalLease) Acquire(_ context.Context, _ time.Duration) (func(), bool, error) {
	if !l.mu.TryLock() {
		return func() {}, false, nil
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, true, nil
}

// releaseScript deletes the key only while it still holds our token, so an
// expired lease never removes a newer holder's key.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease coordinates holders across processes with SET NX PX.
type RedisLease struct {
	client *redis.Client
	key    string
}

func NewRedisLease(client *redis.Client, key string) (*RedisLease, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "blog:dispatch:lease"
	}
	return &RedisLease{client: client, key: key}, nil
}

func (l *RedisLease) Acquire(ctx context.Context, ttl time.Duration) (func(), bool, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return func() {}, false, fmt.Errorf("acquire dispatch lease: %w", err)
	}
	if !acquired {
		return func() {}, false, nil
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.client, []string{l.key}, token).Err()
		})
	}
	return release, true, nil
}
