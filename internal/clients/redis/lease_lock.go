package redis

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
)

// releaseScript deletes the lock only when it is still held by the releasing
// lease, so a lease that outlived its TTL cannot free a successor's lock.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// Lease is one acquired lock. Release is safe to call after expiry.
type Lease interface {
	Release(ctx context.Context) error
}

// LeaseLocker hands out per-key leases backed by redis SET NX PX. The TTL
// guarantees liveness: a crashed holder cannot block a key forever.
type LeaseLocker struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewLeaseLocker(log *logger.Logger) (*LeaseLocker, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &LeaseLocker{
		log: log.With("client", "LeaseLocker"),
		rdb: rdb,
	}, nil
}

// Acquire blocks until the key's lease is obtained or ctx ends.
func (l *LeaseLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	if l == nil || l.rdb == nil {
		return nil, fmt.Errorf("lease locker not initialized")
	}
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("lock key required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	token := uuid.NewString()
	redisKey := "lock:" + key

	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx: %w", err)
		}
		if ok {
			return &lease{rdb: l.rdb, key: redisKey, token: token}, nil
		}

		// Holder is mid-reconciliation; poll with jitter.
		wait := 25*time.Millisecond + time.Duration(rand.Intn(50))*time.Millisecond
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (l *LeaseLocker) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}

type lease struct {
	rdb   *goredis.Client
	key   string
	token string
}

func (le *lease) Release(ctx context.Context) error {
	if le == nil || le.rdb == nil {
		return nil
	}
	return le.rdb.Eval(ctx, releaseScript, []string{le.key}, le.token).Err()
}
