package services

import (
	"context"
	"sync"
	"time"
)

// Lease is one held reconciliation lock.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker serializes reconciliations per identity key. The redis-backed
// implementation lives in clients/redis; MemoryLocker below covers
// single-instance deployments and tests. Either way the lease carries a TTL
// so a crashed or stuck holder can never block an identity forever.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

type memEntry struct {
	token  uint64
	expiry time.Time
}

// MemoryLocker is an in-process Locker with lease expiry semantics matching
// the redis one.
type MemoryLocker struct {
	mu   sync.Mutex
	next uint64
	held map[string]memEntry
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: map[string]memEntry{}}
}

func (ml *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	for {
		ml.mu.Lock()
		now := time.Now()
		entry, taken := ml.held[key]
		if !taken || now.After(entry.expiry) {
			ml.next++
			token := ml.next
			ml.held[key] = memEntry{token: token, expiry: now.Add(ttl)}
			ml.mu.Unlock()
			return &memLease{locker: ml, key: key, token: token}, nil
		}
		ml.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

type memLease struct {
	locker *MemoryLocker
	key    string
	token  uint64
}

func (l *memLease) Release(ctx context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	// Only release our own lease; an expired one may have been re-granted.
	if entry, ok := l.locker.held[l.key]; ok && entry.token == l.token {
		delete(l.locker.held, l.key)
	}
	return nil
}
