package lock

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

type localEntry struct {
	token     string
	expiresAt time.Time
}

// LocalLocker is an in-process Locker. It only coordinates goroutines of one
// process; use RedisLocker when several instances share a database.
type LocalLocker struct {
	clock Clock
	mu    sync.Mutex
	held  map[string]localEntry
}

// NewLocalLocker creates a LocalLocker. A nil clock uses real time.
func NewLocalLocker(clock Clock) *LocalLocker {
	if clock == nil {
		clock = realClock{}
	}
	return &LocalLocker{
		clock: clock,
		held:  make(map[string]localEntry),
	}
}

func (l *LocalLocker) TryAcquire(_ context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if current, ok := l.held[key]; ok && now.Before(current.expiresAt) {
		return Lease{}, false, nil
	}

	entry := localEntry{token: uuid.NewString(), expiresAt: now.Add(ttl)}
	l.held[key] = entry
	return Lease{Key: key, Token: entry.token, ExpiresAt: entry.expiresAt}, true, nil
}

func (l *LocalLocker) Release(_ context.Context, lease Lease) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.held[lease.Key]
	if !ok || current.token != lease.Token {
		return ErrNotHeld
	}
	delete(l.held, lease.Key)
	return nil
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
