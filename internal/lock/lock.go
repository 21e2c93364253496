// Package lock provides TTL leases used to serialize booking writes per court
// and to keep reconciliation runs from overlapping.
package lock

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotHeld is returned when releasing a lease that expired or was
	// taken over by another holder.
	ErrNotHeld = errors.New("lease not held")
	// ErrTimeout is returned by Acquire when the lease stayed busy.
	ErrTimeout = errors.New("lease acquisition timed out")
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Lease is a held lock. Token identifies the holder so that a stale holder
// cannot release a lease someone else acquired after expiry.
type Lease struct {
	Key       string
	Token     string
	ExpiresAt time.Time
}

// Locker hands out exclusive leases that expire after ttl.
type Locker interface {
	// TryAcquire returns ok=false without waiting if the key is held.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (lease Lease, ok bool, err error)
	Release(ctx context.Context, lease Lease) error
}

const pollInterval = 10 * time.Millisecond

// Acquire polls locker until the lease is granted, wait elapses, or ctx ends.
func Acquire(ctx context.Context, locker Locker, key string, ttl, wait time.Duration) (Lease, error) {
	deadline := time.Now().Add(wait)
	for {
		lease, ok, err := locker.TryAcquire(ctx, key, ttl)
		if err != nil {
			return Lease{}, err
		}
		if ok {
			return lease, nil
		}
		if !time.Now().Before(deadline) {
			return Lease{}, ErrTimeout
		}

		timer := time.NewTimer(pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Lease{}, ctx.Err()
		case <-timer.C:
		}
	}
}

// CourtKey names the lease that serializes writes for one court and day.
func CourtKey(courtID int64, date string) string {
	return "court:" + itoa(courtID) + ":" + date
}

// SyncRunKey names the lease held by a reconciliation run.
const SyncRunKey = "sync:run"
