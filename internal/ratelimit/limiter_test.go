package ratelimit

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// mockClock is a controllable clock for testing.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLockoutAfterMaxAttempts(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{MaxAttempts: 3, Lockout: 5 * time.Minute, MaxIPPerHour: 100, Clock: clock})
	defer limiter.Close()

	for i := 1; i <= 3; i++ {
		if result := limiter.Check("reservation:7", "10.0.0.1"); !result.Allowed {
			t.Fatalf("attempt %d blocked: %s", i, result.Reason)
		}
		locked := limiter.RecordFailure("reservation:7", "10.0.0.1")
		if locked != (i == 3) {
			t.Fatalf("attempt %d lockedOut = %v", i, locked)
		}
	}

	result := limiter.Check("reservation:7", "10.0.0.2")
	if result.Allowed || result.Reason != "lockout" {
		t.Fatalf("expected lockout, got %+v", result)
	}
	if result.RetryAfter != 5*time.Minute {
		t.Fatalf("retry after = %v", result.RetryAfter)
	}

	if result := limiter.Check("reservation:8", "10.0.0.1"); !result.Allowed {
		t.Fatalf("other reservation should not be locked: %s", result.Reason)
	}

	clock.Advance(5 * time.Minute)
	if result := limiter.Check("reservation:7", "10.0.0.1"); !result.Allowed {
		t.Fatalf("lockout should have expired: %s", result.Reason)
	}
	if limiter.RecordFailure("reservation:7", "10.0.0.1") {
		t.Fatalf("first failure after expiry should not lock")
	}
}

func TestIPHourlyLimit(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{MaxAttempts: 100, Lockout: time.Minute, MaxIPPerHour: 2, Clock: clock})
	defer limiter.Close()

	limiter.RecordFailure("reservation:1", "203.0.113.9")
	limiter.RecordFailure("reservation:2", "203.0.113.9")

	result := limiter.Check("reservation:3", "203.0.113.9")
	if result.Allowed || result.Reason != "ip_hourly_limit" {
		t.Fatalf("expected ip limit, got %+v", result)
	}

	clock.Advance(time.Hour)
	if result := limiter.Check("reservation:3", "203.0.113.9"); !result.Allowed {
		t.Fatalf("ip window should have rolled over")
	}
}

func TestResetClearsFailures(t *testing.T) {
	limiter := New(&Config{MaxAttempts: 2, Lockout: time.Minute, MaxIPPerHour: 100, Clock: newMockClock()})
	defer limiter.Close()

	limiter.RecordFailure("reservation:1", "10.0.0.1")
	limiter.Reset("reservation:1")
	if limiter.RecordFailure("reservation:1", "10.0.0.1") {
		t.Fatalf("reset should have cleared the earlier failure")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remote     string
		xff        string
		trustProxy bool
		want       string
	}{
		{"remote addr", "192.0.2.1:5555", "", false, "192.0.2.1"},
		{"untrusted forwarded header", "192.0.2.1:5555", "198.51.100.7", false, "192.0.2.1"},
		{"trusted proxy uses rightmost", "10.0.0.2:80", "1.1.1.1, 198.51.100.7", true, "198.51.100.7"},
		{"no port", "192.0.2.9", "", false, "192.0.2.9"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", nil)
			r.RemoteAddr = tc.remote
			if tc.xff != "" {
				r.Header.Set("X-Forwarded-For", tc.xff)
			}
			if got := ClientIP(r, tc.trustProxy); got != tc.want {
				t.Fatalf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}
