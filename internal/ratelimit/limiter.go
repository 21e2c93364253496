// Package ratelimit throttles access PIN guesses per reservation and per
// client address.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Config struct {
	MaxAttempts  int           // Failed guesses per key before lockout (default: 5)
	Lockout      time.Duration // Lockout after MaxAttempts (default: 10m)
	MaxIPPerHour int           // Failed guesses per client IP per hour (default: 30)

	// Clock for testing (nil uses real time)
	Clock Clock
}

func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:  5,
		Lockout:      10 * time.Minute,
		MaxIPPerHour: 30,
	}
}

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string // For logging
}

type entry struct {
	count    int
	firstAt  time.Time
	lastAt   time.Time
	lockedAt time.Time // zero if not locked
}

// Limiter counts failed attempts in memory. Counters are per process, so a
// multi-instance deployment gets one budget per instance.
type Limiter struct {
	config *Config
	clock  Clock
	mu     sync.Mutex
	byKey  map[string]*entry
	byIP   map[string]*entry

	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
	cleanupOnce   sync.Once
	cleanupWg     sync.WaitGroup
}

func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		config:        cfg,
		clock:         clock,
		byKey:         make(map[string]*entry),
		byIP:          make(map[string]*entry),
		cleanupCtx:    ctx,
		cleanupCancel: cancel,
	}
}

// Close stops the cleanup goroutine.
func (l *Limiter) Close() {
	l.cleanupCancel()
	l.cleanupWg.Wait()
}

// Check reports whether another attempt for key from ip may proceed. It does
// not count the attempt.
func (l *Limiter) Check(key, ip string) LimitResult {
	l.startCleanup()
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if e := l.byKey[key]; e != nil && !e.lockedAt.IsZero() {
		if elapsed := now.Sub(e.lockedAt); elapsed < l.config.Lockout {
			return LimitResult{RetryAfter: l.config.Lockout - elapsed, Reason: "lockout"}
		}
	}
	if e := l.byIP[ip]; e != nil {
		if age := now.Sub(e.firstAt); age < time.Hour && e.count >= l.config.MaxIPPerHour {
			return LimitResult{RetryAfter: time.Hour - age, Reason: "ip_hourly_limit"}
		}
	}
	return LimitResult{Allowed: true}
}

// RecordFailure counts a failed attempt and reports whether it started a
// lockout for key.
func (l *Limiter) RecordFailure(key, ip string) (lockedOut bool) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.byKey[key]
	switch {
	case e == nil, !e.lockedAt.IsZero() && now.Sub(e.lockedAt) >= l.config.Lockout:
		e = &entry{firstAt: now}
		l.byKey[key] = e
	}
	e.count++
	e.lastAt = now
	if e.count >= l.config.MaxAttempts && e.lockedAt.IsZero() {
		e.lockedAt = now
		lockedOut = true
	}

	ipEntry := l.byIP[ip]
	if ipEntry == nil || now.Sub(ipEntry.firstAt) >= time.Hour {
		l.byIP[ip] = &entry{count: 1, firstAt: now, lastAt: now}
	} else {
		ipEntry.count++
		ipEntry.lastAt = now
	}
	return lockedOut
}

// Reset clears the failures for key after a successful attempt.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.byKey, key)
	l.mu.Unlock()
}

func (l *Limiter) startCleanup() {
	l.cleanupOnce.Do(func() {
		l.cleanupWg.Add(1)
		go func() {
			defer l.cleanupWg.Done()
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-l.cleanupCtx.Done():
					return
				case <-ticker.C:
					l.cleanup()
				}
			}
		}()
	})
}

func (l *Limiter) cleanup() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	maxAge := l.config.Lockout + time.Hour
	for k, e := range l.byKey {
		if now.Sub(e.lastAt) > maxAge {
			delete(l.byKey, k)
		}
	}
	for k, e := range l.byIP {
		if now.Sub(e.lastAt) > time.Hour {
			delete(l.byIP, k)
		}
	}
}

// ClientIP extracts the client address. With trustProxy the rightmost
// X-Forwarded-For entry is used, since that is the one the proxy appended.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			return strings.TrimSpace(parts[len(parts)-1])
		}
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

// LogExceeded logs a throttled attempt.
func LogExceeded(ctx context.Context, key, ip string, result LimitResult) {
	logger := log.Ctx(ctx)
	logger.Warn().
		Str("event", "rate_limit_exceeded").
		Str("key", key).
		Str("ip", ip).
		Str("reason", result.Reason).
		Dur("retry_after", result.RetryAfter).
		Msg("Access PIN rate limit exceeded")
}
