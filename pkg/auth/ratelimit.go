package auth

import (
	"context"
	"sync"
	"time"
)

// RateLimiter checks whether a request should be allowed based on
// the principal's service tier.
type RateLimiter interface {
	Allow(ctx context.Context, p *Principal) error
}

// TierConfig holds rate limit settings for a service tier.
type TierConfig struct {
	RequestsPerMinute int
}

// InProcessLimiter is a fixed-window rate limiter that tracks request
// counts per subject in memory.
type InProcessLimiter struct {
	tiers      map[string]TierConfig
	defaultRPM int
	mu         sync.Mutex
	counters   map[string]*counter
	now        func() time.Time
}

type counter struct {
	count    int
	windowAt time.Time
}

// NewInProcessLimiter creates a rate limiter with per-tier configuration.
// A tier (or default) with RequestsPerMinute <= 0 is unlimited.
func NewInProcessLimiter(tiers map[string]TierConfig, defaultRPM int) *InProcessLimiter {
	return &InProcessLimiter{
		tiers:      tiers,
		defaultRPM: defaultRPM,
		counters:   make(map[string]*counter),
		now:        time.Now,
	}
}

// Allow checks if the request is within the rate limit.
func (l *InProcessLimiter) Allow(_ context.Context, p *Principal) error {
	tier := tierOf(p)

	rpm := l.defaultRPM
	if tc, ok := l.tiers[tier]; ok {
		rpm = tc.RequestsPerMinute
	}
	if rpm <= 0 {
		return nil
	}

	key := p.Subject + ":" + tier

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.counters[key]
	if !ok || now.Sub(c.windowAt) >= time.Minute {
		l.counters[key] = &counter{count: 1, windowAt: now}
		l.sweep(now)
		return nil
	}

	c.count++
	if c.count > rpm {
		return ErrTooManyRequests
	}
	return nil
}

// sweep drops counters whose window has closed. Called with mu held.
func (l *InProcessLimiter) sweep(now time.Time) {
	for k, c := range l.counters {
		if now.Sub(c.windowAt) >= time.Minute {
			delete(l.counters, k)
		}
	}
}

func tierOf(p *Principal) string {
	if p.ServiceTier == "" {
		return "default"
	}
	return p.ServiceTier
}
