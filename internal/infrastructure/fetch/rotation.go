package fetch

import (
	"context"
	"sync"
	"time"
)

// Rotation hands out user agents and proxies round-robin. It is an
// explicit, injectable state object so parallel fetcher instances do not
// share indices.
type Rotation struct {
	mu         sync.Mutex
	userAgents []string
	proxies    []string
	uaIdx      int
	proxyIdx   int
}

// NewRotation builds a rotation over fixed pools; proxies may be empty.
func NewRotation(userAgents, proxies []string) *Rotation {
	return &Rotation{userAgents: userAgents, proxies: proxies}
}

// Next returns the next user agent and proxy URL (empty when no proxies
// are configured). The indices advance on every call regardless of the
// request outcome.
func (r *Rotation) Next() (userAgent, proxy string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.userAgents) > 0 {
		userAgent = r.userAgents[r.uaIdx%len(r.userAgents)]
		r.uaIdx++
	}
	if len(r.proxies) > 0 {
		proxy = r.proxies[r.proxyIdx%len(r.proxies)]
		r.proxyIdx++
	}
	return userAgent, proxy
}

// Limiter enforces a minimum delay between requests, serially across all
// callers sharing the instance. The last-slot timestamp is the only
// shared mutable state and is lock-protected.
type Limiter struct {
	mu    sync.Mutex
	delay time.Duration
	last  time.Time
}

// NewLimiter builds a limiter with the given minimum spacing.
func NewLimiter(delay time.Duration) *Limiter {
	return &Limiter{delay: delay}
}

// Wait blocks until the caller's slot opens or ctx is cancelled. Slots are
// reserved under the lock so concurrent callers queue up instead of
// racing the timestamp.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.delay <= 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	now := time.Now()
	next := l.last.Add(l.delay)
	if next.Before(now) {
		next = now
	}
	l.last = next
	l.mu.Unlock()

	wait := time.Until(next)
	if wait <= 0 {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
