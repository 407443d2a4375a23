package policy

import (
	"sync"
	"time"
)

// RateLimitConfig configures the per-client token buckets.
type RateLimitConfig struct {
	Capacity     int
	RefillTokens int
	RefillEvery  time.Duration
	// IdleAfter evicts buckets of clients not seen for this long.
	IdleAfter time.Duration
}

// Enabled reports whether every field needed for limiting is set.
func (c RateLimitConfig) Enabled() bool {
	return c.Capacity > 0 && c.RefillTokens > 0 && c.RefillEvery > 0
}

// TokenBucket implements a basic token bucket rate limiter.
type TokenBucket struct {
	capacity     int
	tokens       float64
	refillAmount float64
	refillEvery  time.Duration
	lastRefill   time.Time
	lastSeen     time.Time
	mu           sync.Mutex
}

// NewTokenBucket constructs a full token bucket. It returns nil, which
// allows everything, when any parameter is not positive.
func NewTokenBucket(capacity int, refillAmount int, refillEvery time.Duration, now time.Time) *TokenBucket {
	if capacity <= 0 || refillAmount <= 0 || refillEvery <= 0 {
		return nil
	}
	return &TokenBucket{
		capacity:     capacity,
		tokens:       float64(capacity),
		refillAmount: float64(refillAmount),
		refillEvery:  refillEvery,
		lastRefill:   now,
		lastSeen:     now,
	}
}

// Allow consumes a single token if available.
func (b *TokenBucket) Allow(now time.Time) bool {
	if b == nil {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastSeen = now
	b.refill(now)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (b *TokenBucket) idleSince(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return now.Sub(b.lastSeen)
}

func (b *TokenBucket) refill(now time.Time) {
	if now.Before(b.lastRefill) {
		b.lastRefill = now
		return
	}

	elapsed := now.Sub(b.lastRefill)
	if elapsed < b.refillEvery {
		return
	}

	units := float64(elapsed) / float64(b.refillEvery)
	b.tokens += units * b.refillAmount
	if b.tokens > float64(b.capacity) {
		b.tokens = float64(b.capacity)
	}
	b.lastRefill = now
}

// ClientLimiter keeps one token bucket per client key.
type ClientLimiter struct {
	cfg RateLimitConfig

	mu        sync.Mutex
	buckets   map[string]*TokenBucket
	lastSweep time.Time
}

// NewClientLimiter returns nil when cfg is not enabled; a nil limiter allows
// every request.
func NewClientLimiter(cfg RateLimitConfig) *ClientLimiter {
	if !cfg.Enabled() {
		return nil
	}
	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = 10 * time.Minute
	}
	return &ClientLimiter{
		cfg:     cfg,
		buckets: make(map[string]*TokenBucket),
	}
}

// Allow consumes a token from client's bucket.
func (l *ClientLimiter) Allow(client string, now time.Time) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	l.sweep(now)
	bucket, ok := l.buckets[client]
	if !ok {
		bucket = NewTokenBucket(l.cfg.Capacity, l.cfg.RefillTokens, l.cfg.RefillEvery, now)
		l.buckets[client] = bucket
	}
	l.mu.Unlock()
	return bucket.Allow(now)
}

// Clients returns the number of tracked clients.
func (l *ClientLimiter) Clients() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// sweep drops idle buckets at most once per IdleAfter. Callers hold l.mu.
func (l *ClientLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.cfg.IdleAfter {
		return
	}
	l.lastSweep = now
	for client, bucket := range l.buckets {
		if bucket.idleSince(now) >= l.cfg.IdleAfter {
			delete(l.buckets, client)
		}
	}
}
