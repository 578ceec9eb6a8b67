package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// Limiter hands out one token bucket per client key. Buckets idle for
// longer than the idle window are dropped on the next Sweep.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*visitor
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter allows perMinute requests per key with bursts of up to perMinute.
func NewLimiter(perMinute int) *Limiter {
	if perMinute <= 0 {
		perMinute = 20
	}
	return &Limiter{
		buckets: make(map[string]*visitor),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		idle:    15 * time.Minute,
		now:     time.Now,
	}
}

func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.buckets[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Sweep drops idle buckets.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.idle)
	for key, v := range l.buckets {
		if v.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// RateLimit rejects requests over the limit with 429, keyed by client IP.
func RateLimit(l *Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.Allow(c.IP()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many requests, try again later"})
		}
		return c.Next()
	}
}
