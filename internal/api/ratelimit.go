package api

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/trackline/sprint-insights/internal/lru"
)

// RateLimitConfig holds rate limiter configuration.
type RateLimitConfig struct {
	RPS   int // requests per second
	Burst int // burst size
}

// maxTrackedClients bounds bucket state so a scan over many source IPs
// cannot grow memory without limit. Evicted clients simply start over
// with a full bucket.
const maxTrackedClients = 10000

type rateLimiter struct {
	mu      sync.Mutex
	clients *lru.Cache[string, *tokenBucket]
	rps     int
	burst   int
}

type tokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

func newTokenBucket(rps, burst int) *tokenBucket {
	return &tokenBucket{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: float64(rps),
		lastRefill: time.Now(),
	}
}

func (b *tokenBucket) allow() bool {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// NewRateLimitMiddleware returns a per-client token-bucket rate limiter.
// Probe endpoints are exempt.
func NewRateLimitMiddleware(cfg RateLimitConfig) fiber.Handler {
	rl := &rateLimiter{
		clients: lru.New[string, *tokenBucket](maxTrackedClients),
		rps:     cfg.RPS,
		burst:   cfg.Burst,
	}

	return func(c *fiber.Ctx) error {
		if probePath(c.Path()) {
			return c.Next()
		}

		rl.mu.Lock()
		bucket, ok := rl.clients.Get(c.IP())
		if !ok {
			bucket = newTokenBucket(rl.rps, rl.burst)
			rl.clients.Put(c.IP(), bucket)
		}
		allowed := bucket.allow()
		rl.mu.Unlock()

		if !allowed {
			return problemResponse(c, fiber.StatusTooManyRequests,
				"rate_limited", "Too Many Requests",
				"Rate limit exceeded, slow down")
		}
		return c.Next()
	}
}
