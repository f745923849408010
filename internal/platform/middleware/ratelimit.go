package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// Skipper exempts requests from the limit; nil limits every request.
	Skipper func(c echo.Context) bool
	now     func() time.Time
}

// CredentialRateLimitConfig throttles login and registration per client
// address: a short burst, then one attempt per second.
func CredentialRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 1,
		BurstSize:         10,
		Skipper: func(c echo.Context) bool {
			return !isCredentialPath(c.Request().URL.Path)
		},
	}
}

func isCredentialPath(path string) bool {
	for _, suffix := range []string{"/login", "/register"} {
		if len(path) >= len(suffix) && path[len(path)-len(suffix):] == suffix {
			return true
		}
	}
	return false
}

// tokenBucket implements a token bucket rate limiter.
type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// take consumes one token if available. When none is, it returns the whole
// seconds until one will be.
func (b *tokenBucket) take(now time.Time) (bool, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens += now.Sub(b.lastRefill).Seconds() * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if b.refillRate <= 0 {
		return false, 1
	}
	return false, int(math.Ceil((1 - b.tokens) / b.refillRate))
}

// idle reports whether the bucket has refilled completely by now, in which
// case dropping it loses no state.
func (b *tokenBucket) idle(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refillRate <= 0 {
		return false
	}
	refilled := b.tokens + now.Sub(b.lastRefill).Seconds()*b.refillRate
	return refilled >= b.maxTokens
}

// bucketSweepInterval is how often the store drops buckets of clients that
// have gone quiet.
const bucketSweepInterval = time.Minute

type bucketStore struct {
	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	cfg       RateLimitConfig
	lastSweep time.Time
}

func newBucketStore(cfg RateLimitConfig, now time.Time) *bucketStore {
	return &bucketStore{buckets: make(map[string]*tokenBucket), cfg: cfg, lastSweep: now}
}

func (s *bucketStore) get(key string, now time.Time) *tokenBucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastSweep) >= bucketSweepInterval {
		for k, b := range s.buckets {
			if k != key && b.idle(now) {
				delete(s.buckets, k)
			}
		}
		s.lastSweep = now
	}
	b, ok := s.buckets[key]
	if !ok {
		b = &tokenBucket{
			tokens:     float64(s.cfg.BurstSize),
			maxTokens:  float64(s.cfg.BurstSize),
			refillRate: s.cfg.RequestsPerSecond,
			lastRefill: now,
		}
		s.buckets[key] = b
	}
	return b
}

// RateLimit limits requests per client IP and answers 429 with Retry-After
// once a client's bucket is empty. Buckets that have refilled are dropped
// periodically, so memory follows the number of recently active clients.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.now == nil {
		cfg.now = time.Now
	}
	store := newBucketStore(cfg, cfg.now())
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			now := cfg.now()
			ok, retryAfter := store.get(c.RealIP(), now).take(now)
			c.Response().Header().Set("X-RateLimit-Limit", limit)
			if !ok {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
