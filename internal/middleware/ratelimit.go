package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/vidstream/internal/apperr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key in process memory.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

func NewRateLimiter(rps, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = rl.now()
	return e.limiter.Allow()
}

// Prune forgets buckets idle for longer than idle. An idle bucket has
// refilled completely, so dropping it changes nothing for that client.
func (rl *RateLimiter) Prune(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idle)
	n := 0
	for key, e := range rl.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			n++
		}
	}
	return n
}

// Run prunes idle buckets every interval until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Prune(idle)
		}
	}
}

func clientKey(c *gin.Context) string {
	if id := CurrentUserID(c); id != uuid.Nil {
		return fmt.Sprintf("user:%s", id)
	}
	return fmt.Sprintf("ip:%s", c.ClientIP())
}

// RateLimit limits requests per user (when already authenticated) or per
// client IP.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(clientKey(c)) {
			_ = c.Error(apperr.TooManyRequests("rate limit exceeded"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// AttemptCounter is a shared fixed-window counter, implemented by
// cache.AttemptLimiter.
type AttemptCounter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// AttemptLimit caps credential attempts per client IP across replicas.
// It fails open: if the counter store is unreachable the request goes
// through and a warning is logged.
func AttemptLimit(counter AttemptCounter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := counter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn("attempt limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			_ = c.Error(apperr.TooManyRequests("too many attempts, try again later"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// ResetAttempts clears the caller's attempt count once the handler after it
// succeeds, so a user who finally gets their password right starts over.
func ResetAttempts(counter AttemptCounter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 || c.Writer.Status() >= http.StatusMultipleChoices {
			return
		}
		if err := counter.Reset(c.Request.Context(), c.ClientIP()); err != nil {
			logger.Warn("failed to reset attempts", zap.Error(err))
		}
	}
}
