package shared

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// RouteLimit caps requests for one "METHOD route" pair over a fixed window.
// KeyFunc picks the bucket per caller; it defaults to the client IP.
type RouteLimit struct {
	Requests int
	Window   time.Duration
	KeyFunc  func(*gin.Context) string
}

type rateLimitEntry struct {
	count     int
	resetTime time.Time
}

// RateLimiter tracks per-caller request counts in an expiring in-memory
// cache. Routes without a configured limit pass through untouched.
type RateLimiter struct {
	entries *gocache.Cache
	limits  map[string]RouteLimit
	logger  *otelzap.Logger
	metrics *AppMetrics
	mutex   sync.Mutex
}

func NewRateLimiter(limits map[string]RouteLimit, logger *otelzap.Logger, metrics *AppMetrics) *RateLimiter {
	return &RateLimiter{
		entries: gocache.New(5*time.Minute, 10*time.Minute),
		limits:  limits,
		logger:  logger,
		metrics: metrics,
	}
}

// Middleware rejects callers that exceed their route's limit with a 429,
// leaving the error body to the finalizer. Limits key on the route template,
// so /api/users/1 and /api/users/2 share one bucket per caller.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			c.Next()
			return
		}

		limit, ok := rl.limits[c.Request.Method+" "+route]
		if !ok {
			c.Next()
			return
		}

		caller := GetClientIP(c)
		if limit.KeyFunc != nil {
			caller = limit.KeyFunc(c)
		}

		remaining, resetTime, allowed := rl.take(c.Request.Method+" "+route+" "+caller, limit)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			rl.metrics.RecordRateLimited(c.Request.Context(), route)
			rl.logger.Ctx(c.Request.Context()).Warn("Rate limit exceeded",
				zap.String("route", route),
				zap.String("caller", caller),
			)

			c.Header("Retry-After", strconv.Itoa(int(time.Until(resetTime).Seconds())+1))
			c.Error(RateLimited("Too many requests"))
			c.Abort()
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) take(key string, limit RouteLimit) (remaining int, resetTime time.Time, allowed bool) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()

	entry := &rateLimitEntry{resetTime: now.Add(limit.Window)}
	if cached, found := rl.entries.Get(key); found {
		existing := cached.(*rateLimitEntry)
		if now.Before(existing.resetTime) {
			entry = existing
		}
	}

	if entry.count >= limit.Requests {
		return 0, entry.resetTime, false
	}

	entry.count++
	rl.entries.Set(key, entry, time.Until(entry.resetTime))

	return limit.Requests - entry.count, entry.resetTime, true
}
