package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/freshflower-auth/pkg/response"
)

// KeyFunc builds a rate-limit key from the request
type KeyFunc func(c *gin.Context) string

// AllowFunc returns true to bypass the limit for a request.
type AllowFunc func(*gin.Context) bool

// KeyByIP limits by client IP only.
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:ip:" + ClientIP(c)
	}
}

// KeyByIPAndPath limits by client IP per route.
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		return "rl:path:" + path + ":ip:" + ClientIP(c)
	}
}

// Atomic INCR; the window starts with the first hit.
var incrExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// Decision is the state of one key after a hit.
type Decision struct {
	Limit     int
	Count     int
	Remaining int
	Reset     time.Duration // until the window closes
}

// Allowed reports whether the hit fits in the window.
func (d Decision) Allowed() bool { return d.Count <= d.Limit }

// Limiter is a fixed-window counter stored in Redis.
type Limiter struct {
	rdb    *redis.Client
	max    int
	window time.Duration
}

// NewLimiter returns nil when the limiter would be a no-op.
func NewLimiter(rdb *redis.Client, max int, window time.Duration) *Limiter {
	if rdb == nil || max <= 0 || window <= 0 {
		return nil
	}
	return &Limiter{rdb: rdb, max: max, window: window}
}

// Take counts one hit against key.
func (l *Limiter) Take(ctx context.Context, key string) (Decision, error) {
	v, err := incrExpireScript.Run(ctx, l.rdb, []string{key}, l.window.Milliseconds()).Int()
	if err != nil {
		return Decision{}, err
	}
	d := Decision{Limit: l.max, Count: v, Remaining: l.max - v}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if ttl, err := l.rdb.PTTL(ctx, key).Result(); err == nil && ttl > 0 {
		d.Reset = ttl
	}
	return d, nil
}

// RateLimit allows max requests per window for each key, sets the
// X-RateLimit-* headers and answers 429 with Retry-After once exhausted.
// OPTIONS requests and allow-listed clients skip the counter. It fails open
// when Redis is unavailable.
func RateLimit(rdb *redis.Client, max int, window time.Duration, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	l := NewLimiter(rdb, max, window)
	if l == nil || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || (allow != nil && allow(c)) {
			c.Next()
			return
		}

		d, err := l.Take(c.Request.Context(), keyFn(c))
		if err != nil {
			c.Next()
			return
		}

		resetSec := seconds(d.Reset)
		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if !d.Allowed() {
			if resetSec > 0 {
				c.Header("Retry-After", strconv.Itoa(resetSec))
			}
			response.Error[any](c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		c.Next()
	}
}

// seconds rounds d up to whole seconds.
func seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
