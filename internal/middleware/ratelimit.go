package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/doitto/webapp/internal/metrics"
	"github.com/doitto/webapp/internal/pkg"
)

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	// RPS is the sustained number of requests per second per client.
	RPS float64
	// Burst is the bucket size.
	Burst int
	// Clients bounds the number of tracked clients. Zero means 10000.
	Clients int
	// Idle is how long an untouched client bucket is kept. Zero means 10m.
	Idle time.Duration
}

// RateLimit returns a gin middleware that throttles each client IP with its
// own token bucket. Rejected requests get 429 with a Retry-After header and
// are counted in metrics.RateLimited. Client identity is c.ClientIP, so
// forwarded headers are honored only for the engine's trusted proxies.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	size := cfg.Clients
	if size <= 0 {
		size = 10000
	}
	idle := cfg.Idle
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	buckets := expirable.NewLRU[string, *rate.Limiter](size, nil, idle)

	var mu sync.Mutex
	limiterFor := func(client string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if l, ok := buckets.Get(client); ok {
			return l
		}
		l := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
		buckets.Add(client, l)
		return l
	}

	return func(c *gin.Context) {
		limiter := limiterFor(c.ClientIP())

		r := limiter.Reserve()
		if !r.OK() {
			reject(c, 0)
			return
		}
		if delay := r.Delay(); delay > 0 {
			r.Cancel()
			reject(c, delay)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(int(limiter.Tokens()), 0)))
		c.Next()
	}
}

func reject(c *gin.Context, retryAfter time.Duration) {
	metrics.RateLimited.Inc()
	if retryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
	}
	pkg.Abort(c, http.StatusTooManyRequests, "too many requests")
}
