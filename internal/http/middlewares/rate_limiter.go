package middlewares

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// CounterStore is a fixed-window counter keyed by client. The redis-backed
// store satisfies this; Memory is the single-process fallback.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, remaining time.Duration, err error)
}

type RateLimiter struct {
	store  CounterStore
	limit  int64
	window time.Duration
}

func NewRateLimiter(store CounterStore, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		store:  store,
		limit:  int64(limit),
		window: window,
	}
}

// Middleware enforces the limit for a key derived from the request.
func (rl *RateLimiter) Middleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			// fallback to IP if key cannot be derived
			key = clientIP(c)
		}

		count, remaining, err := rl.store.Incr(c.Request.Context(), key, rl.window)

		if err != nil {
			// a broken counter store must not take login down with it
			c.Next()
			return
		}

		if count > rl.limit {
			retryAfter := int(remaining.Seconds())

			if retryAfter < 1 {
				retryAfter = 1
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"errors": []gin.H{{"message": "Too many requests. Please try again shortly."}},
			})
			return
		}

		c.Next()
	}
}

// KeyByIP rate limits unauthenticated endpoints by client IP.
func KeyByIP(c *gin.Context) string {
	return "ip:" + clientIP(c)
}

func clientIP(c *gin.Context) string {
	// Gin's ClientIP respects X-Forwarded-For / X-Real-IP if configured.
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}

// Memory is an in-process CounterStore with fixed windows per key.
type Memory struct {
	mu      sync.Mutex
	clients map[string]*bucket
}

type bucket struct {
	count     int64
	windowEnd time.Time
}

func NewMemory() *Memory {
	return &Memory{clients: make(map[string]*bucket)}
}

func (m *Memory) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.clients[key]

	if !ok || now.After(b.windowEnd) {
		b = &bucket{windowEnd: now.Add(window)}
		m.clients[key] = b
	}

	b.count++

	return b.count, time.Until(b.windowEnd), nil
}
