package httpmiddleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Limiter answers whether a request from a key is allowed right now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// GinMiddleware returns a gin handler enforcing per-IP limits. A limiter
// error fails open: losing redis should not take scanning down with it.
func GinMiddleware(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		allowed, err := limiter.Allow(c.Request.Context(), ip)
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("rate limiter unavailable, allowing request")
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit"})
			return
		}
		c.Next()
	}
}

// RedisLimiter is a fixed-window counter in redis, shared across instances.
type RedisLimiter struct {
	client    *redis.Client
	prefix    string
	perWindow int
	window    time.Duration
}

// NewRedisLimiter creates a limiter allowing perMinute requests per key per
// minute.
func NewRedisLimiter(client *redis.Client, prefix string, perMinute int) *RedisLimiter {
	return &RedisLimiter{
		client:    client,
		prefix:    prefix,
		perWindow: perMinute,
		window:    time.Minute,
	}
}

// Allow increments the key's window counter and compares it to the limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := time.Now().Unix() / int64(l.window.Seconds())
	redisKey := l.prefix + ":" + key + ":" + strconv.FormatInt(bucket, 10)

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return count.Val() <= int64(l.perWindow), nil
}

// MemoryLimiter is an in-process token bucket, used when redis is not
// configured. Per-instance only.
type MemoryLimiter struct {
	capacity int
	rate     int
	mu       sync.Mutex
	state    map[string]*bucket
}

type bucket struct {
	tokens int
	last   time.Time
}

// NewMemoryLimiter creates a limiter with capacity tokens refilled at
// perMinute per minute.
func NewMemoryLimiter(capacity, perMinute int) *MemoryLimiter {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &MemoryLimiter{
		capacity: capacity,
		rate:     perMinute,
		state:    make(map[string]*bucket),
	}
}

// Allow takes a token from the key's bucket.
func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.state[key]
	now := time.Now()
	if !ok {
		l.state[key] = &bucket{tokens: l.capacity - 1, last: now}
		return true, nil
	}

	elapsed := now.Sub(b.last).Minutes()
	refill := int(elapsed * float64(l.rate))
	if refill > 0 {
		b.tokens += refill
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens <= 0 {
		return false, nil
	}
	b.tokens--
	return true, nil
}
