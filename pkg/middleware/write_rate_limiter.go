package middleware

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// WriteRateLimiter caps mutating requests per caller per minute. Reads are
// never limited.
type WriteRateLimiter struct {
	client *redis.Client
	limit  int
}

func NewWriteRateLimiter(client *redis.Client, perMinute int) *WriteRateLimiter {
	return &WriteRateLimiter{client: client, limit: perMinute}
}

func (l *WriteRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.client == nil || l.limit <= 0 || isReadMethod(c.Request.Method) {
			c.Next()
			return
		}

		key := rateKey(c)
		count, ttl, err := l.hit(c, key)
		if err != nil {
			// Allow if redis is down
			log.Printf("⚠️ [RATE] Redis error for %s: %v", key, err)
			c.Next()
			return
		}

		remaining := l.limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(l.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(count) > l.limit {
			resetAt := time.Now().Add(ttl)
			c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":             "write rate limit exceeded",
				"wait_time_seconds": int(ttl.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// hit counts one request in the current minute window.
func (l *WriteRateLimiter) hit(c *gin.Context, key string) (int64, time.Duration, error) {
	ctx := c.Request.Context()

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, time.Minute)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	return incr.Val(), ttl.Val(), nil
}

func rateKey(c *gin.Context) string {
	if id := ActorID(c); id != uuid.Nil {
		return fmt.Sprintf("write_rate:user:%s", id)
	}
	return fmt.Sprintf("write_rate:ip:%s", c.ClientIP())
}

func isReadMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}
