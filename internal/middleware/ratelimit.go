package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter in Redis, keyed per caller. When
// Redis is unavailable the limiter fails open: chat must keep working
// without it.
type RateLimiter struct {
	redis  *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

func NewRateLimiter(r *redis.Client, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{redis: r, prefix: prefix, limit: int64(limit), window: window}
}

// ByCaller limits authenticated callers; must run after JWTAuth.
func (r *RateLimiter) ByCaller() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if r.redis == nil {
			return c.Next()
		}
		key := fmt.Sprintf("%s:%s", r.prefix, CallerID(c))
		count, err := r.redis.Incr(c.Context(), key).Result()
		if err != nil {
			return c.Next()
		}
		if count == 1 {
			r.redis.Expire(c.Context(), key, r.window)
		}
		if count > r.limit {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}
