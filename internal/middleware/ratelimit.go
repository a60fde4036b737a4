package middleware

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pantrypal/api/pkg/response"
)

type RateLimiter struct {
	redis *redis.Client
}

// NewRateLimiter returns a limiter backed by Redis. A nil client disables limiting.
func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// Limit creates a fixed-window rate limiting middleware keyed by user
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rl.redis == nil || maxRequests <= 0 {
			return c.Next()
		}
		userID := GetUserID(c)
		if userID == "" {
			return c.Next() // auth middleware rejects anonymous calls
		}

		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, userID)
		ctx := c.UserContext()

		count, err := rl.redis.Incr(ctx, key).Result()
		if err != nil {
			// fail open
			slog.Warn("rate limit counter unavailable", "key", key, "error", err)
			return c.Next()
		}

		if count == 1 {
			rl.redis.Expire(ctx, key, window)
		}

		if count > int64(maxRequests) {
			ttl, _ := rl.redis.TTL(ctx, key).Result()
			c.Set("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			return response.RateLimited(c)
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-int(count)))

		return c.Next()
	}
}

// ReceiptLimit limits receipt scans, the most expensive pipeline call
func (rl *RateLimiter) ReceiptLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("receipt", maxPerHour, time.Hour)
}

// PipelineLimit limits the other pipeline-backed routes (from-url, suggestions)
func (rl *RateLimiter) PipelineLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("pipeline", maxPerHour, time.Hour)
}
