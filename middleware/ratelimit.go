// middleware/ratelimit.go
package middleware

import (
	"fmt"
	"log"

	"futeba-gamification-system/services"

	"github.com/gofiber/fiber/v2"
)

func setRateLimitHeaders(c *fiber.Ctx, cfg services.RateLimitConfig, result services.RateLimitResult) {
	c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.MaxRequests))
	c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
	c.Set("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetAt.Unix()))
}

// WithRateLimit guards a route with a per-user sliding window. Unauthenticated
// requests are rejected outright; the user id comes from the gateway context.
func WithRateLimit(limiter *services.RateLimiter, cfg services.RateLimitConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}

		result, err := limiter.CheckRateLimit(userID, cfg)
		if err != nil {
			log.Printf("[RateLimit] ❌ Check failed for user %s on %s: %v", userID, c.Path(), err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "rate limit check failed",
			})
		}

		setRateLimitHeaders(c, cfg, result)
		if !result.Allowed {
			log.Printf("🚫 [RateLimit] User %s throttled on %s", userID, c.Path())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":     "rate limit exceeded",
				"remaining": result.Remaining,
				"reset_at":  result.ResetAt,
			})
		}
		return c.Next()
	}
}

// WithRateLimitByIP guards public routes by client IP instead of user id.
func WithRateLimitByIP(limiter *services.RateLimiter, cfg services.RateLimitConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := limiter.CheckRateLimitByIP(c.IP(), cfg)
		if err != nil {
			log.Printf("[RateLimit] ❌ IP check failed for %s on %s: %v", c.IP(), c.Path(), err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "rate limit check failed",
			})
		}

		setRateLimitHeaders(c, cfg, result)
		if !result.Allowed {
			log.Printf("🚫 [RateLimit] IP %s throttled on %s", c.IP(), c.Path())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":     "rate limit exceeded",
				"remaining": result.Remaining,
				"reset_at":  result.ResetAt,
			})
		}
		return c.Next()
	}
}
