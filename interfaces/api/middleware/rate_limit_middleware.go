package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"keygate/pkg/logger"
	"keygate/pkg/utils"
)

// RateLimitMiddleware จำกัด request ต่อ IP (in-memory ต่อ instance)
// max <= 0 = ปิด
func RateLimitMiddleware(max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			logger.WarnContext(c.UserContext(), "Rate limit reached", "ip", c.IP(), "path", c.Path())
			return utils.ErrorResponse(c, fiber.StatusTooManyRequests, utils.ErrCodeRateLimited, "Too many requests", nil)
		},
	})
}
