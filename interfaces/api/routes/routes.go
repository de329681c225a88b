package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"keygate/interfaces/api/handlers"
	"keygate/interfaces/api/middleware"
	"keygate/pkg/utils"
)

// Options ค่าที่ routes ต้องใช้จาก config
type Options struct {
	ServiceName     string
	KeyPathPrefix   string
	RateLimitMax    int
	RateLimitWindow time.Duration
	HealthChecks    map[string]HealthCheck
}

func SetupRoutes(app *fiber.App, h *handlers.Handlers, opts Options) {
	SetupHealthRoutes(app, opts.ServiceName, opts.HealthChecks)
	SetupMetricsRoutes(app)

	// token / key / session มี rate limit ต่อ IP
	limit := middleware.RateLimitMiddleware(opts.RateLimitMax, opts.RateLimitWindow)
	SetupPlaybackRoutes(app, h, opts.KeyPathPrefix, limit)

	SetupHLSRoutes(app, h.HLSHandler)

	app.Use(func(c *fiber.Ctx) error {
		return utils.NotFoundResponse(c, "Route not found")
	})
}
