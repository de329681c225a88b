package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"keygate/pkg/utils"
)

// HealthCheck ตรวจ dependency หนึ่งตัว (redis, nats, ...)
type HealthCheck func(ctx context.Context) error

func SetupHealthRoutes(app *fiber.App, serviceName string, checks map[string]HealthCheck) {
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status := "ok"
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = "down"
				status = "degraded"
				continue
			}
			deps[name] = "up"
		}

		if status != "ok" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(utils.Response{
				Success: false,
				Data: fiber.Map{
					"status":       status,
					"service":      serviceName,
					"dependencies": deps,
				},
			})
		}

		return utils.SuccessResponse(c, fiber.Map{
			"status":       status,
			"service":      serviceName,
			"dependencies": deps,
		})
	})
}
