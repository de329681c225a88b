package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CorsMiddleware ให้ player บน origin อื่นเรียก /token, /key และโหลด segment ได้
func CorsMiddleware(allowOrigins string) fiber.Handler {
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins:  allowOrigins,
		AllowMethods:  "GET,POST,OPTIONS,HEAD",
		AllowHeaders:  "Origin,Content-Type,Accept,Authorization,Range,X-Request-ID",
		ExposeHeaders: "Content-Length,Content-Range,Accept-Ranges,Content-Type,X-Request-ID",
	})
}
