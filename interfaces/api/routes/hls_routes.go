package routes

import (
	"github.com/gofiber/fiber/v2"

	"keygate/interfaces/api/handlers"
)

func SetupHLSRoutes(app *fiber.App, h *handlers.HLSHandler) {
	// playlist และ segment ที่เข้ารหัสแล้ว ไม่ต้องมี token
	// GET /protected_hls/:video/out.m3u8, /protected_hls/:video/seg_000.ts
	app.Get("/protected_hls/:video/*", h.ServeHLS)
}
