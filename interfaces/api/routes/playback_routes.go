package routes

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"keygate/interfaces/api/handlers"
)

// SetupPlaybackRoutes token, key gate และ fake checkout
//
//	GET  /token[?video=]
//	GET  <keyPathPrefix>:video   (default /key/:video)
//	POST /session
func SetupPlaybackRoutes(router fiber.Router, h *handlers.Handlers, keyPathPrefix string, mw ...fiber.Handler) {
	chain := func(handler fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, mw...), handler)
	}
	router.Get("/token", chain(h.TokenHandler.GetToken)...)
	router.Get(KeyRoute(keyPathPrefix), chain(h.KeyHandler.GetKey)...)
	router.Post("/session", chain(h.CheckoutHandler.CreateSession)...)
}

// KeyRoute แปลง prefix ("/key/") เป็น route pattern ("/key/:video")
func KeyRoute(keyPathPrefix string) string {
	prefix := "/" + strings.Trim(keyPathPrefix, "/")
	if prefix == "/" {
		prefix = "/key"
	}
	return prefix + "/:video"
}
