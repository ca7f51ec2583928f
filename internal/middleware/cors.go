package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS allows the dashboard origin to reach the relay API and upgrade the
// WebSocket from the browser.
func CORS(origin string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: origin,
		AllowMethods: "GET,POST",
		AllowHeaders: "Authorization,Content-Type,X-Admin-Key",
	})
}
