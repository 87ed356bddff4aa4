package middleware

import (
	"crypto/subtle"
	"log"

	"github.com/gofiber/fiber/v2"
)

// APIKeyMiddleware guards the analysis endpoints with a static service key.
// This middleware checks the X-API-Key header against the configured key.
// When no key is configured it is a pass-through, for local single-user use.
func APIKeyMiddleware(serviceKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if serviceKey == "" {
			return c.Next()
		}

		apiKey := c.Get("X-API-Key")
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing API key. Include X-API-Key header.",
			})
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(serviceKey)) != 1 {
			log.Printf("❌ [APIKEY-AUTH] Invalid key attempt from %s", c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid API key",
			})
		}

		return c.Next()
	}
}
