package http

import (
	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on GET responses that did not set
// one. Session data changes on every edit, so clients must revalidate.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}

		switch c.Path() {
		case "/v1/health", "/v1/ready", "/metrics":
			c.Set(fiber.HeaderCacheControl, "no-store")
		default:
			c.Set(fiber.HeaderCacheControl, "no-cache")
		}
		return err
	}
}
