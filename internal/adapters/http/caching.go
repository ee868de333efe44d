package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control on GET responses by endpoint unless
// the handler already set one.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}
		if string(c.Response().Header.Peek(fiber.HeaderCacheControl)) != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/v1/categories":
			ttl = "public, max-age=3600" // catalog only changes on restart

		case path == "/metrics":
			ttl = "no-cache"

		case strings.HasPrefix(path, "/v1/scout"):
			ttl = "no-store"

		case strings.HasPrefix(path, "/docs"):
			ttl = "public, max-age=86400"

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=300"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}
		return err
	}
}
