package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"

	"github.com/samirrijal/sitescout/internal/pkg/metrics"
	"github.com/samirrijal/sitescout/internal/report"
)

// SetupRoutes registers all REST and GraphQL routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Each scout fans out to several rate-limited upstreams, so the
	// per-IP budget is far lower than a typical read API's.
	app.Use(limiter.New(limiter.Config{
		Max:        deps.rateLimit(),
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: errRateLimited,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return p == "/v1/health" || p == "/v1/ready" || p == "/metrics"
		},
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", report.Version)
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	budget := deps.requestTimeout()
	v1 := app.Group("/v1")
	v1.Get("/categories", CategoriesHandler(deps))
	v1.Get("/scout", timeout.NewWithContext(ScoutHandler(deps), budget))
	v1.Get("/scout/:category", timeout.NewWithContext(ScoutCategoryHandler(deps), budget))

	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), budget))

	SetupDocs(app, deps.DocsPath)
}
