package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/sitescout/internal/adapters/http"
	"github.com/samirrijal/sitescout/internal/adapters/postgres"
	"github.com/samirrijal/sitescout/internal/bootstrap"
	"github.com/samirrijal/sitescout/internal/pkg/config"
	"github.com/samirrijal/sitescout/internal/pkg/logging"
	"github.com/samirrijal/sitescout/internal/pkg/metrics"
	"github.com/samirrijal/sitescout/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("sitescout-api", os.Getenv("SITESCOUT_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	svc, err := bootstrap.New(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("wire services: %v", err)
	}
	defer svc.Close()

	deps := &http.Dependencies{
		Scout:           svc.Scout,
		Reference:       svc.Reference,
		DefaultRadiusKm: cfg.Scout.DefaultRadiusKm,
		TopN:            cfg.Scout.TopN,
		RequestTimeout:  time.Duration(cfg.Server.RequestTimeout) * time.Second,
		RateLimit:       cfg.Server.RateLimit,
		DocsPath:        http.DefaultDocsPath,
	}
	// a nil *valkey.Cache must not become a non-nil Pinger
	if svc.Cache != nil {
		deps.Cache = svc.Cache
	}

	if svc.DB != nil {
		go reportPoolStats(ctx, svc.DB)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024, // GraphQL queries only
		AppName:      "Site Scout API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "categories", len(svc.Catalog.List()))
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// reportPoolStats refreshes the database pool gauges every 15s.
func reportPoolStats(ctx context.Context, db *postgres.DB) {
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}
