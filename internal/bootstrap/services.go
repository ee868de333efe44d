// Package bootstrap wires configuration into the adapters and services that
// every command shares.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/sitescout/internal/adapters/arcgis"
	"github.com/samirrijal/sitescout/internal/adapters/census"
	"github.com/samirrijal/sitescout/internal/adapters/fcc"
	"github.com/samirrijal/sitescout/internal/adapters/postgres"
	"github.com/samirrijal/sitescout/internal/adapters/reference"
	"github.com/samirrijal/sitescout/internal/adapters/upstream"
	"github.com/samirrijal/sitescout/internal/adapters/valkey"
	"github.com/samirrijal/sitescout/internal/catalog"
	"github.com/samirrijal/sitescout/internal/core/normalize"
	"github.com/samirrijal/sitescout/internal/core/ports"
	"github.com/samirrijal/sitescout/internal/core/usecases"
	"github.com/samirrijal/sitescout/internal/pkg/config"
	"github.com/samirrijal/sitescout/internal/pkg/geospatial"
)

// Options adjust wiring beyond what the config file says.
type Options struct {
	VertexOnly bool         // force vertex-only resolution
	Logger     *slog.Logger // nil means slog.Default()
}

// Services is the wired object graph.
type Services struct {
	Catalog    *catalog.Catalog
	Scout      *usecases.ScoutService
	Broadband  *usecases.BroadbandService // nil when broadband.enabled is false
	Regulatory *usecases.RegulatoryService
	Reference  ports.ReferenceRepository
	Cache      *valkey.Cache // nil when disabled or unreachable
	DB         *postgres.DB  // nil unless reference.source is postgres

	closers []func()
}

// New builds every service from cfg. The upstream cache is optional: when it
// cannot be reached the services run uncached. A postgres reference store
// that cannot be reached is an error.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Services, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Services{}

	cat, err := catalog.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	s.Catalog = cat

	var cache ports.CacheService
	if cfg.Cache.Addr != "" {
		vc, err := valkey.New(cfg.Cache.Addr)
		if err != nil {
			logger.Warn("valkey unavailable, upstream responses will not be cached", "addr", cfg.Cache.Addr, "error", err)
		} else {
			s.Cache = vc
			cache = vc
			s.closers = append(s.closers, vc.Close)
		}
	}

	switch cfg.Reference.Source {
	case "postgres":
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("reference database: %w", err)
		}
		s.DB = db
		s.closers = append(s.closers, db.Close)
		s.Reference = postgres.NewReferenceRepo(db)
	default:
		store := reference.NewFileStore(cfg.Reference.CacheDir)
		logger.Debug("using file reference store", "path", store.Path())
		s.Reference = store
	}

	upOpts := upstream.OptionsFromConfig(cfg, cache)
	features := arcgis.New(upstream.New("arcgis", upOpts))
	geo := census.New(upstream.New("census", upOpts), cfg.Census)

	if cfg.Broadband.Enabled {
		s.Broadband = usecases.NewBroadbandService(fcc.New(upstream.New("fcc", upOpts), cfg.Broadband.URL))
	}
	s.Regulatory = usecases.NewRegulatoryService(geo, s.Reference, cfg.Scout.State)

	resolver := geospatial.NewResolver()
	if opts.VertexOnly || cfg.Scout.VertexOnly {
		logger.Warn("vertex-only resolution enabled; distances to long segments are overestimated")
		resolver = geospatial.NewVertexResolver()
	}

	s.Scout = usecases.NewScoutService(cat, features, normalize.New(resolver, logger), s.Broadband, s.Regulatory).
		WithLogger(logger)
	return s, nil
}

// Close releases connections in reverse order of creation.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
