package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/sitescout/internal/catalog"
	"github.com/samirrijal/sitescout/internal/core/domain"
	"github.com/samirrijal/sitescout/internal/core/normalize"
	"github.com/samirrijal/sitescout/internal/core/ports"
	"github.com/samirrijal/sitescout/internal/pkg/metrics"
	"github.com/samirrijal/sitescout/internal/pkg/telemetry"
)

// ScoutService gathers every report section for one coordinate.
type ScoutService struct {
	catalog    *catalog.Catalog
	features   ports.FeatureSource
	normalizer *normalize.Normalizer
	broadband  *BroadbandService
	regulatory *RegulatoryService
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

// NewScoutService creates a new ScoutService. broadband and regulatory may be
// nil, in which case those sections are left empty.
func NewScoutService(
	cat *catalog.Catalog,
	features ports.FeatureSource,
	normalizer *normalize.Normalizer,
	broadband *BroadbandService,
	regulatory *RegulatoryService,
) *ScoutService {
	return &ScoutService{
		catalog:    cat,
		features:   features,
		normalizer: normalizer,
		broadband:  broadband,
		regulatory: regulatory,
		logger:     slog.Default(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// WithClock replaces the time source used for report timestamps.
func (s *ScoutService) WithClock(now func() time.Time) *ScoutService {
	s.now = now
	return s
}

// WithLogger replaces the logger.
func (s *ScoutService) WithLogger(l *slog.Logger) *ScoutService {
	s.logger = l
	return s
}

// Catalog returns the categories this service queries.
func (s *ScoutService) Catalog() *catalog.Catalog {
	return s.catalog
}

// ScoutCategory queries and normalizes one category. Upstream failures are
// reported on the result, not as an error; the error is reserved for invalid
// queries and unknown categories.
func (s *ScoutService) ScoutCategory(ctx context.Context, q domain.Query, id domain.Category) (domain.CategoryResult, error) {
	if err := q.Validate(); err != nil {
		return domain.CategoryResult{}, err
	}
	def, err := s.catalog.Get(id)
	if err != nil {
		return domain.CategoryResult{}, err
	}
	return s.scoutDefinition(ctx, q, def), nil
}

func (s *ScoutService) scoutDefinition(ctx context.Context, q domain.Query, def catalog.Definition) domain.CategoryResult {
	ctx, span := telemetry.Tracer().Start(ctx, "ScoutService.ScoutCategory")
	defer span.End()
	span.SetAttributes(telemetry.AttrCategory.String(string(def.ID)))

	result := domain.CategoryResult{
		Category: def.ID,
		Label:    def.Label,
		Features: domain.ResultSet{},
	}

	records, err := s.features.Query(ctx, ports.FeatureQuery{
		Endpoint: def.URL,
		Where:    def.WhereClause(),
		Origin:   q.Coordinate,
		RadiusKm: q.RadiusKm,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "category query failed", "category", def.ID, "error", err)
		metrics.CategoryErrors.WithLabelValues(string(def.ID)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream query failed")
		result.Error = fmt.Sprintf("%s query failed: %v", def.Label, err)
		return result
	}

	features, stats, err := s.normalizer.Normalize(q.Coordinate, def.NormalizeConfig(), records)
	if err != nil {
		// origin was validated above; only reachable on a programming error
		result.Error = err.Error()
		return result
	}

	metrics.RecordNormalize(string(def.ID), stats.Output, stats.Filtered, stats.NoGeometry, stats.Duplicates)
	if s.normalizer.Resolver().VertexOnly() {
		metrics.VertexOnlyResults.WithLabelValues(string(def.ID)).Add(float64(stats.Output))
	}
	span.SetAttributes(telemetry.AttrFeatures.Int(stats.Output))

	result.Features = features
	return result
}

// Scout runs every enabled category plus the broadband and regulatory checks
// concurrently and assembles the report. Section failures are recorded on the
// report; only an invalid query or a cancelled context returns an error.
func (s *ScoutService) Scout(ctx context.Context, q domain.Query) (*domain.Report, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.Timestamp.IsZero() {
		q.Timestamp = s.now().UTC()
	}

	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, "ScoutService.Scout")
	defer span.End()
	span.SetAttributes(
		telemetry.AttrLat.Float64(q.Coordinate.Lat),
		telemetry.AttrLon.Float64(q.Coordinate.Lon),
		telemetry.AttrRadiusKm.Float64(q.RadiusKm),
		telemetry.AttrVertexOnly.Bool(s.normalizer.Resolver().VertexOnly()),
	)

	s.logger.InfoContext(ctx, "scouting site",
		"lat", q.Coordinate.Lat, "lon", q.Coordinate.Lon, "radius_km", q.RadiusKm)

	defs := s.catalog.List()
	sections := make([]domain.CategoryResult, len(defs))
	var bb domain.BroadbandSummary
	reg := UnknownRegulatory("regulatory checks not configured")

	// every goroutine writes its own slot and never returns an error
	g, gctx := errgroup.WithContext(ctx)
	for i, def := range defs {
		i, def := i, def
		g.Go(func() error {
			sections[i] = s.scoutDefinition(gctx, q, def)
			return nil
		})
	}
	if s.broadband != nil {
		g.Go(func() error {
			bb = s.broadband.Summary(gctx, q.Coordinate)
			return nil
		})
	}
	if s.regulatory != nil {
		g.Go(func() error {
			reg = s.regulatory.Check(gctx, q.Coordinate)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		metrics.ScoutRuns.WithLabelValues("cancelled").Inc()
		span.SetStatus(codes.Error, "cancelled")
		return nil, err
	}

	report := Assemble(s.newID(), q, sections, bb, reg)

	status := "ok"
	for _, sec := range report.Sections {
		if sec.Error != "" {
			status = "partial"
		}
	}
	if report.Broadband.Error != "" || report.CityLimits.Error != "" || report.Attainment.Error != "" {
		status = "partial"
	}
	metrics.ScoutRuns.WithLabelValues(status).Inc()
	metrics.ScoutDuration.Observe(time.Since(start).Seconds())

	s.logger.InfoContext(ctx, "scout complete",
		"id", report.ID, "status", status, "duration", time.Since(start).String())
	return report, nil
}

// Assemble builds a report from independently gathered parts and computes
// its summary.
func Assemble(id string, q domain.Query, sections []domain.CategoryResult, bb domain.BroadbandSummary, reg RegulatoryResult) *domain.Report {
	if bb.Providers == nil {
		bb.Providers = []string{}
	}
	if bb.Technologies == nil {
		bb.Technologies = []string{}
	}
	if reg.Attainment.PollutantsNonattainment == nil {
		reg.Attainment.PollutantsNonattainment = []string{}
	}

	r := &domain.Report{
		ID:         id,
		Query:      q,
		Sections:   sections,
		Broadband:  bb,
		CityLimits: reg.CityLimits,
		Attainment: reg.Attainment,
	}
	r.Summary = Summarize(r)
	return r
}
