// Package normalize turns raw feature-service records into ranked,
// deduplicated InfrastructureFeature result sets.
package normalize

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/samirrijal/sitescout/internal/core/domain"
	"github.com/samirrijal/sitescout/internal/pkg/geospatial"
)

// DefaultDisplayName is used when every name fallback is exhausted.
const DefaultDisplayName = "Unknown"

// Filter is a geometry-independent eligibility rule on one logical field.
// A record missing the field fails the filter.
type Filter struct {
	Field  string   `yaml:"field"`
	Min    *float64 `yaml:"min,omitempty"`    // inclusive numeric lower bound
	Equals string   `yaml:"equals,omitempty"` // case-insensitive string match
}

// Accept reports whether the record passes the filter.
func (f Filter) Accept(fields FieldTable, attrs map[string]any) bool {
	if f.Min != nil {
		v, ok := fields.Number(attrs, f.Field)
		if !ok || v < *f.Min {
			return false
		}
	}
	if f.Equals != "" {
		v, ok := fields.String(attrs, f.Field)
		if !ok || !strings.EqualFold(v, f.Equals) {
			return false
		}
	}
	return true
}

// CategoryConfig is everything the normalizer needs to know about one category.
type CategoryConfig struct {
	Category    domain.Category
	SourceLabel string
	Fields      FieldTable
	Defaults    map[string]string // per-field default when fallbacks are exhausted
	Filters     []Filter
	DedupKey    []string // logical fields; the rounded distance is always appended
	WatchList   []string
	WatchField  string // logical field matched against WatchList, FieldOwner when empty
	// OnlyWatched drops records whose watch field matches no watch-list entry.
	OnlyWatched bool
	MapProvider string
	// AttributeLocation prefers FieldLat/FieldLon attributes over the geometry.
	AttributeLocation bool
}

// Stats counts what happened to a batch.
type Stats struct {
	Input      int
	Filtered   int
	NoGeometry int
	Duplicates int
	Output     int
}

// Normalizer resolves, filters, deduplicates and ranks raw records.
// It keeps no per-call state and is safe for concurrent use.
type Normalizer struct {
	resolver *geospatial.Resolver
	logger   *slog.Logger
}

// New creates a Normalizer. A nil logger falls back to slog.Default().
func New(resolver *geospatial.Resolver, logger *slog.Logger) *Normalizer {
	if resolver == nil {
		resolver = geospatial.NewResolver()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{resolver: resolver, logger: logger}
}

// Resolver returns the geometry resolver in use.
func (n *Normalizer) Resolver() *geospatial.Resolver {
	return n.resolver
}

// Normalize converts a batch of raw records into a ResultSet sorted by
// ascending distance, ties kept in input order. Malformed records are dropped;
// the only error is an invalid origin.
func (n *Normalizer) Normalize(origin domain.Coordinate, cfg CategoryConfig, records []domain.RawRecord) (domain.ResultSet, Stats, error) {
	if err := origin.Validate(); err != nil {
		return nil, Stats{}, err
	}

	stats := Stats{Input: len(records)}
	out := make(domain.ResultSet, 0, len(records))
	seen := make(map[string]struct{}, len(records))

	for i, rec := range records {
		if !n.eligible(cfg, rec.Attributes) {
			stats.Filtered++
			continue
		}

		prox, ok := n.resolver.Resolve(origin, n.location(cfg, rec))
		if !ok {
			stats.NoGeometry++
			n.logger.Debug("dropping feature without geometry",
				"category", cfg.Category, "index", i)
			continue
		}

		f := n.build(cfg, rec.Attributes, prox)

		key := dedupKey(cfg, rec.Attributes, f.DistanceKm)
		if _, dup := seen[key]; dup {
			stats.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		out = append(out, f)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})

	stats.Output = len(out)
	n.logger.Debug("normalized category",
		"category", cfg.Category,
		"input", stats.Input,
		"output", stats.Output,
		"filtered", stats.Filtered,
		"no_geometry", stats.NoGeometry,
		"duplicates", stats.Duplicates,
	)
	return out, stats, nil
}

func (n *Normalizer) eligible(cfg CategoryConfig, attrs map[string]any) bool {
	for _, f := range cfg.Filters {
		if !f.Accept(cfg.Fields, attrs) {
			return false
		}
	}
	if cfg.OnlyWatched && len(cfg.WatchList) > 0 {
		v, ok := cfg.Fields.String(attrs, watchField(cfg))
		if !ok || !Watched(v, cfg.WatchList) {
			return false
		}
	}
	return true
}

func watchField(cfg CategoryConfig) string {
	if cfg.WatchField == "" {
		return FieldOwner
	}
	return cfg.WatchField
}

// location picks the geometry to resolve against. Point-like sources such as
// power plants publish LATITUDE/LONGITUDE attributes that are more reliable
// than their projected geometry.
func (n *Normalizer) location(cfg CategoryConfig, rec domain.RawRecord) domain.Geometry {
	if !cfg.AttributeLocation {
		return rec.Geometry
	}
	lat, okLat := cfg.Fields.Number(rec.Attributes, FieldLat)
	lon, okLon := cfg.Fields.Number(rec.Attributes, FieldLon)
	if !okLat || !okLon {
		return rec.Geometry
	}
	c := domain.Coordinate{Lat: lat, Lon: lon}
	if c.Validate() != nil {
		return rec.Geometry
	}
	return domain.Point{At: c}
}

func (n *Normalizer) build(cfg CategoryConfig, attrs map[string]any, prox domain.ProximityResult) domain.InfrastructureFeature {
	// a field the category maps but the record lacks falls back to its
	// configured default, then to DefaultDisplayName
	str := func(field string) string {
		if s, ok := cfg.Fields.String(attrs, field); ok {
			return s
		}
		if d, ok := cfg.Defaults[field]; ok {
			return d
		}
		if len(cfg.Fields[field]) > 0 {
			return DefaultDisplayName
		}
		return ""
	}
	num := func(field string) *float64 {
		if v, ok := cfg.Fields.Number(attrs, field); ok {
			return &v
		}
		return nil
	}

	f := domain.InfrastructureFeature{
		Category:        cfg.Category,
		DisplayName:     str(FieldName),
		Owner:           str(FieldOwner),
		Type:            str(FieldType),
		Status:          str(FieldStatus),
		VoltageKV:       num(FieldVoltage),
		CapacityMW:      num(FieldCapacity),
		PrimarySource:   str(FieldSource),
		Inside:          prox.Inside,
		DistanceKm:      prox.DistanceKm,
		DistanceMi:      geospatial.KmToMi(prox.DistanceKm),
		NearestPoint:    prox.NearestPoint,
		Bearing:         prox.Bearing,
		Mode:            prox.Mode,
		VerificationURL: geospatial.VerificationURL(mapProvider(cfg), prox.NearestPoint),
		SourceLabel:     cfg.SourceLabel,
	}
	if f.DisplayName == "" {
		f.DisplayName = DefaultDisplayName
	}
	if lines := num(FieldLines); lines != nil {
		count := int(math.Round(*lines))
		f.LineCount = &count
	}

	if v, ok := cfg.Fields.String(attrs, watchField(cfg)); ok {
		f.Starred = Watched(v, cfg.WatchList)
	}

	return f
}

func mapProvider(cfg CategoryConfig) string {
	if cfg.MapProvider == "" {
		return "maps.google.com"
	}
	return cfg.MapProvider
}

// Watched reports whether value contains any watch-list entry, ignoring case.
func Watched(value string, watchList []string) bool {
	v := strings.ToLower(value)
	for _, w := range watchList {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && strings.Contains(v, w) {
			return true
		}
	}
	return false
}

// numericFields compare by value in dedup keys, so "138 kV" equals 138.
var numericFields = map[string]struct{}{
	FieldVoltage:  {},
	FieldCapacity: {},
	FieldLines:    {},
}

// dedupKey joins the lowercased key fields with the distance rounded to the
// nearest whole kilometer. Missing fields contribute an empty component.
func dedupKey(cfg CategoryConfig, attrs map[string]any, km float64) string {
	var b strings.Builder
	for _, field := range cfg.DedupKey {
		v, _ := cfg.Fields.String(attrs, field)
		if _, numeric := numericFields[field]; numeric {
			if num, ok := cfg.Fields.Number(attrs, field); ok {
				v = strconv.FormatFloat(num, 'f', -1, 64)
			}
		}
		b.WriteString(strings.ToLower(v))
		b.WriteByte('|')
	}
	fmt.Fprintf(&b, "%d", int64(math.Round(km)))
	return b.String()
}
