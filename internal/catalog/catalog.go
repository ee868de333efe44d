// Package catalog describes the infrastructure categories a scout run queries:
// where each one lives upstream, how its attributes map onto feature fields,
// and which records are eligible.
package catalog

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samirrijal/sitescout/internal/core/domain"
	"github.com/samirrijal/sitescout/internal/core/normalize"
	"github.com/samirrijal/sitescout/internal/pkg/config"
)

//go:embed categories.yaml
var defaultCatalog []byte

// GeometryKind is the shape a category's upstream layer returns.
type GeometryKind string

const (
	GeometryPoint    GeometryKind = "point"
	GeometryPolyline GeometryKind = "polyline"
	GeometryPolygon  GeometryKind = "polygon"
)

// Definition is one category entry.
type Definition struct {
	ID                domain.Category      `yaml:"id" json:"id"`
	Label             string               `yaml:"label" json:"label"`
	Source            string               `yaml:"source" json:"source"`
	URL               string               `yaml:"url" json:"url"`
	Where             string               `yaml:"where" json:"where"`
	Geometry          GeometryKind         `yaml:"geometry" json:"geometry"`
	AttributeLocation bool                 `yaml:"attribute_location" json:"-"`
	Fields            normalize.FieldTable `yaml:"fields" json:"-"`
	Defaults          map[string]string    `yaml:"defaults" json:"-"`
	Filters           []normalize.Filter   `yaml:"filters" json:"filters,omitempty"`
	DedupKey          []string             `yaml:"dedup" json:"dedup_key"`
	WatchField        string               `yaml:"watch_field" json:"-"`
	Disabled          bool                 `yaml:"disabled" json:"-"`

	watchList   []string
	onlyWatched bool
	mapProvider string
}

// NormalizeConfig converts the definition into normalizer input.
func (d Definition) NormalizeConfig() normalize.CategoryConfig {
	return normalize.CategoryConfig{
		Category:          d.ID,
		SourceLabel:       d.Source,
		Fields:            d.Fields,
		Defaults:          d.Defaults,
		Filters:           d.Filters,
		DedupKey:          d.DedupKey,
		WatchList:         d.watchList,
		WatchField:        d.WatchField,
		OnlyWatched:       d.onlyWatched,
		MapProvider:       d.mapProvider,
		AttributeLocation: d.AttributeLocation,
	}
}

// WhereClause is the base where clause ANDed with every filter that can be
// evaluated upstream, so the service returns fewer ineligible records. Only
// fields backed by a single attribute are pushed down: with fallbacks a record
// may carry the value under a later attribute, which only the client-side
// filter considers.
func (d Definition) WhereClause() string {
	var parts []string
	if base := strings.TrimSpace(d.Where); base != "" && base != "1=1" {
		parts = append(parts, "("+base+")")
	}

	for _, f := range d.Filters {
		attr, ok := d.pushdownAttr(f.Field)
		if !ok {
			continue
		}
		if f.Min != nil {
			parts = append(parts, fmt.Sprintf("%s >= %s", attr, strconv.FormatFloat(*f.Min, 'f', -1, 64)))
		}
		if f.Equals != "" {
			parts = append(parts, fmt.Sprintf("%s = %s", attr, quote(f.Equals)))
		}
	}

	if d.onlyWatched && len(d.watchList) > 0 {
		if attr, ok := d.pushdownAttr(d.watchField()); ok {
			likes := make([]string, 0, len(d.watchList))
			for _, w := range d.watchList {
				likes = append(likes, fmt.Sprintf("%s LIKE %s", attr, quote("%"+w+"%")))
			}
			parts = append(parts, "("+strings.Join(likes, " OR ")+")")
		}
	}

	if len(parts) == 0 {
		return "1=1"
	}
	return strings.Join(parts, " AND ")
}

func (d Definition) pushdownAttr(field string) (string, bool) {
	attrs := d.Fields[field]
	if len(attrs) != 1 {
		return "", false
	}
	return attrs[0], true
}

func (d Definition) watchField() string {
	if d.WatchField == "" {
		return normalize.FieldOwner
	}
	return d.WatchField
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Catalog is the ordered set of enabled categories.
type Catalog struct {
	defs []Definition
}

type document struct {
	Categories []Definition `yaml:"categories"`
}

// Parse reads a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	seen := make(map[domain.Category]bool, len(doc.Categories))
	for i, d := range doc.Categories {
		if d.ID == "" {
			return nil, fmt.Errorf("catalog entry %d: id is required", i)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("catalog entry %d: duplicate id %q", i, d.ID)
		}
		seen[d.ID] = true
		switch d.Geometry {
		case GeometryPoint, GeometryPolyline, GeometryPolygon:
		default:
			return nil, fmt.Errorf("catalog entry %q: unknown geometry %q", d.ID, d.Geometry)
		}
		if d.URL == "" {
			return nil, fmt.Errorf("catalog entry %q: url is required", d.ID)
		}
	}

	return &Catalog{defs: doc.Categories}, nil
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// New returns the built-in catalog with cfg applied.
func New(cfg *config.Config) (*Catalog, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	return c.Apply(cfg), nil
}

// Apply returns a copy of c with configuration overrides: source URLs and
// where clauses, extra field fallbacks, enable flags, voltage and state thresholds, the operator
// watch-list and the map provider.
func (c *Catalog) Apply(cfg *config.Config) *Catalog {
	out := &Catalog{defs: make([]Definition, len(c.defs))}

	for i, d := range c.defs {
		d.Filters = append([]normalize.Filter(nil), d.Filters...)
		d.mapProvider = cfg.Scout.MapProvider

		if src, ok := cfg.Sources[string(d.ID)]; ok {
			if src.URL != "" {
				d.URL = src.URL
			}
			if src.Where != "" {
				d.Where = src.Where
			}
			if src.Enabled != nil {
				d.Disabled = !*src.Enabled
			}
			if len(src.Fields) > 0 {
				d.Fields = d.Fields.Merge(src.Fields)
			}
		}

		switch d.ID {
		case domain.CategoryPipelines:
			d.watchList = cfg.Pipelines.Operators
			d.onlyWatched = cfg.Pipelines.OnlyWatched
		case domain.CategoryTransmission:
			setMin(d.Filters, normalize.FieldVoltage, cfg.Transmission.MinVoltageKV)
		case domain.CategorySubstations:
			setMin(d.Filters, normalize.FieldVoltage, cfg.Substations.MinVoltageKV)
			d.Filters = setEquals(d.Filters, normalize.FieldState, cfg.Substations.StateFilter)
		}

		out.defs[i] = d
	}
	return out
}

func setMin(filters []normalize.Filter, field string, v float64) {
	for i := range filters {
		if filters[i].Field == field && filters[i].Min != nil {
			threshold := v
			filters[i].Min = &threshold
		}
	}
}

// setEquals replaces the equality filter on field; an empty value removes it.
func setEquals(filters []normalize.Filter, field, v string) []normalize.Filter {
	out := filters[:0]
	for _, f := range filters {
		if f.Field == field && f.Min == nil {
			if v == "" {
				continue
			}
			f.Equals = v
		}
		out = append(out, f)
	}
	return out
}

// List returns the enabled categories in catalog order.
func (c *Catalog) List() []Definition {
	out := make([]Definition, 0, len(c.defs))
	for _, d := range c.defs {
		if !d.Disabled {
			out = append(out, d)
		}
	}
	return out
}

// Get returns an enabled category by id.
func (c *Catalog) Get(id domain.Category) (Definition, error) {
	for _, d := range c.defs {
		if d.ID == id && !d.Disabled {
			return d, nil
		}
	}
	return Definition{}, fmt.Errorf("%w: %s", domain.ErrUnknownCategory, id)
}
