// Package census resolves the incorporated place, county and tract containing
// a coordinate via the US Census Bureau geocoder.
package census

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/samirrijal/sitescout/internal/adapters/upstream"
	"github.com/samirrijal/sitescout/internal/core/domain"
	"github.com/samirrijal/sitescout/internal/core/ports"
	"github.com/samirrijal/sitescout/internal/pkg/config"
)

// Geography layer names in the geocoder response.
const (
	layerPlaces   = "Incorporated Places"
	layerCounties = "Counties"
	layerTracts   = "Census Tracts"
)

// Client implements ports.GeographyLookup.
type Client struct {
	http      *upstream.Client
	endpoint  string
	benchmark string
	vintage   string
}

var _ ports.GeographyLookup = (*Client)(nil)

// New creates a geocoder client from the census config section.
func New(http *upstream.Client, cfg config.CensusConfig) *Client {
	return &Client{
		http:      http,
		endpoint:  cfg.GeocoderURL,
		benchmark: cfg.Benchmark,
		vintage:   cfg.Vintage,
	}
}

type geographyResponse struct {
	Result *struct {
		Geographies map[string][]map[string]any `json:"geographies"`
	} `json:"result"`
	Errors []string `json:"errors"`
}

func (r *geographyResponse) Validate() error {
	if len(r.Errors) > 0 {
		return fmt.Errorf("census geocoder: %s", strings.Join(r.Errors, "; "))
	}
	return nil
}

// Geographies returns the census geographies containing at. A location with
// no county (offshore, outside the US) yields an empty CountyFIPS.
func (c *Client) Geographies(ctx context.Context, at domain.Coordinate) (*domain.Geographies, error) {
	params := url.Values{
		"x":         {strconv.FormatFloat(at.Lon, 'f', -1, 64)},
		"y":         {strconv.FormatFloat(at.Lat, 'f', -1, 64)},
		"benchmark": {c.benchmark},
		"vintage":   {c.vintage},
		"format":    {"json"},
	}

	var resp geographyResponse
	if err := c.http.GetJSON(ctx, c.endpoint, params, &resp); err != nil {
		return nil, fmt.Errorf("census geographies: %w", err)
	}

	g := &domain.Geographies{}
	if resp.Result == nil {
		return g, nil
	}
	layers := resp.Result.Geographies

	if place, ok := first(layers[layerPlaces]); ok {
		g.InCity = true
		g.CityName = field(place, "NAME")
		g.State = field(place, "STATE")
	}
	if county, ok := first(layers[layerCounties]); ok {
		g.County = field(county, "NAME")
		state, code := field(county, "STATE"), field(county, "COUNTY")
		if state != "" && code != "" {
			g.CountyFIPS = state + code
		}
		if g.State == "" {
			g.State = state
		}
	}
	if tract, ok := first(layers[layerTracts]); ok {
		g.CensusTract = field(tract, "TRACT")
	}
	return g, nil
}

func first(rows []map[string]any) (map[string]any, bool) {
	if len(rows) == 0 {
		return nil, false
	}
	return rows[0], true
}

func field(row map[string]any, key string) string {
	switch v := row[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	}
	return ""
}
