// Package arcgis queries ArcGIS FeatureServer and MapServer layers (HIFLD,
// EIA, TIGERweb) for every feature within a radius of a point.
package arcgis

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/samirrijal/sitescout/internal/adapters/upstream"
	"github.com/samirrijal/sitescout/internal/core/domain"
	"github.com/samirrijal/sitescout/internal/core/ports"
	"github.com/samirrijal/sitescout/internal/pkg/telemetry"
)

// DefaultMaxPages caps how many result pages are requested when a layer
// reports exceededTransferLimit.
const DefaultMaxPages = 10

// Client implements ports.FeatureSource.
type Client struct {
	http     *upstream.Client
	maxPages int
}

var _ ports.FeatureSource = (*Client)(nil)

// New creates an ArcGIS client on top of a shared upstream fetcher.
func New(http *upstream.Client) *Client {
	return &Client{http: http, maxPages: DefaultMaxPages}
}

// WithMaxPages overrides DefaultMaxPages.
func (c *Client) WithMaxPages(n int) *Client {
	if n > 0 {
		c.maxPages = n
	}
	return c
}

// Query runs a point-distance spatial query with geometries returned in WGS 84.
func (c *Client) Query(ctx context.Context, q ports.FeatureQuery) ([]domain.RawRecord, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "arcgis.Query")
	defer span.End()
	span.SetAttributes(telemetry.AttrSource.String(q.Endpoint))

	params := queryParams(q)
	var records []domain.RawRecord

	for page := 0; page < c.maxPages; page++ {
		if page > 0 {
			params.Set("resultOffset", strconv.Itoa(len(records)))
		}

		var resp queryResponse
		if err := c.http.GetJSON(ctx, q.Endpoint, params, &resp); err != nil {
			return nil, err
		}
		for _, f := range resp.Features {
			records = append(records, domain.RawRecord{
				Attributes: f.Attributes,
				Geometry:   f.Geometry.toDomain(),
			})
		}

		if !resp.ExceededTransferLimit || len(resp.Features) == 0 {
			break
		}
	}

	span.SetAttributes(telemetry.AttrFeatures.Int(len(records)))
	if records == nil {
		records = []domain.RawRecord{}
	}
	return records, nil
}

func queryParams(q ports.FeatureQuery) url.Values {
	where := q.Where
	if where == "" {
		where = "1=1"
	}
	return url.Values{
		"f":              {"json"},
		"where":          {where},
		"geometry":       {fmt.Sprintf("%f,%f", q.Origin.Lon, q.Origin.Lat)},
		"geometryType":   {"esriGeometryPoint"},
		"inSR":           {"4326"},
		"spatialRel":     {"esriSpatialRelIntersects"},
		"distance":       {strconv.FormatFloat(q.RadiusKm, 'f', -1, 64)},
		"units":          {"esriSRUnit_Kilometer"},
		"outFields":      {"*"},
		"returnGeometry": {"true"},
		"outSR":          {"4326"},
	}
}
