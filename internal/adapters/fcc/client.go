// Package fcc reads broadband availability from the FCC National Broadband Map.
package fcc

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/samirrijal/sitescout/internal/adapters/upstream"
	"github.com/samirrijal/sitescout/internal/core/domain"
	"github.com/samirrijal/sitescout/internal/core/ports"
)

// DefaultURL is the public availability listing endpoint.
const DefaultURL = "https://broadbandmap.fcc.gov/api/public/map/listAvailabilities"

// Client implements ports.BroadbandSource.
type Client struct {
	http     *upstream.Client
	endpoint string
}

var _ ports.BroadbandSource = (*Client)(nil)

// New creates a client for endpoint, or DefaultURL when empty.
func New(http *upstream.Client, endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultURL
	}
	return &Client{http: http, endpoint: endpoint}
}

type availabilityResponse struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Results []map[string]any `json:"results"`
}

func (r *availabilityResponse) Validate() error {
	if strings.EqualFold(r.Status, "error") {
		return fmt.Errorf("fcc: %s", r.Message)
	}
	return nil
}

// Availability lists every provider/technology offer at a location.
func (c *Client) Availability(ctx context.Context, at domain.Coordinate) ([]domain.BroadbandOffer, error) {
	params := url.Values{
		"latitude":  {strconv.FormatFloat(at.Lat, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(at.Lon, 'f', -1, 64)},
	}

	var resp availabilityResponse
	if err := c.http.GetJSON(ctx, c.endpoint, params, &resp); err != nil {
		return nil, fmt.Errorf("fcc availability: %w", err)
	}

	offers := make([]domain.BroadbandOffer, 0, len(resp.Results))
	for _, r := range resp.Results {
		offers = append(offers, domain.BroadbandOffer{
			Provider:     text(r["provider_name"]),
			Technology:   text(r["technology"]),
			DownloadMbps: number(r["max_advertised_download_speed"]),
			UploadMbps:   number(r["max_advertised_upload_speed"]),
		})
	}
	return offers, nil
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	}
	return ""
}

// number treats missing or unparsable speeds as 0.
func number(v any) float64 {
	var f float64
	switch t := v.(type) {
	case json.Number:
		f, _ = t.Float64()
	case string:
		f, _ = strconv.ParseFloat(strings.TrimSpace(t), 64)
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
