// Package report renders a scout report as markdown, JSON or GeoJSON.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/samirrijal/sitescout/internal/core/domain"
)

// Version is stamped into JSON output as site_scout_version.
const Version = "1.0.0"

// Format selects a renderer.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatGeoJSON  Format = "geojson"
)

// ParseFormat accepts the format names plus the "md" shorthand.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json", "":
		return FormatJSON, nil
	case "geojson":
		return FormatGeoJSON, nil
	}
	return "", fmt.Errorf("unknown format %q (want markdown, json or geojson)", s)
}

// ContentType returns the HTTP media type of a format.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatGeoJSON:
		return "application/geo+json"
	default:
		return "application/json"
	}
}

// Options tune rendering.
type Options struct {
	// TopN caps the features listed per category in markdown; 0 means 10.
	TopN int
}

func (o Options) topN() int {
	if o.TopN <= 0 {
		return 10
	}
	return o.TopN
}

// Render writes r to w in format f.
func Render(w io.Writer, r *domain.Report, f Format, opts Options) error {
	switch f {
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(r, opts))
		return err
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatGeoJSON:
		return WriteGeoJSON(w, r)
	}
	return fmt.Errorf("unknown format %q", f)
}
