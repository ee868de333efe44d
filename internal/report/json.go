package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/samirrijal/sitescout/internal/core/domain"
)

// Document is the JSON report layout.
type Document struct {
	Version        string                    `json:"site_scout_version"`
	ID             string                    `json:"report_id"`
	Query          QueryDoc                  `json:"query"`
	Infrastructure map[domain.Category]Layer `json:"infrastructure"`
	Connectivity   Connectivity              `json:"connectivity"`
	Regulatory     Regulatory                `json:"regulatory"`
	Summary        domain.Summary            `json:"summary"`
}

type QueryDoc struct {
	Coordinates domain.Coordinate `json:"coordinates"`
	RadiusKm    float64           `json:"radius_km"`
	Timestamp   string            `json:"timestamp"`
}

// Layer is one infrastructure category.
type Layer struct {
	Label    string           `json:"label"`
	Count    int              `json:"count"`
	Features domain.ResultSet `json:"features"`
	Error    string           `json:"error,omitempty"`
}

type Connectivity struct {
	Fiber domain.BroadbandSummary `json:"fiber"`
}

type Regulatory struct {
	CityLimits    domain.RegulatoryStatus `json:"city_limits"`
	EPAAttainment domain.AttainmentStatus `json:"epa_attainment"`
}

// NewDocument converts a report into its JSON layout.
func NewDocument(r *domain.Report) Document {
	doc := Document{
		Version: Version,
		ID:      r.ID,
		Query: QueryDoc{
			Coordinates: r.Query.Coordinate,
			RadiusKm:    r.Query.RadiusKm,
			Timestamp:   r.Query.Timestamp.UTC().Format(time.RFC3339),
		},
		Infrastructure: make(map[domain.Category]Layer, len(r.Sections)),
		Connectivity:   Connectivity{Fiber: r.Broadband},
		Regulatory: Regulatory{
			CityLimits:    r.CityLimits,
			EPAAttainment: r.Attainment,
		},
		Summary: r.Summary,
	}
	for _, s := range r.Sections {
		features := s.Features
		if features == nil {
			features = domain.ResultSet{}
		}
		doc.Infrastructure[s.Category] = Layer{
			Label:    s.Label,
			Count:    len(features),
			Features: features,
			Error:    s.Error,
		}
	}
	return doc
}

// WriteJSON writes the indented JSON document.
func WriteJSON(w io.Writer, r *domain.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(NewDocument(r))
}
