package domain

import (
	"fmt"
	"math"
	"time"
)

// Category identifies one queried infrastructure layer (e.g. "pipelines").
type Category string

const (
	CategoryPipelines    Category = "pipelines"
	CategoryTransmission Category = "transmission_lines"
	CategorySubstations  Category = "substations"
	CategoryPowerPlants  Category = "power_plants"
	CategoryCityLimits   Category = "city_limits"
)

// RawRecord is one feature as returned by a remote feature service,
// already decoded from the wire format.
type RawRecord struct {
	Attributes map[string]any
	Geometry   Geometry // nil when the service returned no geometry
}

// InfrastructureFeature is the canonical, normalised form of a RawRecord.
type InfrastructureFeature struct {
	Category        Category    `json:"category"`
	DisplayName     string      `json:"name"`
	Owner           string      `json:"owner,omitempty"` // operator for pipelines and plants
	Type            string      `json:"type,omitempty"`
	Status          string      `json:"status,omitempty"`
	VoltageKV       *float64    `json:"voltage_kv,omitempty"`
	CapacityMW      *float64    `json:"capacity_mw,omitempty"`
	PrimarySource   string      `json:"primary_source,omitempty"`
	LineCount       *int        `json:"line_count,omitempty"`
	Inside          *bool       `json:"inside,omitempty"` // city limits only
	DistanceKm      float64     `json:"distance_km"`
	DistanceMi      float64     `json:"distance_mi"`
	NearestPoint    Coordinate  `json:"nearest_point"`
	Bearing         Octant      `json:"direction,omitempty"`
	Mode            ResolveMode `json:"resolve_mode"`
	Starred         bool        `json:"starred,omitempty"`
	VerificationURL string      `json:"verification_url"`
	SourceLabel     string      `json:"source"`
}

// ResultSet is a deduplicated list of features sorted by ascending distance.
type ResultSet []InfrastructureFeature

// Nearest returns the first (closest) feature, if any.
func (rs ResultSet) Nearest() (InfrastructureFeature, bool) {
	if len(rs) == 0 {
		return InfrastructureFeature{}, false
	}
	return rs[0], true
}

// CategoryResult is the outcome of querying one category.
// Error is set when the upstream fetch failed; Features is then empty.
type CategoryResult struct {
	Category Category  `json:"category"`
	Label    string    `json:"label"`
	Features ResultSet `json:"features"`
	Error    string    `json:"error,omitempty"`
}

// BroadbandOffer is one provider/technology row from a broadband availability source.
type BroadbandOffer struct {
	Provider     string  `json:"provider"`
	Technology   string  `json:"technology"`
	DownloadMbps float64 `json:"max_download_mbps"`
	UploadMbps   float64 `json:"max_upload_mbps"`
}

// BroadbandSummary aggregates broadband offers at a location.
type BroadbandSummary struct {
	HasFiber        bool     `json:"has_fiber"`
	Providers       []string `json:"providers"`
	MaxDownloadMbps float64  `json:"max_download_mbps"`
	MaxUploadMbps   float64  `json:"max_upload_mbps"`
	Technologies    []string `json:"technology_types"`
	Error           string   `json:"error,omitempty"`
}

// Geographies is the census geography containing a coordinate.
type Geographies struct {
	InCity      bool
	CityName    string
	State       string // state FIPS or abbreviation as reported upstream
	County      string
	CountyFIPS  string // state + county FIPS, e.g. "48201"
	CensusTract string
}

// RegulatoryStatus describes municipal and census context of a coordinate.
type RegulatoryStatus struct {
	InCity      bool    `json:"in_city"`
	CityName    *string `json:"city_name"`
	State       *string `json:"state"`
	County      *string `json:"county"`
	CountyFIPS  *string `json:"county_fips,omitempty"`
	CensusTract *string `json:"census_tract,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// AttainmentStatus is the EPA air-quality attainment status of a county.
type AttainmentStatus struct {
	Attainment              bool     `json:"attainment"`
	County                  string   `json:"county"`
	CountyFIPS              string   `json:"county_fips,omitempty"`
	PollutantsNonattainment []string `json:"pollutants_nonattainment"`
	Error                   string   `json:"error,omitempty"`
}

// Query is the input of one scout run.
type Query struct {
	Coordinate Coordinate `json:"coordinates"`
	RadiusKm   float64    `json:"radius_km"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Validate rejects out-of-range coordinates and negative radii.
func (q Query) Validate() error {
	if err := q.Coordinate.Validate(); err != nil {
		return err
	}
	if q.RadiusKm < 0 || math.IsNaN(q.RadiusKm) {
		return fmt.Errorf("%w: %f km", ErrNegativeRadius, q.RadiusKm)
	}
	return nil
}

// Summary holds derived statistics of a report.
type Summary struct {
	Counts            map[Category]int     `json:"infrastructure_count"`
	NearestKm         map[Category]float64 `json:"nearest_distances_km"`
	ConnectivityScore int                  `json:"connectivity_score"`
	RegulatoryFlags   []string             `json:"regulatory_flags"`
}

// Report is the consolidated result bundle handed to renderers.
type Report struct {
	ID         string           `json:"id"`
	Query      Query            `json:"query"`
	Sections   []CategoryResult `json:"sections"`
	Broadband  BroadbandSummary `json:"broadband"`
	CityLimits RegulatoryStatus `json:"city_limits"`
	Attainment AttainmentStatus `json:"attainment"`
	Summary    Summary          `json:"summary"`
}

// Section returns the result for a category.
func (r *Report) Section(c Category) (CategoryResult, bool) {
	for _, s := range r.Sections {
		if s.Category == c {
			return s, true
		}
	}
	return CategoryResult{}, false
}
