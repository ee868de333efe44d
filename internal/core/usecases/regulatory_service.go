package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/sitescout/internal/core/domain"
	"github.com/samirrijal/sitescout/internal/core/ports"
)

const unknownCounty = "Unknown County"

// RegulatoryResult bundles the municipal and air-quality checks, which share
// one geography lookup.
type RegulatoryResult struct {
	CityLimits domain.RegulatoryStatus `json:"city_limits"`
	Attainment domain.AttainmentStatus `json:"epa_attainment"`
}

// RegulatoryService checks city limits and EPA attainment for a location.
type RegulatoryService struct {
	geo   ports.GeographyLookup
	refs  ports.ReferenceRepository
	state string
}

// NewRegulatoryService creates a new RegulatoryService. state is the suffix
// used when rendering county names, e.g. "Harris County, TX".
func NewRegulatoryService(geo ports.GeographyLookup, refs ports.ReferenceRepository, state string) *RegulatoryService {
	return &RegulatoryService{geo: geo, refs: refs, state: state}
}

// Check never fails: lookup problems are recorded on the result and
// attainment defaults to true.
func (s *RegulatoryService) Check(ctx context.Context, at domain.Coordinate) RegulatoryResult {
	g, err := s.geo.Geographies(ctx, at)
	if err != nil {
		slog.WarnContext(ctx, "geography lookup failed", "error", err)
		res := UnknownRegulatory(fmt.Sprintf("could not determine county: %v", err))
		res.CityLimits.Error = err.Error()
		return res
	}

	return RegulatoryResult{
		CityLimits: cityLimits(g),
		Attainment: s.attainment(ctx, g),
	}
}

func cityLimits(g *domain.Geographies) domain.RegulatoryStatus {
	return domain.RegulatoryStatus{
		InCity:      g.InCity,
		CityName:    optional(g.CityName),
		State:       optional(g.State),
		County:      optional(g.County),
		CountyFIPS:  optional(g.CountyFIPS),
		CensusTract: optional(g.CensusTract),
	}
}

func (s *RegulatoryService) attainment(ctx context.Context, g *domain.Geographies) domain.AttainmentStatus {
	if g.CountyFIPS == "" {
		return UnknownRegulatory("could not determine county").Attainment
	}

	county := g.County
	if county == "" {
		county = unknownCounty
	}
	if s.state != "" {
		county = county + ", " + s.state
	}

	status := domain.AttainmentStatus{
		Attainment:              true,
		County:                  county,
		CountyFIPS:              g.CountyFIPS,
		PollutantsNonattainment: []string{},
	}

	pollutants, found, err := s.refs.NonattainmentPollutants(ctx, g.CountyFIPS)
	if err != nil {
		slog.WarnContext(ctx, "reference lookup failed", "county_fips", g.CountyFIPS, "error", err)
		status.Error = err.Error()
		return status
	}
	if found && len(pollutants) > 0 {
		status.Attainment = false
		status.PollutantsNonattainment = pollutants
	}
	return status
}

// UnknownRegulatory is the result used when the checks could not run:
// attainment is assumed and the reason is recorded.
func UnknownRegulatory(reason string) RegulatoryResult {
	return RegulatoryResult{
		Attainment: domain.AttainmentStatus{
			Attainment:              true,
			County:                  unknownCounty,
			PollutantsNonattainment: []string{},
			Error:                   reason,
		},
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
