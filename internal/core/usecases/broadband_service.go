package usecases

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/samirrijal/sitescout/internal/core/domain"
	"github.com/samirrijal/sitescout/internal/core/ports"
)

// fiberTechCodes are the FCC technology codes for fiber to the premises.
var fiberTechCodes = map[string]bool{"50": true, "70": true}

// BroadbandService summarizes broadband availability at a location.
type BroadbandService struct {
	source ports.BroadbandSource
}

// NewBroadbandService creates a new BroadbandService.
func NewBroadbandService(source ports.BroadbandSource) *BroadbandService {
	return &BroadbandService{source: source}
}

// Summary fetches and aggregates offers. A fetch failure yields an empty
// summary carrying the error message.
func (s *BroadbandService) Summary(ctx context.Context, at domain.Coordinate) domain.BroadbandSummary {
	offers, err := s.source.Availability(ctx, at)
	if err != nil {
		slog.WarnContext(ctx, "broadband query failed", "error", err)
		sum := SummarizeBroadband(nil)
		sum.Error = err.Error()
		return sum
	}
	return SummarizeBroadband(offers)
}

// SummarizeBroadband aggregates offers into provider and technology sets and
// the best advertised speeds. Sets are returned sorted.
func SummarizeBroadband(offers []domain.BroadbandOffer) domain.BroadbandSummary {
	sum := domain.BroadbandSummary{
		Providers:    []string{},
		Technologies: []string{},
	}

	providers := map[string]struct{}{}
	techs := map[string]struct{}{}
	for _, o := range offers {
		tech := strings.ToLower(strings.TrimSpace(o.Technology))
		if strings.Contains(tech, "fiber") || fiberTechCodes[tech] {
			sum.HasFiber = true
		}
		if tech != "" {
			techs[tech] = struct{}{}
		}
		if p := strings.TrimSpace(o.Provider); p != "" {
			providers[p] = struct{}{}
		}
		if o.DownloadMbps > sum.MaxDownloadMbps {
			sum.MaxDownloadMbps = o.DownloadMbps
		}
		if o.UploadMbps > sum.MaxUploadMbps {
			sum.MaxUploadMbps = o.UploadMbps
		}
	}

	for p := range providers {
		sum.Providers = append(sum.Providers, p)
	}
	for t := range techs {
		sum.Technologies = append(sum.Technologies, t)
	}
	sort.Strings(sum.Providers)
	sort.Strings(sum.Technologies)
	return sum
}
