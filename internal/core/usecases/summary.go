package usecases

import (
	"strings"

	"github.com/samirrijal/sitescout/internal/core/domain"
)

// Connectivity score weights.
const (
	scoreFiber        = 40
	scoreFastDownload = 30
	scoreMultiISP     = 20
	scorePipeline     = 5
	scoreSubstation   = 5
	scoreMax          = 100

	fastDownloadMbps = 100
)

// Summarize derives counts, nearest distances, the connectivity score and
// regulatory flags from a report.
func Summarize(r *domain.Report) domain.Summary {
	sum := domain.Summary{
		Counts:          make(map[domain.Category]int, len(r.Sections)),
		NearestKm:       make(map[domain.Category]float64, len(r.Sections)),
		RegulatoryFlags: []string{},
	}

	for _, sec := range r.Sections {
		sum.Counts[sec.Category] = len(sec.Features)
		if f, ok := sec.Features.Nearest(); ok {
			sum.NearestKm[sec.Category] = f.DistanceKm
		}
	}

	score := 0
	if r.Broadband.HasFiber {
		score += scoreFiber
	}
	if r.Broadband.MaxDownloadMbps >= fastDownloadMbps {
		score += scoreFastDownload
	}
	if len(r.Broadband.Providers) > 1 {
		score += scoreMultiISP
	}
	if sum.Counts[domain.CategoryPipelines] > 0 {
		score += scorePipeline
	}
	if sum.Counts[domain.CategorySubstations] > 0 {
		score += scoreSubstation
	}
	sum.ConnectivityScore = min(score, scoreMax)

	if !r.Attainment.Attainment {
		sum.RegulatoryFlags = append(sum.RegulatoryFlags,
			"EPA Nonattainment: "+strings.Join(r.Attainment.PollutantsNonattainment, ", "))
	}
	if r.CityLimits.InCity {
		sum.RegulatoryFlags = append(sum.RegulatoryFlags, "Within City Limits")
	}

	return sum
}
