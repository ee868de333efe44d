package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samirrijal/sitescout/internal/core/domain"
	"github.com/samirrijal/sitescout/internal/pkg/geospatial"
)

const maxProviders = 5

var sectionIcons = map[domain.Category]string{
	domain.CategoryPipelines:    "🔴",
	domain.CategoryTransmission: "⚡",
	domain.CategorySubstations:  "🟡",
	domain.CategoryPowerPlants:  "🏭",
	domain.CategoryCityLimits:   "🗺️",
}

// Markdown renders the human-readable report.
func Markdown(r *domain.Report, opts Options) string {
	var b strings.Builder
	c := r.Query.Coordinate

	fmt.Fprintf(&b, "📍 Site Scout Report — (%.4f, %.4f)\n", c.Lat, c.Lon)
	fmt.Fprintf(&b, "   %s\n", geospatial.FormatDMS(c))
	fmt.Fprintf(&b, "Generated: %s\n", r.Query.Timestamp.UTC().Format("2006-01-02 15:04 UTC"))
	if r.ID != "" {
		fmt.Fprintf(&b, "Report ID: %s\n", r.ID)
	}
	b.WriteString("\n")

	for _, s := range r.Sections {
		writeSection(&b, s, r.Query.RadiusKm, opts.topN())
	}
	writeBroadband(&b, r.Broadband)
	writeCityLimits(&b, r.CityLimits)
	writeAttainment(&b, r.Attainment)
	writeSummary(&b, r)

	return b.String()
}

func heading(b *strings.Builder, title string) {
	fmt.Fprintf(b, "═══ %s ═══\n\n", title)
}

func writeSection(b *strings.Builder, s domain.CategoryResult, radiusKm float64, topN int) {
	icon := sectionIcons[s.Category]
	if icon == "" {
		icon = "▪️"
	}
	heading(b, fmt.Sprintf("%s %s (%skm radius)", icon, strings.ToUpper(s.Label), num(radiusKm)))

	if len(s.Features) == 0 {
		fmt.Fprintf(b, "  ❌ No %s found within radius\n", strings.ToLower(s.Label))
	}
	for i, f := range s.Features {
		if i == topN {
			fmt.Fprintf(b, "  … %d more\n", len(s.Features)-topN)
			break
		}
		writeFeature(b, i+1, f)
	}
	if s.Error != "" {
		fmt.Fprintf(b, "  ⚠️  Query Error: %s\n", s.Error)
	}
	b.WriteString("\n")
}

func writeFeature(b *strings.Builder, rank int, f domain.InfrastructureFeature) {
	star := ""
	if f.Starred {
		star = "★ "
	}
	title := f.DisplayName
	if f.Owner != "" {
		title += " (" + f.Owner + ")"
	}
	fmt.Fprintf(b, "  #%d  %s%s\n", rank, star, title)

	direction := string(f.Bearing)
	if direction == "" {
		direction = "on site"
	}
	fmt.Fprintf(b, "      Distance: %.2f km (%.2f mi) — Direction: %s\n", f.DistanceKm, f.DistanceMi, direction)

	var details []string
	if f.Type != "" {
		details = append(details, "Type: "+f.Type)
	}
	if f.VoltageKV != nil {
		details = append(details, num(*f.VoltageKV)+" kV")
	}
	if f.LineCount != nil {
		details = append(details, fmt.Sprintf("Lines: %d", *f.LineCount))
	}
	if f.CapacityMW != nil {
		capacity := num(*f.CapacityMW) + " MW"
		if f.PrimarySource != "" {
			capacity += " (" + f.PrimarySource + ")"
		}
		details = append(details, capacity)
	}
	if f.Status != "" {
		details = append(details, "Status: "+f.Status)
	}
	if f.Inside != nil && *f.Inside {
		details = append(details, "Site is inside this boundary")
	}
	if f.Mode == domain.ModeVertex {
		details = append(details, "approximate (nearest vertex)")
	}
	if len(details) > 0 {
		fmt.Fprintf(b, "      %s\n", strings.Join(details, " | "))
	}
	fmt.Fprintf(b, "      Verify: %s\n\n", f.VerificationURL)
}

func writeBroadband(b *strings.Builder, bb domain.BroadbandSummary) {
	heading(b, "🔵 FIBER / BROADBAND")

	providers := bb.Providers
	if len(providers) > maxProviders {
		providers = providers[:maxProviders]
	}

	if bb.HasFiber {
		b.WriteString("  Status: ✅ Fiber Available\n")
		if len(providers) > 0 {
			fmt.Fprintf(b, "  Providers: %s\n", strings.Join(providers, ", "))
		}
		if bb.MaxDownloadMbps > 0 && bb.MaxUploadMbps > 0 {
			fmt.Fprintf(b, "  Max Speed: %s/%s Mbps\n", num(bb.MaxDownloadMbps), num(bb.MaxUploadMbps))
		}
	} else {
		b.WriteString("  Status: ❌ No Fiber Detected\n")
		if len(providers) > 0 {
			fmt.Fprintf(b, "  Other Providers: %s\n", strings.Join(providers, ", "))
		}
	}
	if bb.Error != "" {
		fmt.Fprintf(b, "  ⚠️  Query Error: %s\n", bb.Error)
	}
	b.WriteString("\n")
}

func writeCityLimits(b *strings.Builder, s domain.RegulatoryStatus) {
	heading(b, "🏙️ CITY LIMITS")

	city := deref(s.CityName)
	if state := deref(s.State); city != "" && state != "" {
		city += ", " + state
	}
	if s.InCity && city != "" {
		b.WriteString("  Status: ✅ Inside City Limits\n")
		fmt.Fprintf(b, "  City: %s\n", city)
	} else {
		b.WriteString("  Status: ❌ Outside City Limits\n")
		if city != "" {
			fmt.Fprintf(b, "  Nearest City: %s\n", city)
		}
	}
	if county := deref(s.County); county != "" {
		fmt.Fprintf(b, "  County: %s\n", county)
	}
	if tract := deref(s.CensusTract); tract != "" {
		fmt.Fprintf(b, "  Census Tract: %s\n", tract)
	}
	if s.Error != "" {
		fmt.Fprintf(b, "  ⚠️  Query Error: %s\n", s.Error)
	}
	b.WriteString("\n")
}

func writeAttainment(b *strings.Builder, a domain.AttainmentStatus) {
	heading(b, "🌿 EPA ATTAINMENT")

	if a.Attainment {
		b.WriteString("  Status: ✅ Attainment Area\n")
		fmt.Fprintf(b, "  County: %s\n", a.County)
		b.WriteString("  All criteria pollutants in attainment\n")
	} else {
		b.WriteString("  Status: ❌ Nonattainment Area\n")
		fmt.Fprintf(b, "  County: %s\n", a.County)
		if len(a.PollutantsNonattainment) > 0 {
			fmt.Fprintf(b, "  Nonattainment Pollutants: %s\n", strings.Join(a.PollutantsNonattainment, ", "))
		}
	}
	if a.Error != "" {
		fmt.Fprintf(b, "  ⚠️  Query Error: %s\n", a.Error)
	}
	b.WriteString("\n")
}

func writeSummary(b *strings.Builder, r *domain.Report) {
	heading(b, "📊 SUMMARY")

	fmt.Fprintf(b, "  Connectivity Score: %d/100\n", r.Summary.ConnectivityScore)
	for _, s := range r.Sections {
		if km, ok := r.Summary.NearestKm[s.Category]; ok {
			fmt.Fprintf(b, "  Nearest %s: %.2f km\n", s.Label, km)
		}
	}
	if len(r.Summary.RegulatoryFlags) == 0 {
		b.WriteString("  Regulatory Flags: none\n")
	}
	for _, flag := range r.Summary.RegulatoryFlags {
		fmt.Fprintf(b, "  ⚑ %s\n", flag)
	}
}

// num prints whole numbers without a fraction.
func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
