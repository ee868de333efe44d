package geospatial

import (
	"fmt"
	"math"

	"github.com/samirrijal/sitescout/internal/core/domain"
)

// DMS formats decimal degrees as degrees/minutes/seconds, e.g. 31°54'00.0"N.
func DMS(deg float64, isLongitude bool) string {
	// work in tenths of an arcsecond so rounding carries into minutes and degrees
	tenths := int64(math.Round(math.Abs(deg) * 36000))
	d := tenths / 36000
	m := (tenths % 36000) / 600
	s := float64(tenths%600) / 10

	var hemi string
	switch {
	case isLongitude && deg >= 0:
		hemi = "E"
	case isLongitude:
		hemi = "W"
	case deg >= 0:
		hemi = "N"
	default:
		hemi = "S"
	}

	return fmt.Sprintf("%d°%02d'%04.1f\"%s", d, m, s, hemi)
}

// FormatDMS renders a coordinate as "lat, lon" in DMS notation.
func FormatDMS(c domain.Coordinate) string {
	return DMS(c.Lat, false) + ", " + DMS(c.Lon, true)
}

// VerificationURL builds a map link centred on c, e.g. https://maps.google.com/?q=31.000000,-103.000000.
func VerificationURL(provider string, c domain.Coordinate) string {
	return fmt.Sprintf("https://%s/?q=%.6f,%.6f", provider, c.Lat, c.Lon)
}
