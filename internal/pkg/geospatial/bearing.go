package geospatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/samirrijal/sitescout/internal/core/domain"
)

// BearingDegrees returns the initial (forward azimuth) bearing from one coordinate
// to another, normalised to [0, 360).
func BearingDegrees(from, to domain.Coordinate) float64 {
	b := geo.Bearing(toOrb(from), toOrb(to))
	b = math.Mod(b+360, 360)
	if b >= 360 {
		b = 0
	}
	return b
}

// OctantOf maps a bearing in degrees to the nearest of the 8 compass points.
func OctantOf(bearing float64) domain.Octant {
	idx := int(math.Round(bearing/45)) % 8
	if idx < 0 {
		idx += 8
	}
	return domain.Octants[idx]
}

// BearingOctant returns the compass octant from one coordinate to another.
// ok is false when the two coordinates coincide and the bearing is undefined.
func BearingOctant(from, to domain.Coordinate) (o domain.Octant, ok bool) {
	if from == to {
		return "", false
	}
	return OctantOf(BearingDegrees(from, to)), true
}

func toOrb(c domain.Coordinate) orb.Point {
	return orb.Point{c.Lon, c.Lat}
}
