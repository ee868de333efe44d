package geospatial

import (
	"math"

	"github.com/samirrijal/sitescout/internal/core/domain"
)

const (
	// EarthRadiusKm is the mean Earth radius used by every distance in this package.
	EarthRadiusKm = 6371.0

	milesPerKm = 0.621371

	// kmPerDegree is the flat approximation used for bounding boxes.
	kmPerDegree = 111.0
)

// Haversine calculates the great-circle distance in kilometers between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Asin(math.Min(1, math.Sqrt(a)))
	return EarthRadiusKm * c
}

// Distance is Haversine over two coordinates.
func Distance(a, b domain.Coordinate) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// KmToMi converts kilometers to statute miles.
func KmToMi(km float64) float64 {
	return km * milesPerKm
}

// MiToKm converts statute miles to kilometers.
func MiToKm(mi float64) float64 {
	return mi / milesPerKm
}

// BoundingBox returns a box around center using 111 km per degree of latitude and
// 111*cos(lat) km per degree of longitude. The longitude span degrades near the poles
// and is clamped to the full range there.
func BoundingBox(center domain.Coordinate, radiusKm float64) domain.Bounds {
	latDelta := radiusKm / kmPerDegree

	lonDelta := 180.0
	if cos := math.Cos(toRad(center.Lat)); cos > 1e-9 {
		lonDelta = math.Min(180, radiusKm/(kmPerDegree*cos))
	}

	return domain.Bounds{
		West:  center.Lon - lonDelta,
		South: center.Lat - latDelta,
		East:  center.Lon + lonDelta,
		North: center.Lat + latDelta,
	}
}

// InBounds reports whether c lies inside b (edges inclusive).
func InBounds(c domain.Coordinate, b domain.Bounds) bool {
	return b.West <= c.Lon && c.Lon <= b.East && b.South <= c.Lat && c.Lat <= b.North
}

// BoundsAreaKm2 approximates the area of b from its south and west edge lengths.
func BoundsAreaKm2(b domain.Bounds) float64 {
	width := Haversine(b.South, b.West, b.South, b.East)
	height := Haversine(b.South, b.West, b.North, b.West)
	return width * height
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
