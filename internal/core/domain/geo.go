package domain

import (
	"fmt"
	"math"
)

// Coordinate represents a geographic coordinate (WGS 84, decimal degrees).
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports ErrInvalidCoordinate when latitude or longitude is out of range.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 || math.IsNaN(c.Lat) {
		return fmt.Errorf("%w: latitude %f must be between -90 and 90", ErrInvalidCoordinate, c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 || math.IsNaN(c.Lon) {
		return fmt.Errorf("%w: longitude %f must be between -180 and 180", ErrInvalidCoordinate, c.Lon)
	}
	return nil
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// Geometry is the raw shape of a remote feature: Point, Polyline, Polygon or MultiPolygon.
type Geometry interface {
	// Vertices returns every coordinate of the geometry in source order.
	Vertices() []Coordinate
	geometry()
}

// Point is a single-location geometry.
type Point struct {
	At Coordinate `json:"at"`
}

// Polyline holds one or more disjoint paths.
type Polyline struct {
	Paths [][]Coordinate `json:"paths"`
}

// Polygon is an exterior ring minus its interior rings.
type Polygon struct {
	Exterior []Coordinate   `json:"exterior"`
	Holes    [][]Coordinate `json:"holes,omitempty"`
}

// MultiPolygon groups several polygons of the same feature.
type MultiPolygon struct {
	Polygons []Polygon `json:"polygons"`
}

func (Point) geometry()        {}
func (Polyline) geometry()     {}
func (Polygon) geometry()      {}
func (MultiPolygon) geometry() {}

func (p Point) Vertices() []Coordinate { return []Coordinate{p.At} }

func (p Polyline) Vertices() []Coordinate {
	var out []Coordinate
	for _, path := range p.Paths {
		out = append(out, path...)
	}
	return out
}

func (p Polygon) Vertices() []Coordinate {
	out := append([]Coordinate(nil), p.Exterior...)
	for _, hole := range p.Holes {
		out = append(out, hole...)
	}
	return out
}

func (m MultiPolygon) Vertices() []Coordinate {
	var out []Coordinate
	for _, p := range m.Polygons {
		out = append(out, p.Vertices()...)
	}
	return out
}

// Octant is one of the 8 compass directions.
type Octant string

const (
	North     Octant = "N"
	NorthEast Octant = "NE"
	East      Octant = "E"
	SouthEast Octant = "SE"
	South     Octant = "S"
	SouthWest Octant = "SW"
	West      Octant = "W"
	NorthWest Octant = "NW"
)

// Octants lists the compass points clockwise from north.
var Octants = [8]Octant{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}

// ResolveMode records which algorithm produced a ProximityResult.
type ResolveMode string

const (
	// ModePoint: the geometry was a single point.
	ModePoint ResolveMode = "point"
	// ModeSegment: nearest point found by projection onto line segments.
	ModeSegment ResolveMode = "segment"
	// ModeVertex: degraded mode, nearest vertex only. Error grows with vertex spacing.
	ModeVertex ResolveMode = "vertex"
)

// ProximityResult is the nearest point of a geometry to a query coordinate.
type ProximityResult struct {
	DistanceKm   float64     `json:"distance_km"`
	NearestPoint Coordinate  `json:"nearest_point"`
	Bearing      Octant      `json:"bearing,omitempty"` // empty when the query point lies on the geometry
	Mode         ResolveMode `json:"mode"`
	Inside       *bool       `json:"inside,omitempty"` // polygons only
}
