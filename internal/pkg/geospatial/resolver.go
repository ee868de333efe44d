package geospatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/samirrijal/sitescout/internal/core/domain"
)

// Resolver finds the nearest point of a geometry to a query coordinate.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	vertexOnly bool
}

// NewResolver returns a resolver that projects onto line segments.
func NewResolver() *Resolver {
	return &Resolver{}
}

// NewVertexResolver returns a resolver in degraded mode: only vertices are
// considered, so distances to sparse lines can be off by several kilometers.
func NewVertexResolver() *Resolver {
	return &Resolver{vertexOnly: true}
}

// VertexOnly reports whether the resolver runs in degraded mode.
func (r *Resolver) VertexOnly() bool {
	return r.vertexOnly
}

type candidate struct {
	point domain.Coordinate
	km    float64
	mode  domain.ResolveMode
}

// Resolve returns the proximity of origin to g. ok is false when g carries no
// coordinates at all; callers skip such features.
func (r *Resolver) Resolve(origin domain.Coordinate, g domain.Geometry) (res domain.ProximityResult, ok bool) {
	if g == nil {
		return domain.ProximityResult{}, false
	}

	var best candidate
	var inside *bool

	switch geom := g.(type) {
	case domain.Point:
		best, ok = candidate{point: geom.At, km: Distance(origin, geom.At), mode: domain.ModePoint}, true
	case domain.Polyline:
		best, ok = r.nearestOnPaths(origin, geom.Paths, false)
	case domain.Polygon:
		best, ok = r.nearestOnPaths(origin, [][]domain.Coordinate{geom.Exterior}, true)
		in := polygonContains(geom, origin)
		inside = &in
	case domain.MultiPolygon:
		in := false
		for _, p := range geom.Polygons {
			c, found := r.nearestOnPaths(origin, [][]domain.Coordinate{p.Exterior}, true)
			if found && (!ok || c.km < best.km) {
				best, ok = c, true
			}
			in = in || polygonContains(p, origin)
		}
		inside = &in
	default:
		best, ok = r.nearestVertex(origin, g.Vertices())
	}

	if !ok {
		return domain.ProximityResult{}, false
	}

	bearing, _ := BearingOctant(origin, best.point)
	return domain.ProximityResult{
		DistanceKm:   best.km,
		NearestPoint: best.point,
		Bearing:      bearing,
		Mode:         best.mode,
		Inside:       inside,
	}, true
}

// nearestOnPaths scans every segment of every path. Paths with fewer than two
// vertices contribute their vertices as isolated points. closed adds the
// closing segment of a ring.
func (r *Resolver) nearestOnPaths(origin domain.Coordinate, paths [][]domain.Coordinate, closed bool) (candidate, bool) {
	if r.vertexOnly {
		var all []domain.Coordinate
		for _, p := range paths {
			all = append(all, p...)
		}
		return r.nearestVertex(origin, all)
	}

	pl := newLocalPlane(origin)
	var best candidate
	found := false

	for _, path := range paths {
		if len(path) < 2 {
			if c, ok := r.nearestVertex(origin, path); ok && (!found || c.km < best.km) {
				best, found = c, true
			}
			continue
		}

		n := len(path) - 1
		if closed && path[0] != path[len(path)-1] {
			n = len(path)
		}
		for i := 0; i < n; i++ {
			a, b := path[i], path[(i+1)%len(path)]
			p := pl.unproject(ClosestPointOnSegment(orb.Point{0, 0}, pl.project(a), pl.project(b)))
			km := Distance(origin, p)
			if !found || km < best.km {
				best, found = candidate{point: p, km: km, mode: domain.ModeSegment}, true
			}
		}
	}

	return best, found
}

func (r *Resolver) nearestVertex(origin domain.Coordinate, vertices []domain.Coordinate) (candidate, bool) {
	var best candidate
	found := false
	for _, v := range vertices {
		km := Distance(origin, v)
		if !found || km < best.km {
			best, found = candidate{point: v, km: km, mode: domain.ModeVertex}, true
		}
	}
	return best, found
}

// ClosestPointOnSegment returns the point of segment ab nearest to p in the plane.
func ClosestPointOnSegment(p, a, b orb.Point) orb.Point {
	dx, dy := b[0]-a[0], b[1]-a[1]
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return a
	}

	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return orb.Point{a[0] + t*dx, a[1] + t*dy}
}

// localPlane is an equirectangular projection in kilometers centred on a query
// point. Accurate to well under 100 m within the search radii used here.
type localPlane struct {
	lat0, lon0 float64
	cosLat0    float64
}

func newLocalPlane(origin domain.Coordinate) localPlane {
	return localPlane{
		lat0:    origin.Lat,
		lon0:    origin.Lon,
		cosLat0: math.Max(math.Cos(toRad(origin.Lat)), 1e-9),
	}
}

func (pl localPlane) project(c domain.Coordinate) orb.Point {
	dLon := wrapLon(c.Lon - pl.lon0)
	return orb.Point{
		toRad(dLon) * EarthRadiusKm * pl.cosLat0,
		toRad(c.Lat-pl.lat0) * EarthRadiusKm,
	}
}

func (pl localPlane) unproject(p orb.Point) domain.Coordinate {
	return domain.Coordinate{
		Lat: pl.lat0 + toDeg(p[1]/EarthRadiusKm),
		Lon: wrapLon(pl.lon0 + toDeg(p[0]/(EarthRadiusKm*pl.cosLat0))),
	}
}

// wrapLon folds a longitude (or longitude delta) into [-180, 180).
func wrapLon(lon float64) float64 {
	if lon >= -180 && lon < 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// polygonContains tests origin against the exterior ring minus holes.
// Rings with fewer than three vertices never contain anything.
func polygonContains(p domain.Polygon, origin domain.Coordinate) bool {
	if len(p.Exterior) < 3 {
		return false
	}
	poly := orb.Polygon{toRing(p.Exterior)}
	for _, h := range p.Holes {
		if len(h) >= 3 {
			poly = append(poly, toRing(h))
		}
	}
	return planar.PolygonContains(poly, toOrb(origin))
}

func toRing(coords []domain.Coordinate) orb.Ring {
	ring := make(orb.Ring, 0, len(coords)+1)
	for _, c := range coords {
		ring = append(ring, toOrb(c))
	}
	if !ring[0].Equal(ring[len(ring)-1]) {
		ring = append(ring, ring[0])
	}
	return ring
}
