package geospatial_test

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/samirrijal/sitescout/internal/core/domain"
	"github.com/samirrijal/sitescout/internal/pkg/geospatial"
)

func line(coords ...[2]float64) domain.Polyline {
	path := make([]domain.Coordinate, len(coords))
	for i, c := range coords {
		path[i] = domain.Coordinate{Lon: c[0], Lat: c[1]}
	}
	return domain.Polyline{Paths: [][]domain.Coordinate{path}}
}

func TestClosestPointOnSegment(t *testing.T) {
	tests := []struct {
		name    string
		p, a, b orb.Point
		want    orb.Point
	}{
		{"interior", orb.Point{1, 5}, orb.Point{0, 0}, orb.Point{0, 10}, orb.Point{0, 5}},
		{"before start", orb.Point{1, -5}, orb.Point{0, 0}, orb.Point{0, 10}, orb.Point{0, 0}},
		{"past end", orb.Point{-1, 12}, orb.Point{0, 0}, orb.Point{0, 10}, orb.Point{0, 10}},
		{"degenerate", orb.Point{3, 3}, orb.Point{1, 1}, orb.Point{1, 1}, orb.Point{1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := geospatial.ClosestPointOnSegment(tt.p, tt.a, tt.b)
			if math.Abs(got[0]-tt.want[0]) > 1e-12 || math.Abs(got[1]-tt.want[1]) > 1e-12 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolve_Point(t *testing.T) {
	r := geospatial.NewResolver()
	origin := domain.Coordinate{Lat: 31.0, Lon: -103.0}
	at := domain.Coordinate{Lat: 31.1, Lon: -103.0}

	res, ok := r.Resolve(origin, domain.Point{At: at})
	if !ok {
		t.Fatal("expected a result")
	}
	if res.Mode != domain.ModePoint {
		t.Errorf("expected point mode, got %s", res.Mode)
	}
	if res.NearestPoint != at {
		t.Errorf("nearest point should be the feature itself, got %+v", res.NearestPoint)
	}
	if res.Bearing != domain.North {
		t.Errorf("expected N, got %s", res.Bearing)
	}
	if math.Abs(res.DistanceKm-geospatial.Distance(origin, at)) > 1e-9 {
		t.Errorf("distance mismatch: %f", res.DistanceKm)
	}
}

func TestResolve_PolylineProjectsOntoSegment(t *testing.T) {
	origin := domain.Coordinate{Lat: 31.05, Lon: -103.05}
	pipeline := line([2]float64{-103.0, 31.0}, [2]float64{-103.0, 31.1})

	res, ok := geospatial.NewResolver().Resolve(origin, pipeline)
	if !ok {
		t.Fatal("expected a result")
	}
	if res.Mode != domain.ModeSegment {
		t.Errorf("expected segment mode, got %s", res.Mode)
	}
	if res.NearestPoint.Lat <= 31.0 || res.NearestPoint.Lat >= 31.1 {
		t.Errorf("nearest point should lie strictly between the vertices, got %+v", res.NearestPoint)
	}
	if math.Abs(res.NearestPoint.Lon-(-103.0)) > 1e-6 {
		t.Errorf("nearest point should lie on the line, got %+v", res.NearestPoint)
	}
	if res.DistanceKm < 4.7 || res.DistanceKm > 4.85 {
		t.Errorf("expected ~4.77 km, got %f", res.DistanceKm)
	}
	if res.Bearing != domain.East {
		t.Errorf("expected E, got %s", res.Bearing)
	}

	vertex, ok := geospatial.NewVertexResolver().Resolve(origin, pipeline)
	if !ok {
		t.Fatal("expected a vertex result")
	}
	if vertex.Mode != domain.ModeVertex {
		t.Errorf("expected vertex mode, got %s", vertex.Mode)
	}
	if vertex.DistanceKm <= res.DistanceKm {
		t.Errorf("vertex distance %f should exceed segment distance %f", vertex.DistanceKm, res.DistanceKm)
	}
}

func TestResolve_NeverExceedsVertexDistance(t *testing.T) {
	origin := domain.Coordinate{Lat: 29.76, Lon: -95.37}
	geoms := []domain.Geometry{
		line([2]float64{-95.5, 29.6}, [2]float64{-95.2, 29.9}, [2]float64{-95.0, 29.7}),
		line([2]float64{-95.0, 30.0}, [2]float64{-96.0, 30.0}),
		domain.Polygon{Exterior: []domain.Coordinate{{Lat: 29, Lon: -96}, {Lat: 29, Lon: -95}, {Lat: 30, Lon: -95}, {Lat: 30, Lon: -96}}},
	}
	seg, vtx := geospatial.NewResolver(), geospatial.NewVertexResolver()
	for i, g := range geoms {
		s, ok1 := seg.Resolve(origin, g)
		v, ok2 := vtx.Resolve(origin, g)
		if !ok1 || !ok2 {
			t.Fatalf("geometry %d: expected results", i)
		}
		if s.DistanceKm > v.DistanceKm+1e-9 {
			t.Errorf("geometry %d: segment %f > vertex %f", i, s.DistanceKm, v.DistanceKm)
		}
	}
}

func TestResolve_OnLineHasNoBearing(t *testing.T) {
	origin := domain.Coordinate{Lat: 31.0, Lon: -103.0}
	res, ok := geospatial.NewResolver().Resolve(origin, line([2]float64{-103.0, 31.0}, [2]float64{-103.0, 31.1}))
	if !ok {
		t.Fatal("expected a result")
	}
	if res.DistanceKm > 1e-9 {
		t.Errorf("expected zero distance, got %f", res.DistanceKm)
	}
	if res.Bearing != "" {
		t.Errorf("expected no bearing, got %s", res.Bearing)
	}
}

func TestResolve_EmptyGeometry(t *testing.T) {
	r := geospatial.NewResolver()
	origin := domain.Coordinate{Lat: 31.0, Lon: -103.0}

	if _, ok := r.Resolve(origin, nil); ok {
		t.Error("nil geometry should not resolve")
	}
	if _, ok := r.Resolve(origin, domain.Polyline{}); ok {
		t.Error("empty polyline should not resolve")
	}
	if _, ok := r.Resolve(origin, domain.Polyline{Paths: [][]domain.Coordinate{{}, {}}}); ok {
		t.Error("polyline with empty paths should not resolve")
	}
}

func TestResolve_SingleVertexPath(t *testing.T) {
	origin := domain.Coordinate{Lat: 31.0, Lon: -103.0}
	g := domain.Polyline{Paths: [][]domain.Coordinate{
		{{Lat: 31.2, Lon: -103.0}},
		{{Lat: 31.5, Lon: -103.0}, {Lat: 31.6, Lon: -103.0}},
	}}

	res, ok := geospatial.NewResolver().Resolve(origin, g)
	if !ok {
		t.Fatal("expected a result")
	}
	if res.NearestPoint.Lat != 31.2 {
		t.Errorf("expected isolated vertex to win, got %+v", res.NearestPoint)
	}
	if res.Mode != domain.ModeVertex {
		t.Errorf("expected vertex mode for an isolated vertex, got %s", res.Mode)
	}
}

func square(minLon, minLat, maxLon, maxLat float64) domain.Polygon {
	return domain.Polygon{Exterior: []domain.Coordinate{
		{Lat: minLat, Lon: minLon},
		{Lat: minLat, Lon: maxLon},
		{Lat: maxLat, Lon: maxLon},
		{Lat: maxLat, Lon: minLon},
		{Lat: minLat, Lon: minLon},
	}}
}

func TestResolve_PolygonInside(t *testing.T) {
	origin := domain.Coordinate{Lat: 0.5, Lon: 0.5}
	res, ok := geospatial.NewResolver().Resolve(origin, square(0, 0, 1, 1))
	if !ok {
		t.Fatal("expected a result")
	}
	if res.Inside == nil || !*res.Inside {
		t.Fatal("expected point to be inside")
	}
	if res.DistanceKm <= 0 {
		t.Errorf("expected distance to the boundary, got %f", res.DistanceKm)
	}
	if res.DistanceKm < 54 || res.DistanceKm > 57 {
		t.Errorf("expected ~55.6 km to the nearest edge, got %f", res.DistanceKm)
	}
}

func TestResolve_PolygonOutside(t *testing.T) {
	origin := domain.Coordinate{Lat: 0.5, Lon: 1.5}
	res, ok := geospatial.NewResolver().Resolve(origin, square(0, 0, 1, 1))
	if !ok {
		t.Fatal("expected a result")
	}
	if res.Inside == nil || *res.Inside {
		t.Error("expected point to be outside")
	}
	if res.Bearing != domain.West {
		t.Errorf("expected W, got %s", res.Bearing)
	}
	if math.Abs(res.NearestPoint.Lon-1) > 1e-6 {
		t.Errorf("nearest point should lie on the east edge, got %+v", res.NearestPoint)
	}
}

func TestResolve_PolygonHole(t *testing.T) {
	p := square(0, 0, 4, 4)
	hole := square(1, 1, 3, 3)
	p.Holes = [][]domain.Coordinate{hole.Exterior}

	res, ok := geospatial.NewResolver().Resolve(domain.Coordinate{Lat: 2, Lon: 2}, p)
	if !ok {
		t.Fatal("expected a result")
	}
	if res.Inside == nil || *res.Inside {
		t.Error("a point inside a hole is not inside the polygon")
	}
}

func TestResolve_MultiPolygon(t *testing.T) {
	mp := domain.MultiPolygon{Polygons: []domain.Polygon{
		square(0, 0, 1, 1),
		square(5, 0, 6, 1),
	}}

	res, ok := geospatial.NewResolver().Resolve(domain.Coordinate{Lat: 0.5, Lon: 4.5}, mp)
	if !ok {
		t.Fatal("expected a result")
	}
	if math.Abs(res.NearestPoint.Lon-5) > 1e-6 {
		t.Errorf("expected nearest point on the second polygon, got %+v", res.NearestPoint)
	}
	if res.Inside == nil || *res.Inside {
		t.Error("expected outside")
	}

	res, _ = geospatial.NewResolver().Resolve(domain.Coordinate{Lat: 0.5, Lon: 5.5}, mp)
	if res.Inside == nil || !*res.Inside {
		t.Error("expected inside the second polygon")
	}
}
