package arcgis

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/samirrijal/sitescout/internal/core/domain"
)

type queryResponse struct {
	Features              []feature  `json:"features"`
	ExceededTransferLimit bool       `json:"exceededTransferLimit"`
	Error                 *respError `json:"error"`
}

type respError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

// Validate surfaces errors ArcGIS reports in a 200 response body.
func (r *queryResponse) Validate() error {
	if r.Error == nil {
		return nil
	}
	msg := r.Error.Message
	if msg == "" {
		msg = "unknown error"
	}
	if len(r.Error.Details) > 0 {
		msg += ": " + r.Error.Details[0]
	}
	return fmt.Errorf("arcgis error %d: %w", r.Error.Code, errors.New(msg))
}

type feature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   *esriGeometry  `json:"geometry"`
}

// esriGeometry covers the point, polyline and polygon JSON shapes. Positions
// are [x, y] = [lon, lat] with outSR=4326.
type esriGeometry struct {
	X     *float64      `json:"x"`
	Y     *float64      `json:"y"`
	Paths [][][]float64 `json:"paths"`
	Rings [][][]float64 `json:"rings"`
}

// toDomain converts the wire geometry, dropping non-finite or out-of-range
// positions. It returns nil when nothing usable is left.
func (g *esriGeometry) toDomain() domain.Geometry {
	if g == nil {
		return nil
	}
	switch {
	case g.X != nil && g.Y != nil:
		c, ok := coordinate([]float64{*g.X, *g.Y})
		if !ok {
			return nil
		}
		return domain.Point{At: c}
	case len(g.Paths) > 0:
		var paths [][]domain.Coordinate
		for _, p := range g.Paths {
			if path := positions(p); len(path) > 0 {
				paths = append(paths, path)
			}
		}
		if len(paths) == 0 {
			return nil
		}
		return domain.Polyline{Paths: paths}
	case len(g.Rings) > 0:
		return polygons(g.Rings)
	}
	return nil
}

func coordinate(pos []float64) (domain.Coordinate, bool) {
	if len(pos) < 2 {
		return domain.Coordinate{}, false
	}
	for _, v := range pos[:2] {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.Coordinate{}, false
		}
	}
	c := domain.Coordinate{Lat: pos[1], Lon: pos[0]}
	return c, c.Validate() == nil
}

func positions(raw [][]float64) []domain.Coordinate {
	out := make([]domain.Coordinate, 0, len(raw))
	for _, pos := range raw {
		if c, ok := coordinate(pos); ok {
			out = append(out, c)
		}
	}
	return out
}

// polygons groups Esri rings into polygons. Esri exterior rings are
// clockwise and holes counter-clockwise; each hole joins the exterior that
// contains it.
func polygons(rings [][][]float64) domain.Geometry {
	var polys []domain.Polygon
	var outer []orb.Ring
	var holes [][]domain.Coordinate

	for _, raw := range rings {
		ring := positions(raw)
		if len(ring) < 3 {
			continue
		}
		r := toRing(ring)
		if r.Orientation() == orb.CCW {
			holes = append(holes, ring)
			continue
		}
		polys = append(polys, domain.Polygon{Exterior: ring})
		outer = append(outer, r)
	}

	// no clockwise ring: treat every ring as an exterior
	if len(polys) == 0 {
		for _, h := range holes {
			polys = append(polys, domain.Polygon{Exterior: h})
		}
		holes = nil
	}

	for _, h := range holes {
		idx := len(polys) - 1
		probe := orb.Point{h[0].Lon, h[0].Lat}
		for i, r := range outer {
			if planar.RingContains(r, probe) {
				idx = i
				break
			}
		}
		polys[idx].Holes = append(polys[idx].Holes, h)
	}

	switch len(polys) {
	case 0:
		return nil
	case 1:
		return polys[0]
	default:
		return domain.MultiPolygon{Polygons: polys}
	}
}

func toRing(cs []domain.Coordinate) orb.Ring {
	r := make(orb.Ring, len(cs))
	for i, c := range cs {
		r[i] = orb.Point{c.Lon, c.Lat}
	}
	return r
}
