package report

import (
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/sitescout/internal/core/domain"
	"github.com/samirrijal/sitescout/internal/pkg/geospatial"
)

// FeatureCollection returns the query point followed by the nearest point of
// every feature, in section order. The collection bbox is the search box.
func FeatureCollection(r *domain.Report) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	box := geospatial.BoundingBox(r.Query.Coordinate, r.Query.RadiusKm)
	fc.BBox = geojson.NewBBox(orb.Bound{
		Min: orb.Point{box.West, box.South},
		Max: orb.Point{box.East, box.North},
	})

	origin := geojson.NewFeature(point(r.Query.Coordinate))
	origin.ID = r.ID
	origin.Properties["role"] = "query"
	origin.Properties["radius_km"] = r.Query.RadiusKm
	origin.Properties["connectivity_score"] = r.Summary.ConnectivityScore
	fc.Append(origin)

	for _, s := range r.Sections {
		for i, f := range s.Features {
			feat := geojson.NewFeature(point(f.NearestPoint))
			feat.Properties["role"] = "feature"
			feat.Properties["category"] = string(s.Category)
			feat.Properties["rank"] = i + 1
			feat.Properties["name"] = f.DisplayName
			feat.Properties["distance_km"] = f.DistanceKm
			feat.Properties["distance_mi"] = f.DistanceMi
			feat.Properties["resolve_mode"] = string(f.Mode)
			feat.Properties["verification_url"] = f.VerificationURL
			feat.Properties["in_search_box"] = geospatial.InBounds(f.NearestPoint, box)
			if f.Bearing != "" {
				feat.Properties["direction"] = string(f.Bearing)
			}
			if f.Owner != "" {
				feat.Properties["owner"] = f.Owner
			}
			if f.VoltageKV != nil {
				feat.Properties["voltage_kv"] = *f.VoltageKV
			}
			if f.CapacityMW != nil {
				feat.Properties["capacity_mw"] = *f.CapacityMW
			}
			if f.Inside != nil {
				feat.Properties["inside"] = *f.Inside
			}
			if f.Starred {
				feat.Properties["starred"] = true
			}
			fc.Append(feat)
		}
	}
	return fc
}

// WriteGeoJSON writes the feature collection.
func WriteGeoJSON(w io.Writer, r *domain.Report) error {
	data, err := FeatureCollection(r).MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func point(c domain.Coordinate) orb.Point {
	return orb.Point{c.Lon, c.Lat}
}
