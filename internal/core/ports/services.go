package ports

import (
	"context"

	"github.com/samirrijal/sitescout/internal/core/domain"
)

// FeatureQuery asks a feature service for every record within RadiusKm of Origin.
type FeatureQuery struct {
	Endpoint string
	Where    string
	Origin   domain.Coordinate
	RadiusKm float64
}

// FeatureSource fetches raw records from a remote feature service. An empty
// slice with a nil error means no features were found.
type FeatureSource interface {
	Query(ctx context.Context, q FeatureQuery) ([]domain.RawRecord, error)
}

// BroadbandSource lists broadband offers at a location.
type BroadbandSource interface {
	Availability(ctx context.Context, at domain.Coordinate) ([]domain.BroadbandOffer, error)
}

// GeographyLookup resolves the census geography containing a coordinate.
type GeographyLookup interface {
	Geographies(ctx context.Context, at domain.Coordinate) (*domain.Geographies, error)
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
