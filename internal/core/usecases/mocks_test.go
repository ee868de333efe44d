package usecases_test

import (
	"context"

	"github.com/samirrijal/sitescout/internal/core/domain"
	"github.com/samirrijal/sitescout/internal/core/ports"
)

// --- Mock FeatureSource ---

type mockFeatureSource struct {
	queryFn func(ctx context.Context, q ports.FeatureQuery) ([]domain.RawRecord, error)
}

func (m *mockFeatureSource) Query(ctx context.Context, q ports.FeatureQuery) ([]domain.RawRecord, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, q)
	}
	return nil, nil
}

// --- Mock BroadbandSource ---

type mockBroadband struct {
	availabilityFn func(ctx context.Context, at domain.Coordinate) ([]domain.BroadbandOffer, error)
}

func (m *mockBroadband) Availability(ctx context.Context, at domain.Coordinate) ([]domain.BroadbandOffer, error) {
	if m.availabilityFn != nil {
		return m.availabilityFn(ctx, at)
	}
	return nil, nil
}

// --- Mock GeographyLookup ---

type mockGeo struct {
	geographiesFn func(ctx context.Context, at domain.Coordinate) (*domain.Geographies, error)
}

func (m *mockGeo) Geographies(ctx context.Context, at domain.Coordinate) (*domain.Geographies, error) {
	if m.geographiesFn != nil {
		return m.geographiesFn(ctx, at)
	}
	return &domain.Geographies{}, nil
}

// --- Mock ReferenceRepository ---

type mockRefs struct {
	pollutantsFn func(ctx context.Context, fips string) ([]string, bool, error)
}

func (m *mockRefs) NonattainmentPollutants(ctx context.Context, fips string) ([]string, bool, error) {
	if m.pollutantsFn != nil {
		return m.pollutantsFn(ctx, fips)
	}
	return nil, false, nil
}

func (m *mockRefs) Ping(ctx context.Context) error { return nil }
