package ports

import (
	"context"
)

// ReferenceRepository serves static reference data. Implementations are
// read-through: the core never writes to them.
type ReferenceRepository interface {
	// NonattainmentPollutants returns the EPA nonattainment pollutants for a
	// county FIPS code. found is false when the county is not listed, which
	// callers treat as attainment.
	NonattainmentPollutants(ctx context.Context, countyFIPS string) (pollutants []string, found bool, err error)
	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
