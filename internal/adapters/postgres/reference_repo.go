package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/sitescout/internal/core/ports"
)

// ReferenceRepo implements ports.ReferenceRepository.
type ReferenceRepo struct {
	db *DB
}

var _ ports.ReferenceRepository = (*ReferenceRepo)(nil)

func NewReferenceRepo(db *DB) *ReferenceRepo {
	return &ReferenceRepo{db: db}
}

func (r *ReferenceRepo) NonattainmentPollutants(ctx context.Context, countyFIPS string) ([]string, bool, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT pollutant
		FROM epa_nonattainment
		WHERE county_fips = $1
		ORDER BY pollutant
	`, countyFIPS)
	if err != nil {
		return nil, false, fmt.Errorf("query nonattainment: %w", err)
	}

	pollutants, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, false, fmt.Errorf("scan nonattainment: %w", err)
	}
	if len(pollutants) == 0 {
		return nil, false, nil
	}
	return pollutants, true, nil
}

func (r *ReferenceRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// ReplaceNonattainment swaps the whole table in one transaction.
func (r *ReferenceRepo) ReplaceNonattainment(ctx context.Context, table map[string][]string) (int, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM epa_nonattainment`); err != nil {
		return 0, fmt.Errorf("clear nonattainment: %w", err)
	}

	var rows [][]any
	for fips, pollutants := range table {
		for _, p := range pollutants {
			rows = append(rows, []any{fips, p})
		}
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"epa_nonattainment"},
		[]string{"county_fips", "pollutant"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("copy nonattainment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return int(n), nil
}
