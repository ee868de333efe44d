package workflows

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/sitescout/internal/core/domain"
	"github.com/samirrijal/sitescout/internal/core/usecases"
)

// Activity names, registered explicitly so workflows and workers agree on them.
const (
	ListCategoriesActivity = "ListCategories"
	ScoutCategoryActivity  = "ScoutCategory"
	BroadbandActivity      = "Broadband"
	RegulatoryActivity     = "Regulatory"
)

// ScoutActivities runs the report sections of a scout as Temporal activities.
// BroadbandSvc and RegulatorySvc may be nil.
type ScoutActivities struct {
	Scout         *usecases.ScoutService
	BroadbandSvc  *usecases.BroadbandService
	RegulatorySvc *usecases.RegulatoryService
}

// ListCategories returns the enabled categories in report order.
func (a *ScoutActivities) ListCategories(ctx context.Context) ([]domain.Category, error) {
	defs := a.Scout.Catalog().List()
	out := make([]domain.Category, len(defs))
	for i, d := range defs {
		out[i] = d.ID
	}
	return out, nil
}

// ScoutCategory queries one category. An upstream failure is returned as an
// error so Temporal retries it; invalid input is not retried.
func (a *ScoutActivities) ScoutCategory(ctx context.Context, q domain.Query, cat domain.Category) (domain.CategoryResult, error) {
	res, err := a.Scout.ScoutCategory(ctx, q, cat)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownCategory) || errors.Is(err, domain.ErrInvalidCoordinate) || errors.Is(err, domain.ErrNegativeRadius) {
			return domain.CategoryResult{}, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidQuery", err)
		}
		return domain.CategoryResult{}, err
	}
	if res.Error != "" {
		activity.GetLogger(ctx).Warn("category query failed", "category", cat, "error", res.Error)
		return domain.CategoryResult{}, errors.New(res.Error)
	}
	return res, nil
}

// Broadband summarizes broadband availability, failing when the source did.
func (a *ScoutActivities) Broadband(ctx context.Context, at domain.Coordinate) (domain.BroadbandSummary, error) {
	if a.BroadbandSvc == nil {
		return domain.BroadbandSummary{}, nil
	}
	bb := a.BroadbandSvc.Summary(ctx, at)
	if bb.Error != "" {
		return domain.BroadbandSummary{}, errors.New(bb.Error)
	}
	return bb, nil
}

// Regulatory runs the city limits and attainment checks. Their failures are
// recorded on the result rather than retried.
func (a *ScoutActivities) Regulatory(ctx context.Context, at domain.Coordinate) (usecases.RegulatoryResult, error) {
	if a.RegulatorySvc == nil {
		return usecases.UnknownRegulatory("regulatory checks not configured"), nil
	}
	return a.RegulatorySvc.Check(ctx, at), nil
}
