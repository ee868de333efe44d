// Package workflows runs scouts as durable Temporal workflows, one activity
// per report section.
package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/sitescout/internal/core/domain"
	"github.com/samirrijal/sitescout/internal/core/usecases"
)

// ScoutInput is the input of ScoutWorkflow. An empty Categories list means
// every enabled category; a zero Timestamp means the workflow start time.
type ScoutInput struct {
	Lat        float64
	Lon        float64
	RadiusKm   float64
	Categories []domain.Category
	Timestamp  time.Time
}

// Query returns the scout query described by the input.
func (in ScoutInput) Query() domain.Query {
	return domain.Query{
		Coordinate: domain.Coordinate{Lat: in.Lat, Lon: in.Lon},
		RadiusKm:   in.RadiusKm,
		Timestamp:  in.Timestamp,
	}
}

// ScoutWorkflow fans out one activity per category plus the broadband and
// regulatory lookups, then assembles the report. A section whose activity
// still fails after its retries is reported with an error rather than
// failing the workflow. The workflow ID becomes the report ID.
func ScoutWorkflow(ctx workflow.Context, input ScoutInput) (*domain.Report, error) {
	logger := workflow.GetLogger(ctx)

	q := input.Query()
	if err := q.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidQuery", err)
	}
	if q.Timestamp.IsZero() {
		q.Timestamp = workflow.Now(ctx).UTC()
	}
	logger.Info("Starting scout workflow", "lat", q.Coordinate.Lat, "lon", q.Coordinate.Lon, "radiusKm", q.RadiusKm)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    3,
		},
	})

	categories := input.Categories
	if len(categories) == 0 {
		if err := workflow.ExecuteActivity(ctx, ListCategoriesActivity).Get(ctx, &categories); err != nil {
			return nil, err
		}
	}

	futures := make([]workflow.Future, len(categories))
	for i, cat := range categories {
		futures[i] = workflow.ExecuteActivity(ctx, ScoutCategoryActivity, q, cat)
	}
	bbFuture := workflow.ExecuteActivity(ctx, BroadbandActivity, q.Coordinate)
	regFuture := workflow.ExecuteActivity(ctx, RegulatoryActivity, q.Coordinate)

	sections := make([]domain.CategoryResult, len(categories))
	for i, f := range futures {
		if err := f.Get(ctx, &sections[i]); err != nil {
			logger.Warn("category failed", "category", categories[i], "error", err)
			sections[i] = domain.CategoryResult{
				Category: categories[i],
				Label:    string(categories[i]),
				Features: domain.ResultSet{},
				Error:    err.Error(),
			}
		}
	}

	var bb domain.BroadbandSummary
	if err := bbFuture.Get(ctx, &bb); err != nil {
		logger.Warn("broadband failed", "error", err)
		bb = domain.BroadbandSummary{Error: err.Error()}
	}

	var reg usecases.RegulatoryResult
	if err := regFuture.Get(ctx, &reg); err != nil {
		logger.Warn("regulatory checks failed", "error", err)
		reg = usecases.UnknownRegulatory(err.Error())
	}

	report := usecases.Assemble(workflow.GetInfo(ctx).WorkflowExecution.ID, q, sections, bb, reg)
	logger.Info("Scout workflow complete", "score", report.Summary.ConnectivityScore)
	return report, nil
}
