package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/sitescout/internal/bootstrap"
	"github.com/samirrijal/sitescout/internal/pkg/config"
	"github.com/samirrijal/sitescout/internal/pkg/logging"
	"github.com/samirrijal/sitescout/internal/workflows"
)

func main() {
	cfg, err := config.Load("sitescout-worker", os.Getenv("SITESCOUT_CONFIG"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	svc, err := bootstrap.New(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("wire services: %v", err)
	}
	defer svc.Close()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	acts := &workflows.ScoutActivities{
		Scout:         svc.Scout,
		BroadbandSvc:  svc.Broadband,
		RegulatorySvc: svc.Regulatory,
	}
	w.RegisterWorkflow(workflows.ScoutWorkflow)
	w.RegisterActivityWithOptions(acts.ListCategories, activity.RegisterOptions{Name: workflows.ListCategoriesActivity})
	w.RegisterActivityWithOptions(acts.ScoutCategory, activity.RegisterOptions{Name: workflows.ScoutCategoryActivity})
	w.RegisterActivityWithOptions(acts.Broadband, activity.RegisterOptions{Name: workflows.BroadbandActivity})
	w.RegisterActivityWithOptions(acts.Regulatory, activity.RegisterOptions{Name: workflows.RegulatoryActivity})

	slog.Info("scout worker started", "task_queue", cfg.Temporal.TaskQueue, "categories", len(svc.Catalog.List()))
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
