// Command scout prints a site report for one coordinate.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/samirrijal/sitescout/internal/bootstrap"
	"github.com/samirrijal/sitescout/internal/core/domain"
	"github.com/samirrijal/sitescout/internal/pkg/config"
	"github.com/samirrijal/sitescout/internal/pkg/logging"
	"github.com/samirrijal/sitescout/internal/report"
)

type Options struct {
	Lat        float64 `long:"lat"         required:"true" description:"Latitude in decimal degrees"`
	Lon        float64 `long:"lon"         required:"true" description:"Longitude in decimal degrees"`
	Radius     float64 `short:"r" long:"radius"      description:"Search radius in km (default from config)"`
	Format     string  `short:"f" long:"format"      description:"Output format" choice:"markdown" choice:"md" choice:"json" choice:"geojson" default:"markdown"`
	Output     string  `short:"o" long:"output"      description:"Write the report to a file instead of stdout"`
	ConfigFile string  `short:"c" long:"config"      env:"SITESCOUT_CONFIG" description:"Path to configuration file"`
	VertexOnly bool    `long:"vertex-only" description:"Measure to the nearest vertex only (faster, overestimates)"`
	Top        int     `long:"top"         description:"Features listed per category in markdown (default from config)"`
	LogLevel   string  `long:"log-level"   env:"SITESCOUT_LOG_LEVEL" description:"Log level" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"warn"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	radiusSet := parser.FindOptionByLongName("radius").IsSet()

	if err := run(opts, radiusSet); err != nil {
		fmt.Fprintf(os.Stderr, "scout: %v\n", err)
		os.Exit(1)
	}
}

func run(opts Options, radiusSet bool) error {
	// stdout carries the report
	logger := logging.SetupWriter(os.Stderr, opts.LogLevel, "text")

	cfg, err := config.Load("sitescout-cli", opts.ConfigFile)
	if err != nil {
		return err
	}

	q := domain.Query{
		Coordinate: domain.Coordinate{Lat: opts.Lat, Lon: opts.Lon},
		RadiusKm:   cfg.Scout.DefaultRadiusKm,
	}
	if radiusSet {
		q.RadiusKm = opts.Radius
	}
	if err := q.Validate(); err != nil {
		return err
	}

	format, err := report.ParseFormat(opts.Format)
	if err != nil {
		return err
	}
	top := cfg.Scout.TopN
	if opts.Top > 0 {
		top = opts.Top
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.New(ctx, cfg, bootstrap.Options{VertexOnly: opts.VertexOnly, Logger: logger})
	if err != nil {
		return err
	}
	defer svc.Close()

	rep, err := svc.Scout.Scout(ctx, q)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("interrupted")
		}
		return err
	}

	if err := writeReport(os.Stdout, opts.Output, rep, format, report.Options{TopN: top}); err != nil {
		return err
	}
	if opts.Output != "" {
		logger.Info("report written", "path", opts.Output, "id", rep.ID)
	}
	return nil
}

// writeReport renders rep to path, or to stdout when path is empty. A failed
// close is returned as an error.
func writeReport(stdout io.Writer, path string, rep *domain.Report, format report.Format, ro report.Options) (err error) {
	out := stdout
	if path != "" {
		f, cerr := os.Create(path)
		if cerr != nil {
			return fmt.Errorf("create output: %w", cerr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close output: %w", cerr)
			}
		}()
		out = f
	}

	if rerr := report.Render(out, rep, format, ro); rerr != nil {
		return fmt.Errorf("render: %w", rerr)
	}
	return nil
}
