package http

import (
	"context"
	"time"

	"github.com/samirrijal/sitescout/internal/core/ports"
	"github.com/samirrijal/sitescout/internal/core/usecases"
)

// Pinger is a backing store the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Scout     *usecases.ScoutService
	Reference ports.ReferenceRepository
	Cache     Pinger // nil when the upstream cache is disabled

	DefaultRadiusKm float64
	MaxRadiusKm     float64
	TopN            int
	RequestTimeout  time.Duration
	RateLimit       int // requests per minute per IP
	DocsPath        string
}

func (d *Dependencies) requestTimeout() time.Duration {
	if d.RequestTimeout <= 0 {
		return 90 * time.Second
	}
	return d.RequestTimeout
}

func (d *Dependencies) rateLimit() int {
	if d.RateLimit <= 0 {
		return 30
	}
	return d.RateLimit
}

func (d *Dependencies) maxRadiusKm() float64 {
	if d.MaxRadiusKm <= 0 {
		return 100
	}
	return d.MaxRadiusKm
}
