package cache

import (
	"context"
	"time"

	"github.com/mine-martin-12/web-POS/internal/domain"
)

// DashboardCache holds computed dashboard aggregates keyed by tenant and
// date window. Misses and errors are both non-fatal; callers recompute.
type DashboardCache interface {
	Get(ctx context.Context, key string) (*domain.DashboardMetrics, bool, error)
	Set(ctx context.Context, key string, value *domain.DashboardMetrics, ttl time.Duration) error
}

type NoopDashboardCache struct{}

func (NoopDashboardCache) Get(_ context.Context, _ string) (*domain.DashboardMetrics, bool, error) {
	return nil, false, nil
}

func (NoopDashboardCache) Set(_ context.Context, _ string, _ *domain.DashboardMetrics, _ time.Duration) error {
	return nil
}
