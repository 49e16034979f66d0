// Package service holds the use cases behind the HTTP API: the dashboard over
// the current snapshot and the chat turn over a conversation.
package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/alerting"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/analysis"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/ingest"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/metrics"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/repository"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/cache"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/logger"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/middleware"
)

const dashboardTopN = 5

// SnapshotInfo identifies the snapshot a response was computed from
type SnapshotInfo struct {
	ID       string    `json:"id"`
	Source   string    `json:"source"`
	LoadedAt time.Time `json:"loaded_at"`
	Records  int       `json:"records"`
	Degraded bool      `json:"degraded"`
}

// Dashboard is everything the dashboard view shows in one response
type Dashboard struct {
	Snapshot     SnapshotInfo            `json:"snapshot"`
	Summary      metrics.Summary         `json:"summary"`
	MonthlyTrend []metrics.MonthValue    `json:"monthly_trend"`
	TopProducts  []metrics.GroupValue    `json:"top_products"`
	TopLocations []metrics.GroupValue    `json:"top_locations"`
	LowStock     []metrics.StockLevel    `json:"low_stock"`
	ExpiringSoon []metrics.ExpiryItem    `json:"expiring_soon"`
	Performers   metrics.Performance     `json:"performers"`
	Recommended  []string                `json:"recommended"`
	Alerts       []alerting.Alert        `json:"alerts"`
	Report       entity.ValidationReport `json:"report"`
}

// DashboardService serves metric queries over the current snapshot.
// The snapshot is reused until it expires and then reloaded in full.
type DashboardService struct {
	repo     repository.SnapshotRepository
	cache    *cache.SnapshotCache
	policy   *alerting.Policy
	analyses *analysis.Registry
	logger   logger.Logger
}

// NewDashboardService creates a new dashboard service. A nil registry uses the default analyses.
func NewDashboardService(repo repository.SnapshotRepository, snapshots *cache.SnapshotCache, policy *alerting.Policy, analyses *analysis.Registry, log logger.Logger) *DashboardService {
	if analyses == nil {
		analyses = analysis.DefaultRegistry()
	}

	return &DashboardService{
		repo:     repo,
		cache:    snapshots,
		policy:   policy,
		analyses: analyses,
		logger:   logger.OrDefault(log),
	}
}

// Snapshot returns the current snapshot, loading a new one when the cached one has expired
func (s *DashboardService) Snapshot(ctx context.Context) (*entity.Snapshot, error) {
	snap, cached, err := s.cache.GetOrLoad(ctx, s.repo.Load)
	if err != nil {
		s.logger.Error("Failed to load snapshot", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"error":      err,
		})
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	if !cached {
		s.logger.Info("Snapshot swapped in", map[string]interface{}{
			"request_id":  middleware.GetRequestID(ctx),
			"snapshot_id": snap.ID,
			"records":     snap.Records.Len(),
		})
	}
	return snap, nil
}

// Refresh loads a new snapshot regardless of the cached one's age. On failure
// the cached snapshot is left as it was.
func (s *DashboardService) Refresh(ctx context.Context) (*entity.Snapshot, error) {
	snap, err := s.cache.Reload(ctx, s.repo.Load)
	if err != nil {
		s.logger.Error("Forced refresh failed", map[string]interface{}{
			"request_id": middleware.GetRequestID(ctx),
			"error":      err,
		})
		return nil, fmt.Errorf("failed to refresh snapshot: %w", err)
	}

	s.logger.Info("Snapshot refreshed", map[string]interface{}{
		"request_id":  middleware.GetRequestID(ctx),
		"snapshot_id": snap.ID,
		"records":     snap.Records.Len(),
	})
	return snap, nil
}

// Info summarizes a snapshot for responses
func Info(snap *entity.Snapshot) SnapshotInfo {
	return SnapshotInfo{
		ID:       snap.ID,
		Source:   snap.Source,
		LoadedAt: snap.LoadedAt,
		Records:  snap.Records.Len(),
		Degraded: snap.Report.Degraded(),
	}
}

// Dashboard computes the full dashboard as of reference
func (s *DashboardService) Dashboard(ctx context.Context, reference time.Time) (*Dashboard, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	rs := snap.Records
	cfg := s.policy.Config()

	trend, err := metrics.MonthlyTrend(rs, metrics.Revenue)
	if err != nil {
		return nil, err
	}
	topProducts, err := metrics.TopBy(rs, metrics.ByProduct, metrics.Revenue, dashboardTopN)
	if err != nil {
		return nil, err
	}
	topLocations, err := metrics.TopBy(rs, metrics.ByLocation, metrics.Revenue, dashboardTopN)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Snapshot:     Info(snap),
		Summary:      metrics.Summarize(rs),
		MonthlyTrend: trend,
		TopProducts:  topProducts,
		TopLocations: topLocations,
		LowStock:     metrics.LowStock(rs, cfg.LowStockThreshold),
		ExpiringSoon: metrics.ExpiringWithin(rs, reference, cfg.ExpiryWarningDays),
		Performers:   metrics.Performers(rs, dashboardTopN),
		Recommended:  metrics.Recommend(rs, 3),
		Alerts:       s.policy.Evaluate(rs, reference),
		Report:       snap.Report,
	}, nil
}

// Top ranks groups by a summed metric
func (s *DashboardService) Top(ctx context.Context, key metrics.GroupKey, metric metrics.Metric, n int) ([]metrics.GroupValue, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return metrics.TopBy(snap.Records, key, metric, n)
}

// Monthly returns the zero-filled monthly trend of a metric
func (s *DashboardService) Monthly(ctx context.Context, metric metrics.Metric) ([]metrics.MonthValue, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return metrics.MonthlyTrend(snap.Records, metric)
}

// LowStock lists products whose minimum inventory is below threshold.
// A negative threshold uses the policy's low-stock threshold.
func (s *DashboardService) LowStock(ctx context.Context, threshold int64) ([]metrics.StockLevel, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if threshold < 0 {
		threshold = s.policy.Config().LowStockThreshold
	}
	return metrics.LowStock(snap.Records, threshold), nil
}

// Expiring lists stock expiring within days of reference.
// A negative days value uses the policy's warning window.
func (s *DashboardService) Expiring(ctx context.Context, reference time.Time, days int) ([]metrics.ExpiryItem, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if days < 0 {
		days = s.policy.Config().ExpiryWarningDays
	}
	return metrics.ExpiringWithin(snap.Records, reference, days), nil
}

// Performers returns the best and worst products by mean profit
func (s *DashboardService) Performers(ctx context.Context, n int) (metrics.Performance, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return metrics.Performance{}, err
	}
	return metrics.Performers(snap.Records, n), nil
}

// Thresholds returns the alert thresholds used for defaults
func (s *DashboardService) Thresholds() alerting.Config {
	return s.policy.Config()
}

// Alerts evaluates the alerting policy as of reference
func (s *DashboardService) Alerts(ctx context.Context, reference time.Time) ([]alerting.Alert, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.policy.Evaluate(snap.Records, reference), nil
}

// Analysis runs a registered plug-in analysis
func (s *DashboardService) Analysis(ctx context.Context, name string) (interface{}, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.analyses.Run(name, snap.Records)
}

// AnalysisNames lists the registered analyses
func (s *DashboardService) AnalysisNames() []string {
	return s.analyses.Names()
}

// Export writes the current snapshot's records as CSV
func (s *DashboardService) Export(ctx context.Context, w io.Writer) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	return ingest.WriteCSV(w, snap.Records)
}
