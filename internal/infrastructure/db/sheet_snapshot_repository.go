package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/ingest"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/repository"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/service"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/logger"
)

// SheetSnapshotRepository builds snapshots by fetching a sheet and running the ingest pipeline
type SheetSnapshotRepository struct {
	source   service.SheetSource
	pipeline *ingest.Pipeline
	logger   logger.Logger
	now      func() time.Time
}

// NewSheetSnapshotRepository creates a new snapshot repository
func NewSheetSnapshotRepository(source service.SheetSource, pipeline *ingest.Pipeline, log logger.Logger) repository.SnapshotRepository {
	return &SheetSnapshotRepository{
		source:   source,
		pipeline: pipeline,
		logger:   logger.OrDefault(log),
		now:      time.Now,
	}
}

// Load fetches the sheet and validates it into a new snapshot. Transport
// failures are *entity.LoadError and missing columns are *entity.SchemaError.
func (r *SheetSnapshotRepository) Load(ctx context.Context) (*entity.Snapshot, error) {
	start := r.now()
	fields := map[string]interface{}{
		"source": r.source.Name(),
		"schema": r.pipeline.Schema().Name,
	}
	r.logger.Info("Loading snapshot", fields)

	raw, err := r.source.FetchTable(ctx)
	if err != nil {
		r.logger.Error("Failed to fetch sheet", merge(fields, map[string]interface{}{"error": err}))

		var loadErr *entity.LoadError
		if errors.As(err, &loadErr) {
			return nil, err
		}
		return nil, &entity.LoadError{Source: r.source.Name(), Err: err}
	}

	records, report, err := r.pipeline.Run(raw)
	if err != nil {
		r.logger.Error("Sheet failed validation", merge(fields, map[string]interface{}{"error": err}))
		return nil, err
	}

	snapshot := &entity.Snapshot{
		ID:       uuid.New().String(),
		Source:   r.source.Name(),
		LoadedAt: r.now(),
		Records:  records,
		Report:   report,
	}

	done := merge(fields, map[string]interface{}{
		"snapshot_id":   snapshot.ID,
		"total_rows":    report.TotalRows,
		"accepted_rows": report.AcceptedRows,
		"duration_ms":   snapshot.LoadedAt.Sub(start).Milliseconds(),
	})
	if report.Degraded() {
		failures := 0
		for _, w := range report.CoercionWarnings {
			failures += w.Failures
		}
		r.logger.Warn("Snapshot loaded with degraded rows", merge(done, map[string]interface{}{
			"rejected_rows":     report.RejectedRows,
			"coercion_failures": failures,
			"alias_conflicts":   len(report.AliasConflicts),
		}))
	} else {
		r.logger.Info("Snapshot loaded", done)
	}

	return snapshot, nil
}

func merge(base, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
