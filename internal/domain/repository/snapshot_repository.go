// Package repository internal/domain/repository/snapshot_repository.go
package repository

import (
	"context"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

// SnapshotRepository defines the interface for obtaining validated data sets
type SnapshotRepository interface {
	// Load fetches the source and produces a fresh validated snapshot
	Load(ctx context.Context) (*entity.Snapshot, error)
}
