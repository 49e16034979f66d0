package service

import (
	"context"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

// SheetSource defines the interface for fetching the raw sales table
type SheetSource interface {
	// FetchTable downloads and parses the spreadsheet. Failures are *entity.LoadError.
	FetchTable(ctx context.Context) (*entity.Table, error)

	// Name identifies the source in logs and snapshots
	Name() string
}
