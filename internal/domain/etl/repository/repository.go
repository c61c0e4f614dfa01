// Package repository persists normalized daily metrics.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/caratlabs/storepulse/internal/domain/etl/extractor"
)

// MetricRecord is the canonical persisted row: one value per store, day and
// metric. Unique on (StoreID, Date, Metric); later loads overwrite earlier
// ones for the same key.
type MetricRecord struct {
	StoreID string
	Date    time.Time
	Metric  extractor.MetricKind
	Value   float64
}

// UpsertResult reports how an upsert batch landed.
type UpsertResult struct {
	Inserted int
	Updated  int
}

// ImportJob records one processed upload for audit.
type ImportJob struct {
	ID           uuid.UUID
	FileName     string
	RowsInserted int
	RowsUpdated  int
	RowsSkipped  int
	Warnings     int
	CreatedAt    time.Time
}

// MetricsRepository defines the persistence surface used by the loader and
// the KPI engine's store listing.
type MetricsRepository interface {
	UpsertDaily(ctx context.Context, records []MetricRecord) (UpsertResult, error)
	RecordImportJob(ctx context.Context, job *ImportJob) error
	ListStores(ctx context.Context) ([]string, error)
	DistinctDates(ctx context.Context, storeID string) ([]string, error)
	CountRecords(ctx context.Context, storeID string) (int, error)
}
