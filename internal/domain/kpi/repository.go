// Package kpi computes monthly store KPIs from the persisted daily metrics:
// customer count, average spend and labor productivity, with year-over-year
// deltas where a prior-year baseline exists.
package kpi

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MonthlyMetricRow is one (month, metric) aggregate straight from storage.
type MonthlyMetricRow struct {
	YearMonth string // "2026-08"
	Metric    string
	Sum       float64
	Mean      float64
	Count     int
}

// SeriesPoint is one month of a single-metric series, ordered ascending.
type SeriesPoint struct {
	YearMonth string  `json:"year_month"`
	Value     float64 `json:"value"`
}

// KPIRepository defines the read surface of the KPI engine.
type KPIRepository interface {
	MonthlyRows(ctx context.Context, storeID string, from, to time.Time) ([]MonthlyMetricRow, error)
}

// Ensure Repository implements KPIRepository
var _ KPIRepository = (*Repository)(nil)

// Repository reads monthly aggregates from SQLite. Aggregates are derived,
// never persisted; each query recomputes from daily_metrics.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new KPI repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const dateLayout = "2006-01-02"

// MonthlyRows returns per-month sum/mean/count for every metric of a store
// within [from, to).
func (r *Repository) MonthlyRows(ctx context.Context, storeID string, from, to time.Time) ([]MonthlyMetricRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT substr(metric_date, 1, 7) AS ym,
		       metric,
		       SUM(value),
		       AVG(value),
		       COUNT(*)
		FROM daily_metrics
		WHERE store_id = ?
		  AND metric_date >= ?
		  AND metric_date < ?
		GROUP BY ym, metric
		ORDER BY ym, metric
	`, storeID, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly rows: %w", err)
	}
	defer rows.Close()

	var result []MonthlyMetricRow
	for rows.Next() {
		var row MonthlyMetricRow
		if err := rows.Scan(&row.YearMonth, &row.Metric, &row.Sum, &row.Mean, &row.Count); err != nil {
			return nil, fmt.Errorf("failed to scan monthly row: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
