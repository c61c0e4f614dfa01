package repository

import (
	"context"
	"database/sql"
	"fmt"
)

const dateLayout = "2006-01-02"

// Ensure SQLiteRepository implements MetricsRepository
var _ MetricsRepository = (*SQLiteRepository)(nil)

// SQLiteRepository stores daily metrics in the single-file database.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new metrics repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// UpsertDaily writes a batch of records inside one transaction, enforcing
// the (store_id, metric_date, metric) uniqueness invariant. Re-running the
// same batch is a no-op beyond re-writing identical values.
func (r *SQLiteRepository) UpsertDaily(ctx context.Context, records []MetricRecord) (UpsertResult, error) {
	var result UpsertResult
	if len(records) == 0 {
		return result, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insertStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_metrics (store_id, metric_date, metric, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (store_id, metric_date, metric) DO NOTHING
	`)
	if err != nil {
		return result, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer insertStmt.Close()

	updateStmt, err := tx.PrepareContext(ctx, `
		UPDATE daily_metrics
		SET value = ?, updated_at = datetime('now')
		WHERE store_id = ? AND metric_date = ? AND metric = ?
	`)
	if err != nil {
		return result, fmt.Errorf("failed to prepare update: %w", err)
	}
	defer updateStmt.Close()

	for _, rec := range records {
		date := rec.Date.Format(dateLayout)

		res, err := insertStmt.ExecContext(ctx, rec.StoreID, date, string(rec.Metric), rec.Value)
		if err != nil {
			return result, fmt.Errorf("failed to insert metric row: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return result, fmt.Errorf("failed to read rows affected: %w", err)
		}

		if affected == 1 {
			result.Inserted++
			continue
		}

		if _, err := updateStmt.ExecContext(ctx, rec.Value, rec.StoreID, date, string(rec.Metric)); err != nil {
			return result, fmt.Errorf("failed to update metric row: %w", err)
		}
		result.Updated++
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("failed to commit upsert: %w", err)
	}
	return result, nil
}

// RecordImportJob persists the audit row for one processed upload.
func (r *SQLiteRepository) RecordImportJob(ctx context.Context, job *ImportJob) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO import_jobs (id, file_name, rows_inserted, rows_updated, rows_skipped, warnings)
		VALUES (?, ?, ?, ?, ?, ?)
	`, job.ID.String(), job.FileName, job.RowsInserted, job.RowsUpdated, job.RowsSkipped, job.Warnings)
	if err != nil {
		return fmt.Errorf("failed to record import job: %w", err)
	}
	return nil
}

// ListStores returns the distinct store IDs seen in the metrics table.
func (r *SQLiteRepository) ListStores(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT store_id FROM daily_metrics ORDER BY store_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	defer rows.Close()

	var stores []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan store id: %w", err)
		}
		stores = append(stores, id)
	}
	return stores, rows.Err()
}

// DistinctDates returns every date with data for a store, ascending. Feeds
// the dashboard's date selector.
func (r *SQLiteRepository) DistinctDates(ctx context.Context, storeID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT metric_date FROM daily_metrics WHERE store_id = ? ORDER BY metric_date
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// CountRecords returns the number of persisted rows for a store.
func (r *SQLiteRepository) CountRecords(ctx context.Context, storeID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM daily_metrics WHERE store_id = ?
	`, storeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}
