// Package service orchestrates the extract -> normalize -> load pipeline.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/caratlabs/storepulse/internal/domain/etl/extractor"
	"github.com/caratlabs/storepulse/internal/domain/etl/normalizer"
	"github.com/caratlabs/storepulse/internal/domain/etl/repository"
	"github.com/caratlabs/storepulse/internal/metrics"
)

var tracer = otel.Tracer("storepulse/etl")

// ImportSummary is returned to the operator after each upload.
type ImportSummary struct {
	JobID        uuid.UUID                `json:"job_id"`
	FileName     string                   `json:"file_name"`
	SheetsRead   int                      `json:"sheets_read"`
	RowsInserted int                      `json:"rows_inserted"`
	RowsUpdated  int                      `json:"rows_updated"`
	RowsSkipped  int                      `json:"rows_skipped"`
	Warnings     []extractor.RowWarning   `json:"warnings,omitempty"`
	PerMetric    map[string]int           `json:"per_metric"`
}

// ETLService runs the ingestion pipeline and records job audit rows.
type ETLService struct {
	repo       repository.MetricsRepository
	normalizer *normalizer.StoreNormalizer
	excel      *extractor.ExcelExtractor
	logger     *slog.Logger
}

// NewETLService creates the pipeline service.
func NewETLService(repo repository.MetricsRepository, norm *normalizer.StoreNormalizer, logger *slog.Logger) *ETLService {
	return &ETLService{
		repo:       repo,
		normalizer: norm,
		excel:      extractor.NewExcelExtractor(),
		logger:     logger,
	}
}

// ImportWorkbook ingests one multi-sheet xlsx export.
func (s *ETLService) ImportWorkbook(ctx context.Context, fileName string, reader io.Reader) (*ImportSummary, error) {
	ctx, span := tracer.Start(ctx, "etl.import_workbook")
	defer span.End()
	span.SetAttributes(attribute.String("file", fileName))

	extracted, err := s.excel.ParseWorkbook(reader)
	if err != nil {
		metrics.ImportFiles.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("extract %s: %w", fileName, err)
	}

	return s.load(ctx, fileName, extracted)
}

// ImportCSV ingests a single-metric CSV export.
func (s *ETLService) ImportCSV(ctx context.Context, fileName string, kind extractor.MetricKind, reader io.Reader) (*ImportSummary, error) {
	ctx, span := tracer.Start(ctx, "etl.import_csv")
	defer span.End()
	span.SetAttributes(attribute.String("file", fileName), attribute.String("metric", string(kind)))

	extracted, err := extractor.ParseCSV(reader, kind)
	if err != nil {
		metrics.ImportFiles.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("extract %s: %w", fileName, err)
	}

	return s.load(ctx, fileName, extracted)
}

// load normalizes store labels, upserts the batch and records the job.
func (s *ETLService) load(ctx context.Context, fileName string, extracted *extractor.ExtractResult) (*ImportSummary, error) {
	records := make([]repository.MetricRecord, 0, len(extracted.Records))
	perMetric := make(map[string]int)

	for _, raw := range extracted.Records {
		storeID := s.normalizer.CanonicalStoreID(raw.StoreID)
		records = append(records, repository.MetricRecord{
			StoreID: storeID,
			Date:    raw.Date,
			Metric:  raw.Metric,
			Value:   raw.Value,
		})
		perMetric[string(raw.Metric)]++
	}

	result, err := s.repo.UpsertDaily(ctx, records)
	if err != nil {
		metrics.ImportFiles.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("load %s: %w", fileName, err)
	}

	for metric, count := range perMetric {
		metrics.RowsUpserted.WithLabelValues(metric).Add(float64(count))
	}
	metrics.ImportFiles.WithLabelValues("ok").Inc()
	metrics.ImportWarnings.Add(float64(len(extracted.Warnings)))

	summary := &ImportSummary{
		JobID:        uuid.New(),
		FileName:     fileName,
		SheetsRead:   extracted.SheetsRead,
		RowsInserted: result.Inserted,
		RowsUpdated:  result.Updated,
		RowsSkipped:  extracted.RowsSkipped,
		Warnings:     extracted.Warnings,
		PerMetric:    perMetric,
	}

	if err := s.repo.RecordImportJob(ctx, &repository.ImportJob{
		ID:           summary.JobID,
		FileName:     fileName,
		RowsInserted: result.Inserted,
		RowsUpdated:  result.Updated,
		RowsSkipped:  extracted.RowsSkipped,
		Warnings:     len(extracted.Warnings),
	}); err != nil {
		// The metrics themselves are committed; a failed audit row is a
		// warning, not a failed import.
		s.logger.Warn("failed to record import job", slog.Any("error", err))
	}

	s.logger.Info("import completed",
		slog.String("file", fileName),
		slog.Int("inserted", result.Inserted),
		slog.Int("updated", result.Updated),
		slog.Int("skipped", extracted.RowsSkipped),
		slog.Int("warnings", len(extracted.Warnings)),
	)

	return summary, nil
}

// ImportDirectory ingests every xlsx/csv file in dir. Used by the daily
// scheduled job. Individual file failures are logged and skipped.
func (s *ETLService) ImportDirectory(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read drop directory: %w", err)
	}

	processed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".xlsx" && ext != ".csv" {
			continue
		}

		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			s.logger.Warn("failed to open drop file", slog.String("file", name), slog.Any("error", err))
			continue
		}

		if ext == ".xlsx" {
			_, err = s.ImportWorkbook(ctx, name, f)
		} else {
			kind, ok := csvKindFromName(name)
			if !ok {
				s.logger.Warn("cannot infer metric from csv file name, skipped", slog.String("file", name))
				f.Close()
				continue
			}
			_, err = s.ImportCSV(ctx, name, kind, f)
		}
		f.Close()

		if err != nil {
			s.logger.Warn("drop file import failed", slog.String("file", name), slog.Any("error", err))
			continue
		}
		processed++
	}
	return processed, nil
}

// csvKindFromName infers the metric from a file-name prefix, the convention
// used by the nightly export job (sales_2026-08.csv, labor_2026-08.csv...).
func csvKindFromName(name string) (extractor.MetricKind, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "sales"):
		return extractor.MetricSalesAmount, true
	case strings.HasPrefix(lower, "customer"):
		return extractor.MetricCustomerCount, true
	case strings.HasPrefix(lower, "spend"):
		return extractor.MetricAverageSpend, true
	case strings.HasPrefix(lower, "labor"):
		return extractor.MetricLaborHours, true
	}
	return "", false
}
