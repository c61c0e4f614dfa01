package service_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caratlabs/storepulse/internal/domain/etl/extractor"
	"github.com/caratlabs/storepulse/internal/domain/etl/normalizer"
	"github.com/caratlabs/storepulse/internal/domain/etl/repository"
	"github.com/caratlabs/storepulse/internal/domain/etl/service"
)

// mockRepo captures the upserted batch and the recorded job.
type mockRepo struct {
	upserted []repository.MetricRecord
	job      *repository.ImportJob
	result   repository.UpsertResult
}

func (m *mockRepo) UpsertDaily(_ context.Context, records []repository.MetricRecord) (repository.UpsertResult, error) {
	m.upserted = append(m.upserted, records...)
	if m.result == (repository.UpsertResult{}) {
		return repository.UpsertResult{Inserted: len(records)}, nil
	}
	return m.result, nil
}

func (m *mockRepo) RecordImportJob(_ context.Context, job *repository.ImportJob) error {
	m.job = job
	return nil
}

func (m *mockRepo) ListStores(_ context.Context) ([]string, error) { return nil, nil }

func (m *mockRepo) DistinctDates(_ context.Context, _ string) ([]string, error) { return nil, nil }

func (m *mockRepo) CountRecords(_ context.Context, _ string) (int, error) {
	return len(m.upserted), nil
}

var _ repository.MetricsRepository = (*mockRepo)(nil)

const storeMaster = `store_id,standard_name,variant_1,variant_2,variant_3,variant_4
ST001,渋谷店,渋谷,,,
`

func newTestService(t *testing.T, repo repository.MetricsRepository) *service.ETLService {
	t.Helper()
	norm, err := normalizer.LoadMaster(strings.NewReader(storeMaster))
	require.NoError(t, err)
	return service.NewETLService(repo, norm, slog.Default())
}

func TestImportCSVNormalizesStores(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(t, repo)

	csv := strings.Join([]string{
		"date,store_id,value",
		"2026-08-01,渋谷店,120",
		"2026-08-02,渋谷,135",
		"2026-08-03,ST001,98",
	}, "\n")

	summary, err := svc.ImportCSV(context.Background(), "customer_aug.csv", extractor.MetricCustomerCount, strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 3, summary.RowsInserted)
	assert.Zero(t, summary.RowsSkipped)
	assert.Equal(t, map[string]int{"customer_count": 3}, summary.PerMetric)

	require.Len(t, repo.upserted, 3)
	for _, rec := range repo.upserted {
		assert.Equal(t, "ST001", rec.StoreID, "all label variants resolve to the canonical id")
	}
}

func TestImportCSVRecordsJob(t *testing.T) {
	repo := &mockRepo{result: repository.UpsertResult{Inserted: 1, Updated: 1}}
	svc := newTestService(t, repo)

	csv := strings.Join([]string{
		"date,store_id,value",
		"2026-08-01,ST001,120",
		"bad-date,ST001,135",
		"2026-08-02,ST001,140",
	}, "\n")

	summary, err := svc.ImportCSV(context.Background(), "customer_aug.csv", extractor.MetricCustomerCount, strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.RowsInserted)
	assert.Equal(t, 1, summary.RowsUpdated)
	assert.Equal(t, 1, summary.RowsSkipped)
	require.Len(t, summary.Warnings, 1)

	require.NotNil(t, repo.job)
	assert.Equal(t, summary.JobID, repo.job.ID)
	assert.Equal(t, "customer_aug.csv", repo.job.FileName)
	assert.Equal(t, 1, repo.job.Warnings)
}

func TestImportDirectory(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(t, repo)

	dir := t.TempDir()
	writeFile(t, dir, "customer_2026-08.csv", "date,store_id,value\n2026-08-01,ST001,120\n")
	writeFile(t, dir, "labor_2026-08.csv", "date,store_id,value\n2026-08-01,ST001,42\n")
	writeFile(t, dir, "notes.txt", "ignore me")
	writeFile(t, dir, "mystery.csv", "date,store_id,value\n2026-08-01,ST001,1\n")

	processed, err := svc.ImportDirectory(context.Background(), dir)
	require.NoError(t, err)

	// Two recognizable exports; the txt and the prefix-less csv are skipped.
	assert.Equal(t, 2, processed)
	require.Len(t, repo.upserted, 2)

	metrics := []extractor.MetricKind{repo.upserted[0].Metric, repo.upserted[1].Metric}
	assert.ElementsMatch(t, []extractor.MetricKind{extractor.MetricCustomerCount, extractor.MetricLaborHours}, metrics)
	assert.True(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC).Equal(repo.upserted[0].Date))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
