package report_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caratlabs/storepulse/internal/domain/forecast"
	"github.com/caratlabs/storepulse/internal/domain/kpi"
	"github.com/caratlabs/storepulse/internal/domain/narrative"
	"github.com/caratlabs/storepulse/internal/domain/report"
)

type fakeModel struct {
	reply string
	err   error
}

func (f fakeModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

type fixedRepo struct{ rows []kpi.MonthlyMetricRow }

func (r fixedRepo) MonthlyRows(_ context.Context, _ string, from, to time.Time) ([]kpi.MonthlyMetricRow, error) {
	var out []kpi.MonthlyMetricRow
	for _, row := range r.rows {
		ym, err := time.Parse("2006-01", row.YearMonth)
		if err != nil {
			continue
		}
		if !ym.Before(from) && ym.Before(to) {
			out = append(out, row)
		}
	}
	return out, nil
}

func newReportService(repo kpi.KPIRepository, m narrative.ChatModel) *report.Service {
	logger := slog.Default()
	return report.NewService(
		kpi.NewService(repo, time.Minute, logger),
		forecast.New(),
		narrative.NewService(m, logger),
		logger,
	)
}

func twoYearRows() []kpi.MonthlyMetricRow {
	var rows []kpi.MonthlyMetricRow
	for y := 2025; y <= 2026; y++ {
		for m := 1; m <= 12; m++ {
			if y == 2026 && m > 8 {
				break
			}
			ym := time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
			rows = append(rows,
				kpi.MonthlyMetricRow{YearMonth: ym, Metric: "customer_count", Sum: 3000, Mean: 100},
				kpi.MonthlyMetricRow{YearMonth: ym, Metric: "average_spend", Sum: 96000, Mean: 3200},
				kpi.MonthlyMetricRow{YearMonth: ym, Metric: "sales_amount", Sum: 9600000, Mean: 320000},
				kpi.MonthlyMetricRow{YearMonth: ym, Metric: "labor_hours", Sum: 1200, Mean: 40},
			)
		}
	}
	return rows
}

func TestGenerateFullReport(t *testing.T) {
	svc := newReportService(fixedRepo{rows: twoYearRows()}, fakeModel{reply: "1. 平日夕方の集客施策を打つ"})

	md, err := svc.Generate(context.Background(), "ST001", 3, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Contains(t, md, "# 店舗レポート: ST001")
	assert.Contains(t, md, "## 月次KPI")
	assert.Contains(t, md, "2026-08")
	assert.Contains(t, md, "## 顧客数予測")
	assert.Contains(t, md, "## 改善アクション")
	assert.Contains(t, md, "平日夕方の集客施策")
}

func TestGenerateDegradesWhenModelDown(t *testing.T) {
	svc := newReportService(fixedRepo{rows: twoYearRows()}, fakeModel{err: errors.New("dial tcp: connection refused")})

	md, err := svc.Generate(context.Background(), "ST001", 3, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err, "a dead model must not fail the report")

	assert.Contains(t, md, "## 月次KPI")
	assert.Contains(t, md, "インサイトは現在利用できません")
}

func TestGenerateOmitsForecastOnShortHistory(t *testing.T) {
	rows := []kpi.MonthlyMetricRow{
		{YearMonth: "2026-08", Metric: "customer_count", Sum: 3000, Mean: 100},
	}
	svc := newReportService(fixedRepo{rows: rows}, fakeModel{reply: "advice"})

	md, err := svc.Generate(context.Background(), "ST001", 1, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Contains(t, md, "## 月次KPI")
	assert.NotContains(t, md, "## 顧客数予測")
}

func TestGenerateInvalidWindow(t *testing.T) {
	svc := newReportService(fixedRepo{}, fakeModel{reply: "advice"})

	_, err := svc.Generate(context.Background(), "ST001", 0, time.Now())
	assert.ErrorIs(t, err, kpi.ErrInvalidWindow)
}
