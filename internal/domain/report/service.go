// Package report assembles the monthly store report: KPI table, forecast and
// the model-written recommendations, rendered as markdown.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/caratlabs/storepulse/internal/domain/etl/extractor"
	"github.com/caratlabs/storepulse/internal/domain/forecast"
	"github.com/caratlabs/storepulse/internal/domain/kpi"
	"github.com/caratlabs/storepulse/internal/domain/narrative"
	"github.com/caratlabs/storepulse/pkg/money"
)

var tracer = otel.Tracer("storepulse/report")

// forecastHistoryMonths is how far back the report reaches when fitting the
// forecast model. Two full years enables the seasonal component.
const forecastHistoryMonths = 24

const insightsFallback = "インサイトは現在利用できません。KPIと予測のみでレポートを生成しました。"

// Service builds markdown reports. Narrative failures degrade the insights
// section; forecast failures drop the forecast section. KPI failures fail the
// whole report.
type Service struct {
	kpis       *kpi.Service
	forecaster *forecast.Forecaster
	narrative  *narrative.Service
	logger     *slog.Logger
}

// NewService creates the report service.
func NewService(kpis *kpi.Service, f *forecast.Forecaster, n *narrative.Service, logger *slog.Logger) *Service {
	return &Service{kpis: kpis, forecaster: f, narrative: n, logger: logger}
}

// Generate renders the full markdown report for one store and window.
func (s *Service) Generate(ctx context.Context, storeID string, window int, asOf time.Time) (string, error) {
	ctx, span := tracer.Start(ctx, "report.generate")
	defer span.End()
	span.SetAttributes(attribute.String("store_id", storeID), attribute.Int("window", window))

	snapshot, err := s.kpis.Snapshot(ctx, storeID, window, asOf)
	if err != nil {
		return "", fmt.Errorf("report kpis: %w", err)
	}

	customerFC := s.forecastMetric(ctx, storeID, string(extractor.MetricCustomerCount), asOf)
	spendFC := s.forecastMetric(ctx, storeID, string(extractor.MetricAverageSpend), asOf)

	in := narrative.PromptInput{
		StoreID:          storeID,
		Window:           window,
		CustomerForecast: customerFC,
		SpendForecast:    spendFC,
	}
	if n := len(snapshot.Months); n > 0 {
		in.Latest = &snapshot.Months[n-1]
		if n > 1 {
			in.Previous = &snapshot.Months[n-2]
		}
	}

	insights, err := s.narrative.Recommendations(ctx, in)
	if err != nil {
		insights = insightsFallback
	}

	return render(snapshot, customerFC, spendFC, insights), nil
}

// forecastMetric fits the model for one metric. Any failure, including too
// little history, just drops the section.
func (s *Service) forecastMetric(ctx context.Context, storeID, metric string, asOf time.Time) []forecast.Point {
	history, err := s.kpis.MonthlyHistory(ctx, storeID, metric, forecastHistoryMonths, asOf)
	if err != nil {
		s.logger.Warn("forecast history unavailable",
			slog.String("store_id", storeID), slog.String("metric", metric), slog.Any("error", err))
		return nil
	}
	points, err := s.forecaster.Forecast(history)
	if err != nil {
		if !errors.Is(err, forecast.ErrInsufficientHistory) {
			s.logger.Warn("forecast failed",
				slog.String("store_id", storeID), slog.String("metric", metric), slog.Any("error", err))
		}
		return nil
	}
	return points
}

func render(snapshot *kpi.Snapshot, customerFC, spendFC []forecast.Point, insights string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# 店舗レポート: %s\n\n", snapshot.StoreID)
	fmt.Fprintf(&b, "対象: 直近%dか月（%s時点）\n\n", snapshot.Window, snapshot.AsOf.Format("2006-01-02"))

	b.WriteString("## 月次KPI\n\n")
	if len(snapshot.Months) == 0 {
		b.WriteString("対象期間にデータがありません。\n\n")
	} else {
		b.WriteString("| 月 | 顧客数 | 前年比 | 客単価 | 前年比 | 生産性(円/時) | 前年比 |\n")
		b.WriteString("|---|---|---|---|---|---|---|\n")
		for _, m := range snapshot.Months {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
				m.YearMonth,
				cell(m.Customers, "%.0f"),
				pctCell(m.CustomersYoY),
				cell(m.AvgSpend, "%.0f"),
				pctCell(m.AvgSpendYoY),
				cell(m.Productivity, "%.0f"),
				pctCell(m.ProductivityYoY),
			)
		}
		b.WriteString("\n")
	}

	writeForecastTable(&b, "顧客数予測", customerFC)
	writeForecastTable(&b, "客単価予測", spendFC)

	b.WriteString("## 改善アクション\n\n")
	b.WriteString(insights)
	b.WriteString("\n")

	return b.String()
}

func writeForecastTable(b *strings.Builder, title string, points []forecast.Point) {
	if len(points) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	b.WriteString("| 月 | 予測 | 下限 | 上限 |\n|---|---|---|---|\n")
	for _, p := range points {
		fmt.Fprintf(b, "| %s | %.0f | %.0f | %.0f |\n", p.YearMonth, p.Predicted, p.LowerBound, p.UpperBound)
	}
	b.WriteString("\n")
}

func cell(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func pctCell(v *float64) string {
	if v == nil {
		return "-"
	}
	return money.FormatDelta(*v)
}
