package kpi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/caratlabs/storepulse/internal/domain/etl/extractor"
)

// Window bounds for the trailing-month selector.
const (
	MinWindow = 1
	MaxWindow = 12
)

// ErrInvalidWindow is returned for window sizes outside [1, 12].
var ErrInvalidWindow = errors.New("window must be between 1 and 12 months")

// MonthlyAggregate carries the three KPIs for one month. Nil fields mean the
// underlying data (or the prior-year baseline for YoY) is absent; absence is
// reported, never substituted with a computed default.
type MonthlyAggregate struct {
	YearMonth       string   `json:"year_month"`
	Customers       *float64 `json:"customers,omitempty"`
	CustomersYoY    *float64 `json:"customers_yoy_pct,omitempty"`
	AvgSpend        *float64 `json:"avg_spend,omitempty"`
	AvgSpendYoY     *float64 `json:"avg_spend_yoy_pct,omitempty"`
	Productivity    *float64 `json:"productivity,omitempty"`
	ProductivityYoY *float64 `json:"productivity_yoy_pct,omitempty"`
}

// Snapshot is an ordered window of monthly aggregates for one store.
type Snapshot struct {
	StoreID string             `json:"store_id"`
	Window  int                `json:"window"`
	AsOf    time.Time          `json:"as_of"`
	Months  []MonthlyAggregate `json:"months"`
}

// Series is a chartable pair of current and prior-year monthly points.
type Series struct {
	Metric  string        `json:"metric"`
	Current []SeriesPoint `json:"current"`
	Prior   []SeriesPoint `json:"prior_year"`
}

// Service is the KPI engine. Snapshots are derived on demand from the daily
// metrics table and held briefly in a TTL cache keyed (store, window).
type Service struct {
	repo   KPIRepository
	cache  *gocache.Cache
	logger *slog.Logger
}

// NewService creates the KPI engine with the given snapshot cache TTL.
func NewService(repo KPIRepository, cacheTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  gocache.New(cacheTTL, 2*cacheTTL),
		logger: logger,
	}
}

// monthStart returns the first day of t's month in UTC.
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// monthKey formats a time as "YYYY-MM".
func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

// monthlyValues holds the per-month inputs for KPI derivation.
type monthlyValues struct {
	customerSum *float64
	spendMean   *float64
	salesSum    *float64
	laborSum    *float64
}

func indexRows(rows []MonthlyMetricRow) map[string]*monthlyValues {
	byMonth := make(map[string]*monthlyValues)
	for _, row := range rows {
		mv, ok := byMonth[row.YearMonth]
		if !ok {
			mv = &monthlyValues{}
			byMonth[row.YearMonth] = mv
		}
		v := row // copy for pointer stability
		switch extractor.MetricKind(row.Metric) {
		case extractor.MetricCustomerCount:
			mv.customerSum = &v.Sum
		case extractor.MetricAverageSpend:
			mv.spendMean = &v.Mean
		case extractor.MetricSalesAmount:
			mv.salesSum = &v.Sum
		case extractor.MetricLaborHours:
			mv.laborSum = &v.Sum
		}
	}
	return byMonth
}

// productivity derives revenue per labor hour for one month. Absent when
// either input is missing or labor hours are zero (no divide-by-zero).
func (mv *monthlyValues) productivity() *float64 {
	if mv == nil || mv.salesSum == nil || mv.laborSum == nil || *mv.laborSum <= 0 {
		return nil
	}
	p := *mv.salesSum / *mv.laborSum
	return &p
}

// yoyPercent computes the year-over-year change. Nil when the baseline is
// missing or zero; the caller renders that as "no comparison available".
func yoyPercent(current, prior *float64) *float64 {
	if current == nil || prior == nil || *prior == 0 {
		return nil
	}
	pct := (*current - *prior) / *prior * 100
	return &pct
}

// Snapshot returns ordered monthly aggregates for the trailing window ending
// at asOf's month, with YoY deltas where a prior-year month exists. Months
// with no data are omitted, so short histories yield fewer points.
func (s *Service) Snapshot(ctx context.Context, storeID string, window int, asOf time.Time) (*Snapshot, error) {
	if window < MinWindow || window > MaxWindow {
		return nil, ErrInvalidWindow
	}

	cacheKey := fmt.Sprintf("%s|%d|%s", storeID, window, monthKey(asOf))
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.(*Snapshot), nil
	}

	end := monthStart(asOf).AddDate(0, 1, 0) // exclusive
	start := end.AddDate(0, -window, 0)

	currentRows, err := s.repo.MonthlyRows(ctx, storeID, start, end)
	if err != nil {
		return nil, fmt.Errorf("kpi snapshot: %w", err)
	}
	priorRows, err := s.repo.MonthlyRows(ctx, storeID, start.AddDate(-1, 0, 0), end.AddDate(-1, 0, 0))
	if err != nil {
		return nil, fmt.Errorf("kpi snapshot prior year: %w", err)
	}

	current := indexRows(currentRows)
	prior := indexRows(priorRows)

	snapshot := &Snapshot{
		StoreID: storeID,
		Window:  window,
		AsOf:    asOf,
		Months:  make([]MonthlyAggregate, 0, window),
	}

	for m := start; m.Before(end); m = m.AddDate(0, 1, 0) {
		mv, ok := current[monthKey(m)]
		if !ok {
			continue
		}
		pv := prior[monthKey(m.AddDate(-1, 0, 0))]

		agg := MonthlyAggregate{
			YearMonth:    monthKey(m),
			Customers:    mv.customerSum,
			AvgSpend:     mv.spendMean,
			Productivity: mv.productivity(),
		}
		if pv != nil {
			agg.CustomersYoY = yoyPercent(mv.customerSum, pv.customerSum)
			agg.AvgSpendYoY = yoyPercent(mv.spendMean, pv.spendMean)
			agg.ProductivityYoY = yoyPercent(agg.Productivity, pv.productivity())
		}
		snapshot.Months = append(snapshot.Months, agg)
	}

	s.cache.Set(cacheKey, snapshot, gocache.DefaultExpiration)
	return snapshot, nil
}

// TrendSeries returns current-window and prior-year monthly points for one
// KPI, shaped for chart rendering. The prior series is shifted forward one
// year so both lines share the same x axis.
func (s *Service) TrendSeries(ctx context.Context, storeID, metric string, window int, asOf time.Time) (*Series, error) {
	snapshot, err := s.Snapshot(ctx, storeID, window, asOf)
	if err != nil {
		return nil, err
	}

	end := monthStart(asOf).AddDate(0, 1, 0)
	start := end.AddDate(0, -window, 0)
	priorRows, err := s.repo.MonthlyRows(ctx, storeID, start.AddDate(-1, 0, 0), end.AddDate(-1, 0, 0))
	if err != nil {
		return nil, fmt.Errorf("kpi trend prior year: %w", err)
	}
	prior := indexRows(priorRows)

	series := &Series{Metric: metric}
	pick := func(mv *monthlyValues) *float64 {
		if mv == nil {
			return nil
		}
		switch extractor.MetricKind(metric) {
		case extractor.MetricCustomerCount:
			return mv.customerSum
		case extractor.MetricAverageSpend:
			return mv.spendMean
		default: // productivity
			return mv.productivity()
		}
	}

	for _, agg := range snapshot.Months {
		var v *float64
		switch extractor.MetricKind(metric) {
		case extractor.MetricCustomerCount:
			v = agg.Customers
		case extractor.MetricAverageSpend:
			v = agg.AvgSpend
		default:
			v = agg.Productivity
		}
		if v != nil {
			series.Current = append(series.Current, SeriesPoint{YearMonth: agg.YearMonth, Value: *v})
		}

		ym, err := time.Parse("2006-01", agg.YearMonth)
		if err != nil {
			continue
		}
		if pv := pick(prior[monthKey(ym.AddDate(-1, 0, 0))]); pv != nil {
			series.Prior = append(series.Prior, SeriesPoint{YearMonth: agg.YearMonth, Value: *pv})
		}
	}

	return series, nil
}

// MonthlyHistory returns up to monthsBack months of one KPI ending at asOf's
// month, ordered ascending. Feeds the forecaster.
func (s *Service) MonthlyHistory(ctx context.Context, storeID, metric string, monthsBack int, asOf time.Time) ([]SeriesPoint, error) {
	end := monthStart(asOf).AddDate(0, 1, 0)
	start := end.AddDate(0, -monthsBack, 0)

	rows, err := s.repo.MonthlyRows(ctx, storeID, start, end)
	if err != nil {
		return nil, fmt.Errorf("kpi history: %w", err)
	}
	byMonth := indexRows(rows)

	var points []SeriesPoint
	for m := start; m.Before(end); m = m.AddDate(0, 1, 0) {
		mv := byMonth[monthKey(m)]
		if mv == nil {
			continue
		}
		var v *float64
		switch extractor.MetricKind(metric) {
		case extractor.MetricCustomerCount:
			v = mv.customerSum
		case extractor.MetricAverageSpend:
			v = mv.spendMean
		case extractor.MetricSalesAmount:
			v = mv.salesSum
		default:
			v = mv.productivity()
		}
		if v != nil {
			points = append(points, SeriesPoint{YearMonth: monthKey(m), Value: *v})
		}
	}
	return points, nil
}
