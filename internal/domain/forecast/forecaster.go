// Package forecast fits a small additive model (linear trend plus monthly
// seasonal offsets) to a monthly KPI series and projects it six months out
// with an uncertainty band.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/caratlabs/storepulse/internal/domain/kpi"
)

const (
	// Horizon is the number of months projected.
	Horizon = 6
	// MinHistory is the fewest monthly points the model accepts. Below this
	// the projection would be noise, so the caller gets an explicit
	// "forecast unavailable" condition instead.
	MinHistory = 6
	// seasonalMinHistory gates the seasonal component: with less than two
	// full years the monthly offsets cannot be separated from the trend.
	seasonalMinHistory = 24
)

// ErrInsufficientHistory marks series too short to forecast.
var ErrInsufficientHistory = errors.New("not enough history to forecast")

// Point is one projected month.
type Point struct {
	YearMonth  string  `json:"year_month"`
	Predicted  float64 `json:"predicted"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// Forecaster produces point forecasts with confidence bounds. Stateless and
// safe for concurrent use.
type Forecaster struct{}

// New creates a Forecaster.
func New() *Forecaster {
	return &Forecaster{}
}

// Forecast projects the series Horizon months past its last point.
// Returns ErrInsufficientHistory when len(series) < MinHistory.
func (f *Forecaster) Forecast(series []kpi.SeriesPoint) ([]Point, error) {
	n := len(series)
	if n < MinHistory {
		return nil, fmt.Errorf("%w: have %d monthly points, need %d", ErrInsufficientHistory, n, MinHistory)
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range series {
		xs[i] = float64(i)
		ys[i] = p.Value
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)

	// Seasonal offsets: mean detrended residual per calendar month.
	seasonal := make(map[int]float64)
	if n >= seasonalMinHistory {
		sums := make(map[int]float64)
		counts := make(map[int]int)
		for i, p := range series {
			month, err := calendarMonth(p.YearMonth)
			if err != nil {
				continue
			}
			residual := ys[i] - (alpha + beta*xs[i])
			sums[month] += residual
			counts[month]++
		}
		for month, sum := range sums {
			seasonal[month] = sum / float64(counts[month])
		}
	}

	// Residual spread around the fitted model drives the band width.
	residuals := make([]float64, n)
	for i := range series {
		fitted := alpha + beta*xs[i]
		if month, err := calendarMonth(series[i].YearMonth); err == nil {
			fitted += seasonal[month]
		}
		residuals[i] = ys[i] - fitted
	}
	sigma := stat.StdDev(residuals, nil)
	if math.IsNaN(sigma) {
		sigma = 0
	}

	lastYear, lastMonth, err := splitYearMonth(series[n-1].YearMonth)
	if err != nil {
		return nil, fmt.Errorf("bad series label %q: %w", series[n-1].YearMonth, err)
	}

	points := make([]Point, 0, Horizon)
	for h := 1; h <= Horizon; h++ {
		x := float64(n - 1 + h)
		year, month := addMonths(lastYear, lastMonth, h)

		predicted := alpha + beta*x + seasonal[month]
		// Uncertainty widens with distance from the observed window.
		band := 1.96 * sigma * math.Sqrt(1+float64(h)/float64(n))

		points = append(points, Point{
			YearMonth:  fmt.Sprintf("%04d-%02d", year, month),
			Predicted:  predicted,
			LowerBound: predicted - band,
			UpperBound: predicted + band,
		})
	}
	return points, nil
}

func splitYearMonth(ym string) (int, int, error) {
	parts := strings.SplitN(ym, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected YYYY-MM")
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("month out of range: %d", month)
	}
	return year, month, nil
}

func calendarMonth(ym string) (int, error) {
	_, month, err := splitYearMonth(ym)
	return month, err
}

func addMonths(year, month, delta int) (int, int) {
	total := year*12 + (month - 1) + delta
	return total / 12, total%12 + 1
}
