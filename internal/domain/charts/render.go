// Package charts renders KPI trend lines as PNG images: the current window
// as a solid line, the prior year shifted onto the same axis as a dashed one.
package charts

import (
	"bytes"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/caratlabs/storepulse/internal/domain/kpi"
)

const (
	chartWidth  = 8 * vg.Inch
	chartHeight = 4 * vg.Inch
)

// metricTitles maps metric identifiers to chart titles.
var metricTitles = map[string]string{
	"customer_count": "Customers per Month",
	"average_spend":  "Average Spend per Month",
	"productivity":   "Revenue per Labor Hour",
}

// RenderTrend draws the series as a PNG. Both lines share the current
// window's month labels on the x axis.
func RenderTrend(series *kpi.Series) ([]byte, error) {
	if len(series.Current) == 0 {
		return nil, fmt.Errorf("no data points for metric %s", series.Metric)
	}

	p := plot.New()
	title, ok := metricTitles[series.Metric]
	if !ok {
		title = series.Metric
	}
	p.Title.Text = title
	p.X.Label.Text = "Month"
	p.Y.Label.Text = "Value"
	p.Legend.Top = true

	labels := make([]string, len(series.Current))
	position := make(map[string]int, len(series.Current))
	for i, pt := range series.Current {
		labels[i] = pt.YearMonth
		position[pt.YearMonth] = i
	}
	p.X.Tick.Marker = monthTicks(labels)

	current := make(plotter.XYs, len(series.Current))
	for i, pt := range series.Current {
		current[i].X = float64(i)
		current[i].Y = pt.Value
	}
	currentLine, err := plotter.NewLine(current)
	if err != nil {
		return nil, fmt.Errorf("failed to build current line: %w", err)
	}
	currentLine.LineStyle.Width = vg.Points(2)
	p.Add(currentLine)
	p.Legend.Add("current", currentLine)

	var prior plotter.XYs
	for _, pt := range series.Prior {
		i, ok := position[pt.YearMonth]
		if !ok {
			continue
		}
		prior = append(prior, plotter.XY{X: float64(i), Y: pt.Value})
	}
	if len(prior) > 0 {
		priorLine, err := plotter.NewLine(prior)
		if err != nil {
			return nil, fmt.Errorf("failed to build prior-year line: %w", err)
		}
		priorLine.LineStyle.Width = vg.Points(1)
		priorLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(priorLine)
		p.Legend.Add("prior year", priorLine)
	}

	writer, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to encode chart: %w", err)
	}
	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write chart: %w", err)
	}
	return buf.Bytes(), nil
}

// monthTicks places one labeled tick per month index.
type monthTicks []string

func (m monthTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for i, label := range m {
		x := float64(i)
		if x < min || x > max {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: x, Label: label})
	}
	return ticks
}

var _ plot.Ticker = monthTicks(nil)
