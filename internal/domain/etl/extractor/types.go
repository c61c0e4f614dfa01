// Package extractor reads retail-store exports (xlsx workbooks, CSV) into
// raw daily metric records.
package extractor

import "time"

// MetricKind identifies one of the daily series tracked per store.
type MetricKind string

const (
	MetricCustomerCount MetricKind = "customer_count"
	MetricSalesAmount   MetricKind = "sales_amount"
	MetricAverageSpend  MetricKind = "average_spend"
	MetricLaborHours    MetricKind = "labor_hours"
)

// Kinds lists every supported metric in a stable order.
func Kinds() []MetricKind {
	return []MetricKind{MetricCustomerCount, MetricSalesAmount, MetricAverageSpend, MetricLaborHours}
}

// RawRecord is one (store, day, metric) observation extracted from a file.
type RawRecord struct {
	StoreID string
	Date    time.Time
	Metric  MetricKind
	Value   float64
}

// RowWarning describes a recovered input-format problem. The row is skipped,
// the rest of the file continues to load.
type RowWarning struct {
	Sheet   string `json:"sheet,omitempty"`
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
	RawData string `json:"raw_data,omitempty"`
}

// ExtractResult carries all parsed records plus per-row warnings.
type ExtractResult struct {
	Records     []RawRecord
	Warnings    []RowWarning
	SheetsRead  int
	RowsTotal   int
	RowsSkipped int
}
