package extractor

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// csvRow is the flat layout of single-metric CSV exports.
type csvRow struct {
	Date    string `csv:"date"`
	StoreID string `csv:"store_id"`
	Value   string `csv:"value"`
}

// ParseCSV reads a single-metric CSV export (columns: date, store_id, value).
// The metric kind comes from the caller since CSV files carry one series.
func ParseCSV(reader io.Reader, kind MetricKind) (*ExtractResult, error) {
	var rows []*csvRow
	if err := gocsv.Unmarshal(reader, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}

	result := &ExtractResult{
		Records:    make([]RawRecord, 0, len(rows)),
		Warnings:   make([]RowWarning, 0),
		SheetsRead: 1,
	}

	for i, row := range rows {
		rowNum := i + 2 // header is line 1
		result.RowsTotal++

		date, err := coerceDate(row.Date)
		if err != nil {
			result.RowsSkipped++
			result.Warnings = append(result.Warnings, RowWarning{
				Row: rowNum, Column: "date", Message: err.Error(), RawData: row.Date,
			})
			continue
		}

		if row.StoreID == "" {
			result.RowsSkipped++
			result.Warnings = append(result.Warnings, RowWarning{
				Row: rowNum, Column: "store_id", Message: "missing store identifier",
			})
			continue
		}

		value, err := coerceNumber(row.Value)
		if err != nil {
			result.RowsSkipped++
			result.Warnings = append(result.Warnings, RowWarning{
				Row: rowNum, Column: "value", Message: err.Error(), RawData: row.Value,
			})
			continue
		}

		result.Records = append(result.Records, RawRecord{
			StoreID: row.StoreID,
			Date:    date,
			Metric:  kind,
			Value:   value,
		})
	}

	return result, nil
}
