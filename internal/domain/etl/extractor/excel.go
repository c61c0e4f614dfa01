package extractor

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExcelExtractor parses multi-sheet store exports. Each workbook carries one
// sheet per metric (sales, customer count, average spend, labor hours), rows
// keyed by date and store name.
type ExcelExtractor struct{}

// NewExcelExtractor creates a workbook extractor.
func NewExcelExtractor() *ExcelExtractor {
	return &ExcelExtractor{}
}

// sheetKinds maps sheet-name keywords to the metric the sheet carries.
// Order matters: 客単価 must win over 売上 for sheets named e.g. 客単価(売上).
var sheetKinds = []struct {
	keywords []string
	kind     MetricKind
}{
	{[]string{"客単価", "単価", "spend"}, MetricAverageSpend},
	{[]string{"顧客", "来客", "客数", "customer"}, MetricCustomerCount},
	{[]string{"勤怠", "労働", "labor", "hours"}, MetricLaborHours},
	{[]string{"売上", "sales"}, MetricSalesAmount},
}

// detectSheetKind classifies a sheet by its name. Returns false for sheets
// that carry no known metric (those are skipped with a warning).
func detectSheetKind(sheetName string) (MetricKind, bool) {
	lower := strings.ToLower(sheetName)
	for _, sk := range sheetKinds {
		for _, kw := range sk.keywords {
			if strings.Contains(lower, kw) || strings.Contains(sheetName, kw) {
				return sk.kind, true
			}
		}
	}
	return "", false
}

var (
	dateHeaders  = []string{"売上日", "日付", "date", "sales_date"}
	storeHeaders = []string{"店舗名", "店舗", "store", "store_id"}

	valueHeaders = map[MetricKind][]string{
		MetricSalesAmount:   {"売上合計", "売上高", "合計売上", "売上", "sales_amount", "sales", "amount", "revenue"},
		MetricCustomerCount: {"顧客数", "来客数", "客数", "customer_count", "customers"},
		MetricAverageSpend:  {"客単価", "平均客単価", "単価", "average_spend", "spend"},
		MetricLaborHours:    {"労働時間", "勤怠時間", "時間", "work_hours", "labor_hours", "hours"},
	}
)

type sheetColumns struct {
	date  int
	store int
	value int
}

func mapSheetColumns(headers []string, kind MetricKind) sheetColumns {
	cols := sheetColumns{date: -1, store: -1, value: -1}
	for i, h := range headers {
		h = strings.ToLower(strings.TrimSpace(h))
		if cols.date < 0 && matchesAny(h, dateHeaders) {
			cols.date = i
			continue
		}
		if cols.store < 0 && matchesAny(h, storeHeaders) {
			cols.store = i
			continue
		}
		if cols.value < 0 && matchesAny(h, valueHeaders[kind]) {
			cols.value = i
		}
	}
	return cols
}

func matchesAny(header string, candidates []string) bool {
	for _, c := range candidates {
		if strings.Contains(header, strings.ToLower(c)) {
			return true
		}
	}
	return false
}

// ParseWorkbook reads every recognizable sheet in an xlsx workbook.
// Malformed sheets and unparseable cells are skipped with warnings; a bad
// cell never aborts the whole file.
func (e *ExcelExtractor) ParseWorkbook(reader io.Reader) (*ExtractResult, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	result := &ExtractResult{
		Records:  make([]RawRecord, 0, 1024),
		Warnings: make([]RowWarning, 0),
	}

	for _, sheetName := range f.GetSheetList() {
		kind, ok := detectSheetKind(sheetName)
		if !ok {
			result.Warnings = append(result.Warnings, RowWarning{
				Sheet:   sheetName,
				Message: "unknown sheet type, skipped",
			})
			continue
		}

		rows, err := f.GetRows(sheetName)
		if err != nil {
			result.Warnings = append(result.Warnings, RowWarning{
				Sheet:   sheetName,
				Message: fmt.Sprintf("failed to read sheet: %v", err),
			})
			continue
		}
		if len(rows) < 2 {
			result.Warnings = append(result.Warnings, RowWarning{
				Sheet:   sheetName,
				Message: "sheet is empty, skipped",
			})
			continue
		}

		result.SheetsRead++
		e.parseSheet(sheetName, kind, rows, result)
	}

	return result, nil
}

func (e *ExcelExtractor) parseSheet(sheetName string, kind MetricKind, rows [][]string, result *ExtractResult) {
	cols := mapSheetColumns(rows[0], kind)
	if cols.date < 0 || cols.store < 0 || cols.value < 0 {
		result.Warnings = append(result.Warnings, RowWarning{
			Sheet:   sheetName,
			Row:     1,
			Message: "required columns not found (date, store, value), sheet skipped",
		})
		return
	}

	getCell := func(row []string, idx int) string {
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		rowNum := i + 1
		result.RowsTotal++

		dateStr := getCell(row, cols.date)
		storeID := getCell(row, cols.store)
		valueStr := getCell(row, cols.value)

		// Fully empty rows are silent; partial rows warn.
		if dateStr == "" && storeID == "" && valueStr == "" {
			result.RowsSkipped++
			result.RowsTotal--
			continue
		}

		date, err := coerceDate(dateStr)
		if err != nil {
			result.RowsSkipped++
			result.Warnings = append(result.Warnings, RowWarning{
				Sheet: sheetName, Row: rowNum, Column: "date",
				Message: err.Error(), RawData: dateStr,
			})
			continue
		}

		if storeID == "" {
			result.RowsSkipped++
			result.Warnings = append(result.Warnings, RowWarning{
				Sheet: sheetName, Row: rowNum, Column: "store",
				Message: "missing store identifier",
			})
			continue
		}

		value, err := coerceNumber(valueStr)
		if err != nil {
			result.RowsSkipped++
			result.Warnings = append(result.Warnings, RowWarning{
				Sheet: sheetName, Row: rowNum, Column: string(kind),
				Message: err.Error(), RawData: valueStr,
			})
			continue
		}

		result.Records = append(result.Records, RawRecord{
			StoreID: storeID,
			Date:    date,
			Metric:  kind,
			Value:   value,
		})
	}
}
