package extractor_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/caratlabs/storepulse/internal/domain/etl/extractor"
)

// buildWorkbook writes a test workbook with the given sheets, each a slice of
// rows starting with the header.
func buildWorkbook(t *testing.T, sheets map[string][][]any) *strings.Reader {
	t.Helper()

	f := excelize.NewFile()
	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return strings.NewReader(buf.String())
}

func TestParseWorkbook(t *testing.T) {
	reader := buildWorkbook(t, map[string][][]any{
		"売上データ": {
			{"売上日", "店舗名", "売上合計"},
			{"2026-08-01", "ST001", "¥120,000"},
			{"2026-08-02", "ST001", "98000円"},
		},
		"顧客数": {
			{"日付", "店舗", "顧客数"},
			{"2026-08-01", "ST001", "85人"},
		},
	})

	result, err := extractor.NewExcelExtractor().ParseWorkbook(reader)
	require.NoError(t, err)

	assert.Equal(t, 2, result.SheetsRead)
	assert.Empty(t, result.Warnings)
	require.Len(t, result.Records, 3)

	byMetric := make(map[extractor.MetricKind][]extractor.RawRecord)
	for _, r := range result.Records {
		byMetric[r.Metric] = append(byMetric[r.Metric], r)
	}

	require.Len(t, byMetric[extractor.MetricSalesAmount], 2)
	assert.Equal(t, 120000.0, byMetric[extractor.MetricSalesAmount][0].Value)
	assert.Equal(t, "ST001", byMetric[extractor.MetricSalesAmount][0].StoreID)

	require.Len(t, byMetric[extractor.MetricCustomerCount], 1)
	assert.Equal(t, 85.0, byMetric[extractor.MetricCustomerCount][0].Value)
}

func TestParseWorkbookBadRows(t *testing.T) {
	reader := buildWorkbook(t, map[string][][]any{
		"sales": {
			{"date", "store", "amount"},
			{"2026-08-01", "ST001", "50000"},
			{"not-a-date", "ST001", "60000"},
			{"2026-08-03", "", "70000"},
			{"2026-08-04", "ST001", "oops"},
			{"", "", ""},
		},
	})

	result, err := extractor.NewExcelExtractor().ParseWorkbook(reader)
	require.NoError(t, err)

	// One good row survives; three bad rows warn; the empty row is silent.
	require.Len(t, result.Records, 1)
	assert.Equal(t, 3, result.RowsSkipped)
	assert.Len(t, result.Warnings, 3)

	columns := make([]string, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		columns = append(columns, w.Column)
		assert.NotZero(t, w.Row)
	}
	assert.ElementsMatch(t, []string{"date", "store", "sales_amount"}, columns)
}

func TestParseWorkbookUnknownSheet(t *testing.T) {
	reader := buildWorkbook(t, map[string][][]any{
		"設定": {
			{"key", "value"},
			{"version", "3"},
		},
	})

	result, err := extractor.NewExcelExtractor().ParseWorkbook(reader)
	require.NoError(t, err)

	assert.Zero(t, result.SheetsRead)
	assert.Empty(t, result.Records)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].Message, "unknown sheet type")
}

func TestSheetKindPrecedence(t *testing.T) {
	// 客単価 sheets often mention 売上 in the name; spend must win.
	reader := buildWorkbook(t, map[string][][]any{
		"客単価(売上ベース)": {
			{"日付", "店舗名", "客単価"},
			{"2026-08-01", "ST001", "¥3,200"},
		},
	})

	result, err := extractor.NewExcelExtractor().ParseWorkbook(reader)
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	assert.Equal(t, extractor.MetricAverageSpend, result.Records[0].Metric)
}
