package extractor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// excelEpoch is day zero of the 1900 date system used by xlsx serial dates.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006/1/2",
	"01/02/2006",
	"02.01.2006",
	"2006年1月2日",
	"2006-01-02T15:04:05Z",
}

// coerceDate parses a cell into a calendar day. Accepts common layouts and
// Excel serial numbers (excelize returns those for raw date cells).
func coerceDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Truncate(24 * time.Hour), nil
		}
	}

	// Excel serial day count.
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 59 && serial < 200000 {
		return excelEpoch.AddDate(0, 0, int(serial)), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %s", s)
}

// coerceNumber parses a numeric cell, tolerating currency marks, thousands
// separators and unit suffixes found in the store exports (¥12,300 / 45000円).
// Uses decimal to avoid float artifacts from formatted currency strings.
func coerceNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0, fmt.Errorf("empty value")
	}

	for _, mark := range []string{"¥", "￥", "円", "人", "時間", "h", ",", "、", " ", "　"} {
		s = strings.ReplaceAll(s, mark, "")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.Trim(s, "()")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %w", err)
	}
	if negative {
		d = d.Neg()
	}

	return d.InexactFloat64(), nil
}
