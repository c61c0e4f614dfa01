package extractor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"iso", "2026-08-15", time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)},
		{"slashes", "2026/08/15", time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)},
		{"slashes no padding", "2026/8/5", time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC)},
		{"japanese", "2026年8月15日", time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)},
		{"datetime", "2026-08-15 00:00:00", time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)},
		// Excel serial 45000 = 2023-03-15 in the 1900 date system.
		{"excel serial", "45000", time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerceDate(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestCoerceDateErrors(t *testing.T) {
	for _, input := range []string{"", "not a date", "15", "99999999"} {
		t.Run(input, func(t *testing.T) {
			_, err := coerceDate(input)
			assert.Error(t, err)
		})
	}
}

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"plain", "12345", 12345},
		{"decimal", "123.45", 123.45},
		{"yen symbol", "¥12,300", 12300},
		{"full-width yen", "￥8,000", 8000},
		{"yen suffix", "45000円", 45000},
		{"customer suffix", "120人", 120},
		{"hours suffix", "8.5時間", 8.5},
		{"thousands", "1,234,567", 1234567},
		{"parenthesized negative", "(5000)", -5000},
		{"full-width space", "12　300", 12300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerceNumber(tt.input)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCoerceNumberErrors(t *testing.T) {
	for _, input := range []string{"", "-", "abc", "12..3"} {
		t.Run(input, func(t *testing.T) {
			_, err := coerceNumber(input)
			assert.Error(t, err)
		})
	}
}
