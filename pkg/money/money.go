// Package money provides currency-safe yen handling using the Fowler Money
// pattern. Store revenue and spend figures arrive as floats from the ETL
// layer; this package pins them to integer yen before they are displayed.
package money

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// JPY is the only currency the dashboard reports in. The yen has no minor
// units, so amounts are whole integers.
const JPY = "JPY"

// Money represents a yen amount. It wraps go-money for formatting and
// comparison and shopspring/decimal for precise float conversion.
type Money struct {
	m *money.Money
}

// New creates a Money value from whole yen.
func New(amount int64) *Money {
	return &Money{m: money.New(amount, JPY)}
}

// NewFromFloat creates Money from a floating-point yen value, rounding to the
// nearest whole yen via decimal arithmetic.
func NewFromFloat(amount float64) *Money {
	yen := decimal.NewFromFloat(amount).Round(0).IntPart()
	return New(yen)
}

// Amount returns the value in whole yen.
func (m *Money) Amount() int64 {
	return m.m.Amount()
}

// Display renders the amount with the yen symbol, e.g. "¥12,345".
func (m *Money) Display() string {
	return m.m.Display()
}

// Add returns the sum. Both operands are yen, so this cannot fail.
func (m *Money) Add(other *Money) *Money {
	sum, _ := m.m.Add(other.m)
	return &Money{m: sum}
}

// IsNegative reports whether the amount is below zero.
func (m *Money) IsNegative() bool {
	return m.m.IsNegative()
}

// FormatJPY renders a float yen value for display in prompts and reports.
func FormatJPY(v float64) string {
	return NewFromFloat(v).Display()
}

// FormatDelta renders a signed percentage change, e.g. "+4.2%".
func FormatDelta(pct float64) string {
	return fmt.Sprintf("%+.1f%%", pct)
}
