package narrative

import (
	"fmt"
	"strings"

	"github.com/caratlabs/storepulse/internal/domain/forecast"
	"github.com/caratlabs/storepulse/internal/domain/kpi"
	"github.com/caratlabs/storepulse/pkg/money"
)

// PromptVersion tags the prompt-construction contract. Bump when the
// template changes so generated narratives stay attributable to a template
// revision.
const PromptVersion = "v1"

// maxPromptRunes bounds the prompt so a long forecast table can never push
// the request past the completion model's context window.
const maxPromptRunes = 6000

const systemPrompt = "あなたは小売店舗の経営コンサルタントです。" +
	"データに基づいた、実行可能で具体的なアドバイスを日本語で提供してください。"

// PromptInput carries everything the template needs. Latest is the most
// recent month in the window; Previous is the month before it (may be nil).
type PromptInput struct {
	StoreID          string
	Window           int
	Latest           *kpi.MonthlyAggregate
	Previous         *kpi.MonthlyAggregate
	CustomerForecast []forecast.Point
	SpendForecast    []forecast.Point
}

// BuildPrompt renders the v1 prompt. Output is deterministic for a given
// input, so narratives can be reproduced from logged inputs.
func BuildPrompt(in PromptInput) (system, user string) {
	var b strings.Builder

	fmt.Fprintf(&b, "[prompt %s]\n", PromptVersion)
	fmt.Fprintf(&b, "店舗ID: %s（直近%dか月の実績）\n\n", in.StoreID, in.Window)

	b.WriteString("現在の指標:\n")
	if in.Latest != nil {
		fmt.Fprintf(&b, "- 対象月: %s\n", in.Latest.YearMonth)
		writeMetricLine(&b, "顧客数", in.Latest.Customers, "人", false)
		writeMetricLine(&b, "客単価", in.Latest.AvgSpend, "", true)
		writeMetricLine(&b, "生産性(円/時)", in.Latest.Productivity, "", true)
	} else {
		b.WriteString("- データなし\n")
	}

	if in.Previous != nil && in.Latest != nil {
		b.WriteString("\n前月比:\n")
		writeChangeLine(&b, "顧客数", in.Latest.Customers, in.Previous.Customers)
		writeChangeLine(&b, "客単価", in.Latest.AvgSpend, in.Previous.AvgSpend)
		writeChangeLine(&b, "生産性", in.Latest.Productivity, in.Previous.Productivity)
	}

	writeForecastSection(&b, "顧客数予測（6か月）", in.CustomerForecast)
	writeForecastSection(&b, "客単価予測（6か月）", in.SpendForecast)

	b.WriteString("\n上記を踏まえて、店長が今月実行すべき具体的な改善アクションを5つ、箇条書きで提案してください。\n")

	user = truncateRunes(b.String(), maxPromptRunes)
	return systemPrompt, user
}

func writeMetricLine(b *strings.Builder, label string, value *float64, unit string, yen bool) {
	if value == nil {
		fmt.Fprintf(b, "- %s: データなし\n", label)
		return
	}
	if yen {
		fmt.Fprintf(b, "- %s: %s\n", label, money.FormatJPY(*value))
		return
	}
	fmt.Fprintf(b, "- %s: %.0f%s\n", label, *value, unit)
}

func writeChangeLine(b *strings.Builder, label string, current, previous *float64) {
	if current == nil || previous == nil || *previous == 0 {
		fmt.Fprintf(b, "- %s変化: 比較不可\n", label)
		return
	}
	pct := (*current - *previous) / *previous * 100
	fmt.Fprintf(b, "- %s変化: %+.1f%%\n", label, pct)
}

func writeForecastSection(b *strings.Builder, title string, points []forecast.Point) {
	if len(points) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, p := range points {
		fmt.Fprintf(b, "- %s: %.0f (%.0f〜%.0f)\n", p.YearMonth, p.Predicted, p.LowerBound, p.UpperBound)
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
