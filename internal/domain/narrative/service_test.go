package narrative_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caratlabs/storepulse/internal/domain/forecast"
	"github.com/caratlabs/storepulse/internal/domain/kpi"
	"github.com/caratlabs/storepulse/internal/domain/narrative"
)

// fakeModel records the last prompt and returns a canned completion or error.
type fakeModel struct {
	reply    string
	err      error
	messages []*schema.Message
}

func (f *fakeModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.messages = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func floatPtr(v float64) *float64 { return &v }

func sampleInput() narrative.PromptInput {
	return narrative.PromptInput{
		StoreID: "ST001",
		Window:  3,
		Latest: &kpi.MonthlyAggregate{
			YearMonth:    "2026-08",
			Customers:    floatPtr(3000),
			AvgSpend:     floatPtr(3200),
			Productivity: floatPtr(8000),
		},
		Previous: &kpi.MonthlyAggregate{
			YearMonth:    "2026-07",
			Customers:    floatPtr(2900),
			AvgSpend:     floatPtr(3150),
			Productivity: floatPtr(7900),
		},
		CustomerForecast: []forecast.Point{
			{YearMonth: "2026-09", Predicted: 3050, LowerBound: 2950, UpperBound: 3150},
		},
	}
}

func TestRecommendations(t *testing.T) {
	m := &fakeModel{reply: "1. 週末の来客を増やすキャンペーンを実施する"}
	svc := narrative.NewService(m, slog.Default())

	got, err := svc.Recommendations(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, m.reply, got)

	// System + user messages, user carries the store and the version tag.
	require.Len(t, m.messages, 2)
	assert.Equal(t, schema.System, m.messages[0].Role)
	assert.Equal(t, schema.User, m.messages[1].Role)
	assert.Contains(t, m.messages[1].Content, "ST001")
	assert.Contains(t, m.messages[1].Content, narrative.PromptVersion)
}

func TestRecommendationsModelFailure(t *testing.T) {
	m := &fakeModel{err: errors.New("connection refused")}
	svc := narrative.NewService(m, slog.Default())

	_, err := svc.Recommendations(context.Background(), sampleInput())
	assert.ErrorIs(t, err, narrative.ErrUnavailable)
}

func TestRecommendationsEmptyCompletion(t *testing.T) {
	m := &fakeModel{reply: "   "}
	svc := narrative.NewService(m, slog.Default())

	_, err := svc.Recommendations(context.Background(), sampleInput())
	assert.ErrorIs(t, err, narrative.ErrUnavailable)
}

func TestBuildPromptContents(t *testing.T) {
	_, user := narrative.BuildPrompt(sampleInput())

	assert.Contains(t, user, "ST001")
	assert.Contains(t, user, "2026-08")
	assert.Contains(t, user, "¥3,200")       // spend formatted as yen
	assert.Contains(t, user, "+3.4%")        // customer MoM: 2900 -> 3000
	assert.Contains(t, user, "2026-09")      // forecast month
	assert.Contains(t, user, "顧客数予測")  // forecast section present
}

func TestBuildPromptHandlesMissingData(t *testing.T) {
	_, user := narrative.BuildPrompt(narrative.PromptInput{StoreID: "ST009", Window: 6})

	assert.Contains(t, user, "ST009")
	assert.Contains(t, user, "データなし")
	assert.NotContains(t, user, "予測")
}

func TestBuildPromptBounded(t *testing.T) {
	in := sampleInput()
	for i := 0; i < 2000; i++ {
		in.CustomerForecast = append(in.CustomerForecast, forecast.Point{
			YearMonth: "2027-01", Predicted: 1, LowerBound: 0, UpperBound: 2,
		})
	}

	_, user := narrative.BuildPrompt(in)
	assert.LessOrEqual(t, utf8.RuneCountInString(user), 6000)
}
