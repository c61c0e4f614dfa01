// Package narrative turns a store's KPI snapshot and forecast into a short
// set of concrete recommendations via a chat completion model.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/caratlabs/storepulse/internal/metrics"
)

// ErrUnavailable marks a failed or empty completion. Callers degrade to a
// report without the insights section; KPIs are never blocked on it.
var ErrUnavailable = errors.New("narrative unavailable")

// ChatModel is the completion surface the service depends on. Satisfied by
// the eino OpenAI model and by test fakes.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Service generates recommendation text. A single attempt per request; the
// model is an external dependency and retries belong to the caller's next
// refresh, not a blocking loop.
type Service struct {
	model  ChatModel
	logger *slog.Logger
}

// NewService creates the narrative service.
func NewService(m ChatModel, logger *slog.Logger) *Service {
	return &Service{model: m, logger: logger}
}

// Recommendations builds the versioned prompt and asks the model for
// actionable advice. Returns ErrUnavailable on any model failure.
func (s *Service) Recommendations(ctx context.Context, in PromptInput) (string, error) {
	system, user := BuildPrompt(in)

	started := time.Now()
	resp, err := s.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	})
	metrics.NarrativeLatency.Observe(time.Since(started).Seconds())

	if err != nil {
		metrics.NarrativeFailures.Inc()
		s.logger.Warn("narrative generation failed",
			slog.String("store_id", in.StoreID),
			slog.String("prompt_version", PromptVersion),
			slog.Any("error", err),
		)
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		metrics.NarrativeFailures.Inc()
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}

	s.logger.Info("narrative generated",
		slog.String("store_id", in.StoreID),
		slog.String("prompt_version", PromptVersion),
		slog.Int("chars", len(content)),
	)
	return content, nil
}
