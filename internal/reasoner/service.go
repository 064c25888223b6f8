// Package reasoner drives the two-phase completion flow: a budget-bounded
// reasoning call followed by a budget-aware answer call, presented to the
// client as one completion.
package reasoner

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"reasoner-api/internal/config"
	"reasoner-api/internal/metrics"
	"reasoner-api/internal/shared"
)

// Sender is the outbound transport. It validates upstream status and
// content type before returning; a test double stands in for it.
type Sender interface {
	Send(ctx context.Context, mc *config.ModelConfig, reqID string, req *shared.ChatCompletionRequest, expectContentType string) (*http.Response, error)
}

type Service struct {
	log    *zap.SugaredLogger
	client Sender
}

func NewService(log *zap.SugaredLogger, client Sender) *Service {
	return &Service{log: log, client: client}
}

// skip reasons for the answer-skipped metric
const (
	skipBudgetExhausted = "budget_exhausted"
	skipNoRemaining     = "no_remaining_tokens"
)

func (s *Service) recordUsage(servedModel string, usage shared.Usage, reasoningTokens int) {
	metrics.PromptTokens.WithLabelValues(servedModel).Add(float64(usage.PromptTokens))
	metrics.ReasoningTokens.WithLabelValues(servedModel).Add(float64(reasoningTokens))
	metrics.CompletionTokens.WithLabelValues(servedModel).Add(float64(usage.CompletionTokens))
	metrics.TotalTokens.WithLabelValues(servedModel).Add(float64(usage.TotalTokens))
}
