package reasoner

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"reasoner-api/internal/config"
	"reasoner-api/internal/metrics"
	"reasoner-api/internal/shared"
)

// CreateCompletion runs the non-streaming two-phase flow and assembles one
// client-visible completion. At most two upstream calls, strictly
// sequential: the answer request embeds the reasoning output.
func (s *Service) CreateCompletion(ctx context.Context, reqID string, req *shared.ChatCompletionRequest, mc *config.ModelConfig) (*shared.ChatCompletion, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	phase1, err := s.performJSON(ctx, reqID, mc, BuildReasoningRequest(req, mc))
	if err != nil {
		return nil, err
	}
	choice, err := phase1.FirstChoice()
	if err != nil {
		return nil, err
	}

	outcome := &ReasoningOutcome{
		Text:         strings.TrimSpace(choice.Message.Content.Flatten()),
		TokensUsed:   phase1.Usage.CompletionTokens,
		FinishReason: choice.FinishReason,
	}
	s.log.Debugw("reasoning phase done",
		"request_id", reqID,
		"prompt_tokens", phase1.Usage.PromptTokens,
		"reasoning_tokens", outcome.TokensUsed,
		"finish_reason", outcome.FinishReason,
	)

	var (
		answerText   string
		toolCalls    []json.RawMessage
		phase2Usage  *shared.Usage
		finishReason = shared.FinishReasonStop
	)
	remaining := RemainingTokens(req.MaxTokens, outcome.TokensUsed)
	switch {
	case ReasoningExhausted(outcome):
		outcome.Text += "...\n\n" + shared.ReasoningCutoffStub + "\n"
		finishReason = shared.FinishReasonLength
		metrics.AnswerSkipped.WithLabelValues(req.Model, skipBudgetExhausted).Inc()
	case remaining <= 0:
		finishReason = shared.FinishReasonLength
		metrics.AnswerSkipped.WithLabelValues(req.Model, skipNoRemaining).Inc()
	default:
		phase2, err := s.performJSON(ctx, reqID, mc, BuildAnswerRequest(req, mc, outcome, remaining))
		if err != nil {
			return nil, err
		}
		answerChoice, err := phase2.FirstChoice()
		if err != nil {
			return nil, err
		}
		answerText = strings.TrimSpace(answerChoice.Message.Content.Flatten())
		toolCalls = answerChoice.Message.ToolCalls
		finishReason = answerChoice.FinishReason
		phase2Usage = &phase2.Usage
	}

	usage := MergeUsage(phase1.Usage, phase2Usage)
	s.recordUsage(req.Model, usage, outcome.TokensUsed)

	return &shared.ChatCompletion{
		ID:      phase1.ID,
		Object:  shared.ObjectChatCompletion,
		Created: phase1.Created,
		Model:   req.Model,
		Choices: []shared.Choice{{
			Index:        0,
			Message:      finalMessage(mc.ReasoningFormat, outcome.Text, answerText, toolCalls),
			FinishReason: finishReason,
		}},
		Usage: usage,
	}, nil
}

// performJSON sends one phase request expecting a single JSON body. A
// malformed top-level response is fatal here, unlike the streaming path.
func (s *Service) performJSON(ctx context.Context, reqID string, mc *config.ModelConfig, req *shared.ChatCompletionRequest) (*shared.ChatCompletion, error) {
	res, err := s.client.Send(ctx, mc, reqID, req, shared.ContentTypeJSON)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = res.Body.Close()
	}()

	var completion shared.ChatCompletion
	if err := json.NewDecoder(res.Body).Decode(&completion); err != nil {
		return nil, errors.Join(shared.ErrParse, err)
	}
	return &completion, nil
}
