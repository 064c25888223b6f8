package reasoner

import (
	"reasoner-api/internal/config"
	"reasoner-api/internal/shared"
)

// BuildReasoningRequest derives the phase-1 request: the original messages
// plus a synthetic assistant turn holding only the opening delimiter, so the
// upstream continues the turn in reasoning mode. The closing delimiter
// becomes the stop sequence and the output cap is the model's reasoning
// budget. Tools are withheld; tool calling belongs to the answer phase.
func BuildReasoningRequest(orig *shared.ChatCompletionRequest, mc *config.ModelConfig) *shared.ChatCompletionRequest {
	budget := mc.ReasoningBudget
	req := &shared.ChatCompletionRequest{
		Model: mc.ModelName,
		Messages: appendAssistant(orig.Messages, shared.ChatMessage{
			Role:    shared.RoleAssistant,
			Content: shared.TextContent(shared.ThinkStart),
		}),
		MaxTokens: &budget,
		Stop:      []string{shared.ThinkEnd},
		Stream:    orig.Stream,
	}
	if orig.Stream {
		req.StreamOptions = &shared.StreamOptions{IncludeUsage: true}
	}
	return req
}

// BuildAnswerRequest derives the phase-2 request: the original messages plus
// a synthetic assistant turn carrying the closed reasoning block, simulating
// a model that already finished thinking. The phase-1 stop sequence is gone,
// the cap is whatever budget remains, and tools carry over unchanged.
func BuildAnswerRequest(orig *shared.ChatCompletionRequest, mc *config.ModelConfig, outcome *ReasoningOutcome, remainingTokens int) *shared.ChatCompletionRequest {
	remaining := remainingTokens
	req := &shared.ChatCompletionRequest{
		Model: mc.ModelName,
		Messages: appendAssistant(orig.Messages, shared.ChatMessage{
			Role:    shared.RoleAssistant,
			Content: shared.TextContent(shared.ThinkStart + outcome.Text + shared.ThinkEnd),
		}),
		MaxTokens:  &remaining,
		Stop:       orig.Stop,
		Stream:     orig.Stream,
		Tools:      orig.Tools,
		ToolChoice: orig.ToolChoice,
	}
	if orig.Stream {
		req.StreamOptions = &shared.StreamOptions{IncludeUsage: true}
	}
	return req
}

// appendAssistant clones the message list before appending so the original
// request stays untouched for the second builder call.
func appendAssistant(messages []shared.ChatMessage, priming shared.ChatMessage) []shared.ChatMessage {
	cloned := make([]shared.ChatMessage, 0, len(messages)+1)
	cloned = append(cloned, messages...)
	return append(cloned, priming)
}
