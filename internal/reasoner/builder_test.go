package reasoner

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reasoner-api/internal/config"
	"reasoner-api/internal/shared"
)

func testModelConfig() *config.ModelConfig {
	return &config.ModelConfig{
		ModelName:       "upstream-model",
		APIURL:          "http://upstream.test",
		ReasoningBudget: 4096,
		ReasoningFormat: config.FormatInline,
	}
}

func testRequest() *shared.ChatCompletionRequest {
	return &shared.ChatCompletionRequest{
		Model: "served-model",
		Messages: []shared.ChatMessage{
			message(shared.RoleUser, "why is the sky blue?"),
		},
		MaxTokens:  intp(10000),
		Stop:       []string{"END"},
		Tools:      []json.RawMessage{json.RawMessage(`{"type":"function"}`)},
		ToolChoice: json.RawMessage(`"auto"`),
	}
}

func TestBuildReasoningRequest(t *testing.T) {
	orig := testRequest()
	req := BuildReasoningRequest(orig, testModelConfig())

	assert.Equal(t, "upstream-model", req.Model)
	require.Len(t, req.Messages, 2)
	priming := req.Messages[1]
	assert.Equal(t, shared.RoleAssistant, priming.Role)
	assert.Equal(t, shared.ThinkStart, priming.Content.Flatten())

	assert.Equal(t, []string{shared.ThinkEnd}, req.Stop)
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, 4096, *req.MaxTokens)

	// tools are deferred to the answer phase
	assert.Nil(t, req.Tools)
	assert.Nil(t, req.ToolChoice)
}

func TestBuildReasoningRequestLeavesOriginalUntouched(t *testing.T) {
	orig := testRequest()
	_ = BuildReasoningRequest(orig, testModelConfig())

	assert.Len(t, orig.Messages, 1)
	assert.Equal(t, []string{"END"}, orig.Stop)
	assert.Equal(t, 10000, *orig.MaxTokens)
}

func TestBuildAnswerRequest(t *testing.T) {
	orig := testRequest()
	outcome := &ReasoningOutcome{Text: "thinking...", TokensUsed: 200, FinishReason: shared.FinishReasonStop}
	req := BuildAnswerRequest(orig, testModelConfig(), outcome, 9800)

	assert.Equal(t, "upstream-model", req.Model)
	require.Len(t, req.Messages, 2)
	injected := req.Messages[1]
	assert.Equal(t, shared.RoleAssistant, injected.Role)
	assert.Equal(t, shared.ThinkStart+"thinking..."+shared.ThinkEnd, injected.Content.Flatten())

	// phase-1 stop sequence is gone, the caller's own stops survive
	assert.Equal(t, []string{"END"}, req.Stop)
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, 9800, *req.MaxTokens)

	// tools carry over unchanged
	assert.Equal(t, orig.Tools, req.Tools)
	assert.Equal(t, orig.ToolChoice, req.ToolChoice)
}

func TestBuildersSetStreamOptions(t *testing.T) {
	orig := testRequest()
	orig.Stream = true

	phase1 := BuildReasoningRequest(orig, testModelConfig())
	require.NotNil(t, phase1.StreamOptions)
	assert.True(t, phase1.Stream)
	assert.True(t, phase1.StreamOptions.IncludeUsage)

	phase2 := BuildAnswerRequest(orig, testModelConfig(), &ReasoningOutcome{Text: "t"}, 10)
	require.NotNil(t, phase2.StreamOptions)
	assert.True(t, phase2.Stream)
	assert.True(t, phase2.StreamOptions.IncludeUsage)
}
