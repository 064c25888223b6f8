package reasoner

import (
	"encoding/json"

	"reasoner-api/internal/config"
	"reasoner-api/internal/shared"
)

// The output-formatting policy: reasoning is either embedded in content
// between the think delimiters, or routed into the dedicated
// reasoning_content field. Selected per model at runtime, consulted wherever
// a chunk or final message is assembled.

// openingDelta primes the client stream with the assistant role, and the
// opening delimiter when reasoning is inlined.
func openingDelta(f config.ReasoningFormat) shared.ChunkDelta {
	if f == config.FormatSeparate {
		return shared.ChunkDelta{Role: shared.RoleAssistant}
	}
	content := shared.ThinkStart
	return shared.ChunkDelta{Role: shared.RoleAssistant, Content: &content}
}

func reasoningDelta(f config.ReasoningFormat, text string) shared.ChunkDelta {
	if f == config.FormatSeparate {
		return shared.ChunkDelta{ReasoningContent: &text}
	}
	return shared.ChunkDelta{Content: &text}
}

// closingDelta closes the inline reasoning block before answer deltas start.
// The separate format has nothing to close.
func closingDelta(f config.ReasoningFormat) (shared.ChunkDelta, bool) {
	if f == config.FormatSeparate {
		return shared.ChunkDelta{}, false
	}
	content := shared.ThinkEnd + "\n\n"
	return shared.ChunkDelta{Content: &content}, true
}

// finalMessage assembles the non-streaming assistant message. An empty
// answer means the reasoning budget ran out; the inline block is left open
// the same way the streamed form would be.
func finalMessage(f config.ReasoningFormat, reasoning, answer string, toolCalls []json.RawMessage) shared.ChatMessage {
	msg := shared.ChatMessage{Role: shared.RoleAssistant, ToolCalls: toolCalls}
	if f == config.FormatSeparate {
		msg.ReasoningContent = reasoning
		msg.Content = shared.TextContent(answer)
		return msg
	}
	content := shared.ThinkStart + reasoning
	if answer != "" {
		content += shared.ThinkEnd + "\n\n" + answer
	}
	msg.Content = shared.TextContent(content)
	return msg
}
