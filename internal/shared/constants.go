package shared

import "time"

// HTTP Client Configuration
const (
	DefaultConnectTimeout  = 30 * time.Second
	DefaultReadTimeout     = 60 * time.Second
	DefaultRequestTimeout  = 10 * time.Minute
	DefaultShutdownTimeout = 10 * time.Second
)

// Reasoning Configuration
const (
	ThinkStart = "<think>"
	ThinkEnd   = "</think>"

	// ReasoningCutoffStub is appended to reasoning that hit its token budget
	// before reaching the closing delimiter.
	ReasoningCutoffStub = "Right, this is taking too long... Time to write the answer."

	DefaultMaxTokens = 1024 * 1024
)

// Streaming Configuration
const (
	// ChannelBufferSize bounds the chunk channel between the orchestrator and
	// the response writer. A full channel blocks the orchestrator, which is
	// what gives a slow client backpressure against a fast upstream.
	ChannelBufferSize = 100
)

// Wire Constants
const (
	ContentTypeJSON        = "application/json"
	ContentTypeEventStream = "text/event-stream"

	ObjectChatCompletion  = "chat.completion"
	ObjectCompletionChunk = "chat.completion.chunk"
	ObjectModel           = "model"
	ObjectList            = "list"

	ModelOwner = "adaptive_reasoner"

	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"

	FinishReasonStop      = "stop"
	FinishReasonLength    = "length"
	FinishReasonToolCalls = "tool_calls"
)
