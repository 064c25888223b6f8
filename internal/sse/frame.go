package sse

import (
	"encoding/json"
	"fmt"

	"reasoner-api/internal/shared"
)

// DoneFrame terminates every client-facing stream, exactly once.
var DoneFrame = []byte("data: [DONE]\n\n")

// FrameData wraps a payload in one client-facing SSE frame.
func FrameData(payload []byte) []byte {
	return fmt.Appendf(nil, "data: %s\n\n", payload)
}

// FrameChunk serializes a chunk into one client-facing SSE frame.
func FrameChunk(chunk *shared.ChatCompletionChunk) ([]byte, error) {
	payload, err := json.Marshal(chunk)
	if err != nil {
		return nil, err
	}
	return FrameData(payload), nil
}
