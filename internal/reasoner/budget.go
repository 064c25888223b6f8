package reasoner

import "reasoner-api/internal/shared"

// ReasoningOutcome is what phase 1 leaves behind for the budget decision and
// the answer-phase request builder.
type ReasoningOutcome struct {
	Text         string
	TokensUsed   int
	FinishReason string
}

// RemainingTokens computes the answer-phase token allowance. With no
// requested cap the ceiling is DefaultMaxTokens. Never negative.
func RemainingTokens(requestedMax *int, used int) int {
	ceiling := shared.DefaultMaxTokens
	if requestedMax != nil {
		ceiling = *requestedMax
	}
	return max(0, ceiling-used)
}

// ReasoningExhausted reports whether phase 1 was cut off by its token budget
// rather than reaching the closing delimiter.
func ReasoningExhausted(outcome *ReasoningOutcome) bool {
	return outcome.FinishReason == shared.FinishReasonLength
}
