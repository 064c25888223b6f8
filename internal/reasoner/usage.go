package reasoner

import "reasoner-api/internal/shared"

// MergeUsage folds the per-phase counters into the one triple the client
// sees. Prompt tokens are charged once, from phase 1: phase 2 replays the
// same prompt plus the injected reasoning and its prompt cost is the
// upstream's business, not the client's. Missing fields are zero, never an
// error; upstream usage reporting is best-effort.
func MergeUsage(phase1 shared.Usage, phase2 *shared.Usage) shared.Usage {
	merged := shared.Usage{
		PromptTokens:     phase1.PromptTokens,
		CompletionTokens: phase1.CompletionTokens,
	}
	if phase2 != nil {
		merged.CompletionTokens += phase2.CompletionTokens
	}
	merged.TotalTokens = merged.PromptTokens + merged.CompletionTokens
	return merged
}
