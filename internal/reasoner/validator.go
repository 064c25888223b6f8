package reasoner

import (
	"fmt"

	"reasoner-api/internal/shared"
)

// ValidateRequest rejects structurally invalid completion requests before
// any upstream call. First failure wins.
func ValidateRequest(req *shared.ChatCompletionRequest) error {
	if len(req.Messages) == 0 {
		return fmt.Errorf("%w: empty messages", shared.ErrValidation)
	}
	// The reasoning phase opens with a synthetic assistant priming message;
	// a user-supplied trailing assistant turn would conflict with it.
	if req.Messages[len(req.Messages)-1].Role == shared.RoleAssistant {
		return fmt.Errorf("%w: trailing assistant message", shared.ErrValidation)
	}
	return nil
}
