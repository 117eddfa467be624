package google

import (
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/spetersoncode/answer"
)

// BlockedError indicates the prompt was blocked by content filtering.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("request blocked: %s", e.Reason)
}

// Category returns ErrorUserInput.
func (e *BlockedError) Category() answer.ErrorCategory { return answer.ErrorUserInput }

// StatusCode returns 0.
func (e *BlockedError) StatusCode() int { return 0 }

// wrapError wraps a Google GenAI error with answer error categorization.
// genai.APIError doesn't expose headers, so Retry-After is not available.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	return answer.NewStatusError(err.Error(), apiErr.Code, err)
}
