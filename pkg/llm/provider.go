// Package llm defines the provider boundary: a single Chat-shaped
// contract the pipeline talks to, with typed errors that say whether a
// failure is worth retrying.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/steward-dev/steward/pkg/types"
)

// Provider is the interface an LLM adapter implements.
type Provider interface {
	// ID returns the provider identifier, e.g. "openai".
	ID() string

	// Call executes one synchronous chat request.
	Call(ctx context.Context, req *Request) (*Response, error)
}

// Request is the provider-agnostic chat request.
type Request struct {
	Model       string
	Messages    []types.Message
	Tools       []types.ToolSpec
	MaxTokens   int
	Temperature float64
}

// Response is the provider-agnostic chat response.
type Response struct {
	ID        string
	Model     string
	Provider  string
	Content   string
	ToolCalls []types.ToolCall
	Usage     types.Usage
	LatencyMS int64
}

// Error wraps a provider failure with retryability so the pipeline can
// decide whether to proceed or abort a phase.
type Error struct {
	Provider  string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("provider %s: %s error: %v", e.Provider, kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err for a provider.
func NewError(provider string, retryable bool, err error) *Error {
	return &Error{Provider: provider, Retryable: retryable, Err: err}
}

// IsRetryable reports whether err is a provider error marked retryable.
// Timeouts and cancellations also count as retryable.
func IsRetryable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return errors.Is(err, context.DeadlineExceeded)
}
