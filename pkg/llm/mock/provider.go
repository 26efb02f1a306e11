// Package mock provides a scriptable in-memory provider for tests and
// offline runs.
package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/steward-dev/steward/pkg/llm"
)

type Provider struct {
	// Responses are returned in order; after the last one the final
	// response repeats. Empty means echo the last message.
	Responses []string
	// Err, when set, is returned for every call.
	Err error
	// Retryable marks Err as retryable.
	Retryable bool

	calls int
}

func New(responses ...string) *Provider {
	return &Provider{Responses: responses}
}

func (p *Provider) ID() string {
	return "mock"
}

// Calls reports how many requests the provider served.
func (p *Provider) Calls() int { return p.calls }

func (p *Provider) Call(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	p.calls++
	if p.Err != nil {
		return nil, llm.NewError(p.ID(), p.Retryable, p.Err)
	}

	var content string
	switch {
	case len(p.Responses) == 0:
		last := req.Messages[len(req.Messages)-1]
		content = fmt.Sprintf("Mock response to: %s", last.Content)
	case p.calls-1 < len(p.Responses):
		content = p.Responses[p.calls-1]
	default:
		content = p.Responses[len(p.Responses)-1]
	}

	return &llm.Response{
		ID:      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		Model:   "mock-model",
		Content: content,
	}, nil
}
