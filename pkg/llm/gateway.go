package llm

import (
	"context"
	"time"

	"github.com/steward-dev/steward/pkg/config"
)

// Gateway applies configured defaults to every request and stamps the
// response with provider identity and latency.
type Gateway struct {
	provider Provider
	options  config.ProviderOptions
}

func NewGateway(provider Provider, opts config.ProviderOptions) *Gateway {
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	return &Gateway{
		provider: provider,
		options:  opts,
	}
}

// Provider returns the wrapped provider's id.
func (g *Gateway) Provider() string { return g.provider.ID() }

// Chat sends one request through the provider with the gateway's
// defaults filled in.
func (g *Gateway) Chat(ctx context.Context, req *Request) (*Response, error) {
	if req.Model == "" {
		req.Model = g.options.Model
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = g.options.MaxTokens
	}
	if req.Temperature == 0 {
		req.Temperature = g.options.Temperature
	}
	if g.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(g.options.Timeout)*time.Millisecond)
		defer cancel()
	}

	started := time.Now()
	resp, err := g.provider.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	resp.Provider = g.provider.ID()
	resp.LatencyMS = time.Since(started).Milliseconds()
	return resp, nil
}
