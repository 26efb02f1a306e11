// Package factory builds the configured LLM provider.
package factory

import (
	"context"
	"fmt"

	"github.com/steward-dev/steward/pkg/config"
	"github.com/steward-dev/steward/pkg/llm"
	"github.com/steward-dev/steward/pkg/llm/gemini"
	"github.com/steward-dev/steward/pkg/llm/mock"
	"github.com/steward-dev/steward/pkg/llm/openai"
)

// NewProvider resolves the active provider from config (explicit
// selection first, then env auto-detection) and constructs its adapter.
// The returned string is the provider id.
func NewProvider(ctx context.Context, cfg *config.Config) (llm.Provider, string, error) {
	providerID, opts, err := cfg.GetActiveProvider()
	if err != nil {
		return nil, "", err
	}

	switch providerID {
	case "gemini":
		p, err := gemini.New(ctx, gemini.Config{
			APIKey:    opts.APIKey,
			ProjectID: opts.ProjectID,
			Location:  opts.Location,
			Model:     opts.Model,
		})
		if err != nil {
			return nil, "", err
		}
		return p, providerID, nil

	case "openai", "openrouter", "ollama":
		// OpenAI-compatible endpoints share one adapter.
		return openai.New(openai.Config{
			APIKey:  opts.APIKey,
			BaseURL: opts.BaseURL,
			ID:      providerID,
		}), providerID, nil

	case "mock":
		return mock.New(), providerID, nil

	default:
		return nil, "", fmt.Errorf("unknown provider: %s", providerID)
	}
}

// NewGateway builds the gateway for the active provider in one step.
func NewGateway(ctx context.Context, cfg *config.Config) (*llm.Gateway, string, error) {
	provider, providerID, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, "", err
	}
	_, opts, err := cfg.GetActiveProvider()
	if err != nil {
		return nil, "", err
	}
	return llm.NewGateway(provider, opts), providerID, nil
}
