package factory

import (
	"context"
	"testing"

	"github.com/steward-dev/steward/pkg/config"
)

func TestNewProviderSelectsOpenAI(t *testing.T) {
	cfg := &config.Config{
		ActiveProvider: "openai",
		Providers: map[string]config.ProviderConfig{
			"openai": {
				Options: config.ProviderOptions{APIKey: "test-key"},
			},
		},
	}

	provider, providerID, err := NewProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("expected provider, got error %v", err)
	}
	if provider.ID() != "openai" || providerID != "openai" {
		t.Fatalf("expected openai provider, got %s / %s", provider.ID(), providerID)
	}
}

func TestNewProviderAutoDetects(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	cfg := &config.Config{Providers: make(map[string]config.ProviderConfig)}
	provider, providerID, err := NewProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("expected provider via auto-detect, got error %v", err)
	}
	if provider.ID() != "openai" || providerID != "openai" {
		t.Fatalf("expected openai provider, got %s / %s", provider.ID(), providerID)
	}
}

func TestNewProviderOllamaUsesOpenAIAdapter(t *testing.T) {
	cfg := &config.Config{
		ActiveProvider: "ollama",
		Providers: map[string]config.ProviderConfig{
			"ollama": {
				Options: config.ProviderOptions{BaseURL: "http://localhost:11434/v1"},
			},
		},
	}

	provider, providerID, err := NewProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("expected provider, got error %v", err)
	}
	if provider.ID() != "ollama" || providerID != "ollama" {
		t.Fatalf("expected ollama id, got %s / %s", provider.ID(), providerID)
	}
}

func TestNewProviderNoneConfigured(t *testing.T) {
	cfg := &config.Config{Providers: make(map[string]config.ProviderConfig)}
	if _, _, err := NewProvider(context.Background(), cfg); err == nil {
		t.Fatalf("expected error with nothing configured")
	}
}
