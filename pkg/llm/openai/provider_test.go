package openai

import (
	"testing"

	sdk "github.com/sashabaranov/go-openai"

	"github.com/steward-dev/steward/pkg/types"
)

func TestConvertMessages(t *testing.T) {
	msgs := []types.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", ToolCalls: []types.ToolCall{{ID: "1", Name: "read_file", Arguments: "{}"}}},
		{Role: "tool", ToolCallID: "1", ToolName: "read_file", Content: "result"},
	}
	converted, err := convertMessages(msgs)
	if err != nil {
		t.Fatalf("convert messages error: %v", err)
	}
	if len(converted) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(converted))
	}
	if converted[1].ToolCalls[0].Function.Name != "read_file" {
		t.Fatalf("unexpected tool call conversion: %+v", converted[1].ToolCalls[0])
	}
	if converted[2].Role != "tool" || converted[2].ToolCallID != "1" {
		t.Fatalf("unexpected tool message conversion: %+v", converted[2])
	}
	if converted[1].Content == "" {
		t.Fatalf("empty content must be padded for compatible backends")
	}
}

func TestConvertToolsAndBack(t *testing.T) {
	tools := []types.ToolSpec{{Name: "read_file", Description: "desc", Parameters: types.JSONSchema{"type": "object"}}}
	converted := convertTools(tools)
	if len(converted) != 1 || converted[0].Function.Name != "read_file" {
		t.Fatalf("unexpected conversion: %+v", converted)
	}

	calls := []sdk.ToolCall{{ID: "1", Function: sdk.FunctionCall{Name: "read_file", Arguments: "{}"}}}
	back := convertToolCalls(calls)
	if len(back) != 1 || back[0].Name != "read_file" {
		t.Fatalf("unexpected tool call conversion back: %+v", back)
	}
}

func TestConvertUsage(t *testing.T) {
	u := sdk.Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}
	res := convertUsage(u)
	if res.TotalTokens != 3 || res.PromptTokens != 1 || res.CompletionTokens != 2 {
		t.Fatalf("unexpected usage conversion: %+v", res)
	}
}

func TestIsRetryable(t *testing.T) {
	if !isRetryable(&sdk.APIError{HTTPStatusCode: 429}) {
		t.Fatalf("rate limit should be retryable")
	}
	if !isRetryable(&sdk.APIError{HTTPStatusCode: 503}) {
		t.Fatalf("server error should be retryable")
	}
	if isRetryable(&sdk.APIError{HTTPStatusCode: 400}) {
		t.Fatalf("client error should not be retryable")
	}
}

func TestProviderIDOverride(t *testing.T) {
	p := New(Config{APIKey: "k", BaseURL: "http://localhost:11434/v1", ID: "ollama"})
	if p.ID() != "ollama" {
		t.Fatalf("expected overridden id, got %s", p.ID())
	}
	if New(Config{APIKey: "k"}).ID() != "openai" {
		t.Fatalf("expected default id openai")
	}
}
