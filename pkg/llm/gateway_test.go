package llm

import (
	"context"
	"testing"

	"github.com/steward-dev/steward/pkg/config"
	"github.com/steward-dev/steward/pkg/types"
)

type stubProvider struct {
	gotModel       string
	gotTemperature float64
}

func (s *stubProvider) ID() string { return "stub" }

func (s *stubProvider) Call(ctx context.Context, req *Request) (*Response, error) {
	s.gotModel = req.Model
	s.gotTemperature = req.Temperature
	return &Response{
		Model:     req.Model,
		Content:   "ok",
		ToolCalls: []types.ToolCall{{Name: req.Tools[0].Name}},
		Usage:     types.Usage{TotalTokens: 1},
	}, nil
}

func TestGatewayChat(t *testing.T) {
	stub := &stubProvider{}
	gw := NewGateway(stub, config.ProviderOptions{Model: "default-model"})

	resp, err := gw.Chat(context.Background(), &Request{
		Messages: []types.Message{{Content: "hi"}},
		Tools:    []types.ToolSpec{{Name: "read_file"}},
	})
	if err != nil {
		t.Fatalf("chat error: %v", err)
	}
	if resp.Content != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if stub.gotModel != "default-model" {
		t.Fatalf("gateway should fill the default model, got %q", stub.gotModel)
	}
	if stub.gotTemperature != 0.7 {
		t.Fatalf("gateway should fill the default temperature, got %v", stub.gotTemperature)
	}
	if resp.Provider != "stub" {
		t.Fatalf("gateway must stamp the provider id, got %q", resp.Provider)
	}
	if len(resp.ToolCalls) != 1 || resp.Usage.TotalTokens != 1 {
		t.Fatalf("tool calls and usage must propagate: %+v", resp)
	}
}
