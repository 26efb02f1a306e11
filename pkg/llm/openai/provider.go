// Package openai adapts the OpenAI chat completions API (and
// compatible endpoints such as OpenRouter and Ollama) to the provider
// contract.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/steward-dev/steward/pkg/llm"
	"github.com/steward-dev/steward/pkg/types"
)

type Config struct {
	APIKey  string
	BaseURL string
	// ID overrides the provider identifier, used when the same client
	// serves an OpenAI-compatible endpoint (openrouter, ollama).
	ID string
}

type Provider struct {
	client *openai.Client
	config Config
}

func New(cfg Config) *Provider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &Provider{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}
}

func (p *Provider) ID() string {
	if p.config.ID != "" {
		return p.config.ID
	}
	return "openai"
}

func (p *Provider) Call(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	msgs, err := convertMessages(req.Messages)
	if err != nil {
		return nil, llm.NewError(p.ID(), false, fmt.Errorf("convert messages: %w", err))
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		Tools:       convertTools(req.Tools),
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return nil, llm.NewError(p.ID(), isRetryable(err), err)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.NewError(p.ID(), true, fmt.Errorf("no choices returned"))
	}

	choice := resp.Choices[0]
	return &llm.Response{
		ID:        resp.ID,
		Model:     resp.Model,
		Content:   choice.Message.Content,
		ToolCalls: convertToolCalls(choice.Message.ToolCalls),
		Usage:     convertUsage(resp.Usage),
	}, nil
}

// isRetryable classifies API failures: rate limits and server errors
// are worth retrying, client errors are not.
func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// Transport-level failures without an API error are network blips.
	var reqErr *openai.RequestError
	return errors.As(err, &reqErr)
}

func convertMessages(msgs []types.Message) ([]openai.ChatCompletionMessage, error) {
	var result []openai.ChatCompletionMessage
	for _, m := range msgs {
		// go-openai omits empty content; some compatible backends
		// require the field, so keep a placeholder space.
		content := m.Content
		if content == "" {
			content = " "
		}

		msg := openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: content,
		}
		if m.Role == "tool" {
			msg.ToolCallID = m.ToolCallID
		}
		if len(m.ToolCalls) > 0 {
			msg.ToolCalls = make([]openai.ToolCall, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				msg.ToolCalls[i] = openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				}
			}
		}
		result = append(result, msg)
	}
	return result, nil
}

func convertTools(tools []types.ToolSpec) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return result
}

func convertUsage(u openai.Usage) types.Usage {
	return types.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

func convertToolCalls(calls []openai.ToolCall) []types.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	result := make([]types.ToolCall, len(calls))
	for i, c := range calls {
		result[i] = types.ToolCall{
			ID:        c.ID,
			Name:      c.Function.Name,
			Arguments: c.Function.Arguments,
		}
	}
	return result
}
