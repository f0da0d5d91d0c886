package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const providerOpenAI = "openai"

// Completion is a single prompt sent to the model.
type Completion struct {
	System    string
	Prompt    string
	MaxTokens int
}

// CompletionResult is the model's answer and what it cost.
type CompletionResult struct {
	Content    string
	TokensUsed int64
	Model      string
	Provider   string
}

// Completer produces text for a prompt.
type Completer interface {
	Complete(ctx context.Context, c Completion) (*CompletionResult, error)
}

// OpenAIClient completes prompts with the chat completions API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

var _ Completer = (*OpenAIClient)(nil)

func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg = cfg.withDefaults()

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req Completion) (*CompletionResult, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: status %d: %s", ErrCompletionFailed, apiErr.HTTPStatusCode, apiErr.Message)
		}
		return nil, errors.Join(ErrCompletionFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrCompletionFailed)
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return &CompletionResult{
		Content:    resp.Choices[0].Message.Content,
		TokensUsed: int64(resp.Usage.TotalTokens),
		Model:      model,
		Provider:   providerOpenAI,
	}, nil
}
