package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-meal-coach/internal/config"
	"ai-meal-coach/internal/shared"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicDefaultMaxTokens = 4096

// anthropicClient calls the Anthropic Messages API through the official SDK.
type anthropicClient struct {
	client anthropic.Client
}

func NewAnthropicClient(cfg config.ProviderConfig) ModelClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(120 * time.Second),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &anthropicClient{client: anthropic.NewClient(opts...)}
}

func (c *anthropicClient) Complete(ctx context.Context, req CompletionRequest) (ContentResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}
	if system := schemaInstruction(req); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return ContentResponse{}, fmt.Errorf("anthropic api error: status=%d: %w", apiErr.StatusCode, err)
		}
		return ContentResponse{}, fmt.Errorf("failed to send request: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return ContentResponse{}, ErrEmptyResponse
	}

	usage := shared.TokenUsage{
		Model:            req.Model,
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
		TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}
	if msg.Model != "" {
		usage.Model = string(msg.Model)
	}
	return ContentResponse{Content: sb.String(), Usage: usage}, nil
}
