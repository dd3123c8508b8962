package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-meal-coach/internal/config"
	"ai-meal-coach/internal/shared"
)

// openAIClient talks to any OpenAI-compatible chat completions endpoint
// (OpenAI itself, Groq).
type openAIClient struct {
	apiKey     string
	baseURL    string
	jsonSchema bool
	httpClient *http.Client
}

// NewOpenAIClient creates a chat completions client. When jsonSchema is false
// the endpoint is only asked for a JSON object and the schema travels in the
// system message.
func NewOpenAIClient(cfg config.ProviderConfig, jsonSchema bool) ModelClient {
	return &openAIClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		jsonSchema: jsonSchema,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
}

func (c *openAIClient) buildRequest(req CompletionRequest) chatRequest {
	system := req.System
	format := map[string]any{"type": "json_object"}
	if len(req.Schema) > 0 {
		if c.jsonSchema {
			name := req.SchemaName
			if name == "" {
				name = "response"
			}
			format = map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   name,
					"schema": req.Schema,
				},
			}
		} else {
			system = schemaInstruction(req)
		}
	}
	return chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: req.User},
		},
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ResponseFormat: format,
	}
}

// Complete sends the request and returns the first choice.
func (c *openAIClient) Complete(ctx context.Context, req CompletionRequest) (ContentResponse, error) {
	jsonBody, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ContentResponse{}, fmt.Errorf("chat completions api error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return ContentResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return ContentResponse{}, ErrEmptyResponse
	}

	usage := shared.TokenUsage{Model: req.Model}
	if chatResp.Model != "" {
		usage.Model = chatResp.Model
	}
	if chatResp.Usage != nil {
		usage.PromptTokens = chatResp.Usage.PromptTokens
		usage.CompletionTokens = chatResp.Usage.CompletionTokens
		usage.TotalTokens = chatResp.Usage.TotalTokens
	}

	return ContentResponse{
		Content: chatResp.Choices[0].Message.Content,
		Usage:   usage,
	}, nil
}
