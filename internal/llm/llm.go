package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ai-meal-coach/internal/shared"
)

// Provider selects a model vendor.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderGroq      Provider = "groq"
)

// ParseProvider accepts a provider name in any case.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderGroq:
		return p, nil
	}
	return "", fmt.Errorf("unsupported provider %q", s)
}

// CompletionRequest is a single structured-output request to a model.
type CompletionRequest struct {
	Model       string
	System      string
	User        string
	SchemaName  string
	Schema      json.RawMessage
	Temperature float64
	MaxTokens   int
}

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// ModelClient is implemented by every provider.
type ModelClient interface {
	Complete(ctx context.Context, req CompletionRequest) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("no content generated")

func schemaInstruction(req CompletionRequest) string {
	if len(req.Schema) == 0 {
		return req.System
	}
	return req.System + "\n\nRespond with a single JSON object and nothing else. It must conform to this JSON schema:\n" + string(req.Schema)
}
