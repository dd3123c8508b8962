package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ai-meal-coach/internal/config"
)

// ErrProviderNotConfigured is returned for providers without credentials.
var ErrProviderNotConfigured = errors.New("provider is not configured")

type registration struct {
	client ModelClient
	model  string
}

// Registry resolves a Provider to a configured client.
type Registry struct {
	mu      sync.RWMutex
	entries map[Provider]registration
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[Provider]registration)}
}

// Register makes client available under p, using model unless a request overrides it.
func (r *Registry) Register(p Provider, model string, client ModelClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[p] = registration{client: client, model: model}
}

// Resolve returns the client and default model for p.
func (r *Registry) Resolve(p Provider) (ModelClient, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[p]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrProviderNotConfigured, p)
	}
	return e.client, e.model, nil
}

// Providers lists what is registered.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.entries))
	for p := range r.entries {
		out = append(out, p)
	}
	return out
}

// Close releases clients that hold resources.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, e := range r.entries {
		if c, ok := e.client.(Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// NewRegistryFromConfig registers every provider that has an API key.
func NewRegistryFromConfig(ctx context.Context, cfg config.AIConfig) (*Registry, error) {
	r := NewRegistry()
	if cfg.OpenAI.APIKey != "" {
		r.Register(ProviderOpenAI, cfg.OpenAI.Model, NewOpenAIClient(cfg.OpenAI, true))
	}
	if cfg.Groq.APIKey != "" {
		r.Register(ProviderGroq, cfg.Groq.Model, NewOpenAIClient(cfg.Groq, false))
	}
	if cfg.Anthropic.APIKey != "" {
		r.Register(ProviderAnthropic, cfg.Anthropic.Model, NewAnthropicClient(cfg.Anthropic))
	}
	if cfg.Gemini.APIKey != "" {
		gemini, err := NewGeminiClient(ctx, cfg.Gemini)
		if err != nil {
			return nil, err
		}
		r.Register(ProviderGemini, cfg.Gemini.Model, gemini)
	}
	if len(r.entries) == 0 {
		return nil, fmt.Errorf("no model provider configured")
	}
	return r, nil
}
