package service

import (
	"context"
)

// Generator is the interface for external model providers.
// Implementations return the raw completion text; validation happens in the caller.
type Generator interface {
	// Generate runs one completion (non-streaming)
	Generate(ctx context.Context, req GenerationRequest) (string, error)

	// GenerateStream runs one completion, forwarding reasoning text to onThinking as it arrives
	GenerateStream(ctx context.Context, req GenerationRequest, onThinking func(thinking string) error) (string, error)

	// IsEnabled returns whether the client is configured and ready
	IsEnabled() bool

	// Name identifies the provider in logs
	Name() string
}

// GenerationRequest is a provider-neutral completion request
type GenerationRequest struct {
	System string
	Prompt string
}

// StreamChunk represents a generic streaming response chunk
type StreamChunk struct {
	// Regular content (always present in streaming)
	Content string

	// Thinking/reasoning content (provider-specific, e.g., DeepSeek)
	ThinkingContent string

	// Role (assistant, user, system)
	Role string

	// Whether this is the final chunk
	Done bool
}

// disabledGenerator is used when no provider is configured; every call fails fast
type disabledGenerator struct{}

// NewDisabledGenerator returns a generator that always reports ErrModelDisabled
func NewDisabledGenerator() Generator {
	return disabledGenerator{}
}

func (disabledGenerator) Generate(context.Context, GenerationRequest) (string, error) {
	return "", ErrModelDisabled
}

func (disabledGenerator) GenerateStream(context.Context, GenerationRequest, func(string) error) (string, error) {
	return "", ErrModelDisabled
}

func (disabledGenerator) IsEnabled() bool { return false }

func (disabledGenerator) Name() string { return "none" }

// Ensure providers implement Generator
var (
	_ Generator = (*OpenAIClient)(nil)
	_ Generator = (*GeminiClient)(nil)
)
