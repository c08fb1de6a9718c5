package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"phoneadvisor/internal/config"
)

// GeminiClient generates grounded answers with Google Gemini
type GeminiClient struct {
	client *genai.Client
	model  string
	log    *zap.Logger
}

// NewGeminiClient creates a Gemini client; the API key is required
func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig, log *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	log.Info("gemini client ready", zap.String("model", model))

	return &GeminiClient{client: client, model: model, log: log}, nil
}

// IsEnabled returns whether the client is configured and ready
func (g *GeminiClient) IsEnabled() bool {
	return g != nil && g.client != nil
}

// Name identifies the provider in logs
func (g *GeminiClient) Name() string {
	return "gemini"
}

func (g *GeminiClient) generateConfig(req GenerationRequest, thoughts bool) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.2),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if thoughts {
		cfg.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
	}
	return cfg
}

// Generate runs one JSON-mode completion
func (g *GeminiClient) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	if !g.IsEnabled() {
		return "", ErrModelDisabled
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), g.generateConfig(req, false))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini returned an empty response")
	}
	return text, nil
}

// GenerateStream streams a completion, forwarding thought parts to onThinking
func (g *GeminiClient) GenerateStream(ctx context.Context, req GenerationRequest, onThinking func(string) error) (string, error) {
	if !g.IsEnabled() {
		return "", ErrModelDisabled
	}

	var content strings.Builder
	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, genai.Text(req.Prompt), g.generateConfig(req, true)) {
		if err != nil {
			return "", fmt.Errorf("gemini stream: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			if part == nil || part.Text == "" {
				continue
			}
			if part.Thought {
				if onThinking != nil {
					if err := onThinking(part.Text); err != nil {
						return "", err
					}
				}
				continue
			}
			content.WriteString(part.Text)
		}
	}

	g.log.Debug("gemini stream finished", zap.Int("content_len", content.Len()))
	return content.String(), nil
}
