package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"notepilot/config"
	"notepilot/model"
	"notepilot/ollama"
)

// OllamaProvider wraps ollama.Client to implement model.Provider.
type OllamaProvider struct {
	client  *ollama.Client
	timeout time.Duration
}

// NewOllamaProvider creates a provider for a local Ollama server. Empty
// BaseURL and Model fall back to the client defaults.
func NewOllamaProvider(cfg Config) (*OllamaProvider, error) {
	client, err := ollama.NewClient(cfg.BaseURL, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}

	return &OllamaProvider{
		client:  client,
		timeout: cfg.Timeout,
	}, nil
}

// Complete streams the chat response and returns the accumulated text.
func (p *OllamaProvider) Complete(ctx context.Context, messages []model.Message) (string, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	var sb strings.Builder
	chunks := 0
	err := p.client.Chat(ctx, ConvertToOllamaMessages(messages), func(chunk string) error {
		chunks++
		sb.WriteString(chunk)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("Ollama chat error: %w", err)
	}

	config.Log.Debugf("[Ollama] %d chunks, %d chars", chunks, sb.Len())
	return sb.String(), nil
}

func (p *OllamaProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return p.client.ListModels(ctx)
}

func (p *OllamaProvider) GetModel() string {
	return p.client.GetModel()
}

func (p *OllamaProvider) SetModel(model string) {
	p.client.SetModel(model)
}

func (p *OllamaProvider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}
