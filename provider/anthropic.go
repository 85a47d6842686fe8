package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"notepilot/config"
	"notepilot/model"
)

const anthropicMaxTokens = 4096

// AnthropicProvider implements model.Provider with the official Anthropic SDK.
type AnthropicProvider struct {
	client  anthropic.Client
	baseURL string
	timeout time.Duration

	mu    sync.RWMutex
	model anthropic.Model
}

// NewAnthropicProvider creates an Anthropic provider. APIKey is required.
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	modelName := anthropic.Model(cfg.Model)
	if cfg.Model == "" {
		modelName = anthropic.ModelClaudeSonnet4_5_20250929
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(
			option.WithBaseURL(baseURL),
			option.WithAPIKey(cfg.APIKey),
		),
		baseURL: baseURL,
		timeout: cfg.Timeout,
		model:   modelName,
	}, nil
}

// Complete streams a message and returns the concatenated text blocks.
func (p *AnthropicProvider) Complete(ctx context.Context, messages []model.Message) (string, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	turns, system := convertToAnthropicMessages(messages)
	params := anthropic.MessageNewParams{
		Model:     p.currentModel(),
		MaxTokens: anthropicMaxTokens,
		Messages:  turns,
	}
	if len(system) > 0 {
		params.System = system
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	msg := anthropic.Message{}
	for stream.Next() {
		if err := msg.Accumulate(stream.Current()); err != nil {
			return "", fmt.Errorf("error accumulating message: %w", err)
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("Anthropic streaming error: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	config.Log.Debugf("[Anthropic] completion: %d chars, stop=%s", sb.Len(), msg.StopReason)
	return sb.String(), nil
}

// ListModels returns a curated list; the catalog changes rarely and listing
// would spend a request on every model picker open.
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	models := []anthropic.Model{
		anthropic.ModelClaudeSonnet4_5_20250929,
		anthropic.ModelClaude3_5Haiku20241022,
		anthropic.ModelClaude_3_Opus_20240229,
		anthropic.ModelClaude_3_Haiku_20240307,
	}

	result := make([]model.ModelInfo, 0, len(models))
	for _, m := range models {
		result = append(result, model.ModelInfo{
			Name:     string(m),
			Provider: config.ProviderAnthropic,
		})
	}
	return result, nil
}

func (p *AnthropicProvider) GetModel() string {
	return string(p.currentModel())
}

func (p *AnthropicProvider) SetModel(model string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.model = anthropic.Model(model)
}

// Ping sends a one-token request; Anthropic has no health endpoint.
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.currentModel(),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return fmt.Errorf("Anthropic ping failed: %w", err)
	}
	return nil
}

func (p *AnthropicProvider) currentModel() anthropic.Model {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model
}
