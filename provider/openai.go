package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"notepilot/config"
	"notepilot/model"
)

// OpenAIProvider implements model.Provider with the official OpenAI SDK. It
// also backs OpenRouterProvider, which speaks the same protocol.
type OpenAIProvider struct {
	client  openai.Client
	name    string
	baseURL string
	timeout time.Duration

	mu    sync.RWMutex
	model string
}

// NewOpenAIProvider creates an OpenAI provider. APIKey is required.
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	return newOpenAICompatible("OpenAI", cfg, "https://api.openai.com/v1", "gpt-4o-mini")
}

func newOpenAICompatible(name string, cfg Config, defaultURL, defaultModel string, opts ...option.RequestOption) (*OpenAIProvider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultURL
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultModel
	}

	opts = append([]option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(cfg.APIKey),
	}, opts...)

	return &OpenAIProvider{
		client:  openai.NewClient(opts...),
		name:    name,
		baseURL: baseURL,
		timeout: cfg.Timeout,
		model:   modelName,
	}, nil
}

// Complete streams a chat completion and returns the accumulated text.
func (p *OpenAIProvider) Complete(ctx context.Context, messages []model.Message) (string, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Messages: ConvertToOpenAIMessages(messages),
		Model:    openai.ChatModel(p.GetModel()),
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		acc.AddChunk(stream.Current())
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("%s streaming error: %w", p.name, err)
	}

	if len(acc.Choices) == 0 {
		return "", model.ErrEmptyCompletion
	}
	content := acc.Choices[0].Message.Content
	config.Log.Debugf("[%s] completion: %d chars, finish=%s", p.name, len(content), acc.Choices[0].FinishReason)
	return content, nil
}

func (p *OpenAIProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	page, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s models: %w", p.name, err)
	}

	result := make([]model.ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		result = append(result, model.ModelInfo{
			Name:     m.ID,
			Provider: p.providerID(),
		})
	}
	return result, nil
}

func (p *OpenAIProvider) GetModel() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model
}

func (p *OpenAIProvider) SetModel(model string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.model = model
}

// Ping lists models, the cheapest authenticated call.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return fmt.Errorf("%s ping failed: %w", p.name, err)
	}
	return nil
}

func (p *OpenAIProvider) providerID() string {
	if p.name == "OpenRouter" {
		return config.ProviderOpenRouter
	}
	return config.ProviderOpenAI
}
