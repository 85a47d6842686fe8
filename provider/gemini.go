package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/genai"

	"notepilot/config"
	"notepilot/model"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider implements model.Provider with the Google GenAI SDK.
type GeminiProvider struct {
	client  *genai.Client
	timeout time.Duration

	mu    sync.RWMutex
	model string
}

// NewGeminiProvider creates a Gemini provider. APIKey is required.
func NewGeminiProvider(cfg Config) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	return &GeminiProvider{
		client:  client,
		timeout: cfg.Timeout,
		model:   modelName,
	}, nil
}

// Complete sends one GenerateContent request. System messages become the
// system instruction.
func (p *GeminiProvider) Complete(ctx context.Context, messages []model.Message) (string, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	contents, system := convertToGeminiContents(messages)
	var genCfg *genai.GenerateContentConfig
	if system != nil {
		genCfg = &genai.GenerateContentConfig{SystemInstruction: system}
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.GetModel(), contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("Gemini generate error: %w", err)
	}

	text := resp.Text()
	config.Log.Debugf("[Gemini] completion: %d chars", len(text))
	return text, nil
}

// ListModels returns a curated list of text models.
func (p *GeminiProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	names := []string{
		"gemini-2.5-pro",
		"gemini-2.5-flash",
		"gemini-2.5-flash-lite",
		"gemini-2.0-flash",
	}

	result := make([]model.ModelInfo, 0, len(names))
	for _, name := range names {
		result = append(result, model.ModelInfo{
			Name:     name,
			Provider: config.ProviderGemini,
		})
	}
	return result, nil
}

func (p *GeminiProvider) GetModel() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model
}

func (p *GeminiProvider) SetModel(model string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.model = model
}

// Ping fetches the active model's metadata.
func (p *GeminiProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.Get(ctx, p.GetModel(), nil); err != nil {
		return fmt.Errorf("Gemini ping failed: %w", err)
	}
	return nil
}
