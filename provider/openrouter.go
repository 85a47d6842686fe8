package provider

import (
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3/option"
)

// OpenRouterProvider connects to OpenRouter's OpenAI-compatible API.
type OpenRouterProvider struct {
	*OpenAIProvider
}

// NewOpenRouterProvider creates an OpenRouter provider. APIKey is required.
func NewOpenRouterProvider(cfg Config) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenRouter API key is required")
	}

	p, err := newOpenAICompatible("OpenRouter", cfg,
		"https://openrouter.ai/api/v1",
		"meta-llama/llama-3.2-90b-instruct",
		option.WithHeader("X-Title", "notepilot"),
	)
	if err != nil {
		return nil, err
	}
	return &OpenRouterProvider{OpenAIProvider: p}, nil
}

// DisplayName strips the vendor prefix from the model name.
// "qwen/qwen3-coder:free" → "qwen3-coder:free"
func (p *OpenRouterProvider) DisplayName() string {
	return stripProviderPrefix(p.GetModel())
}

// stripProviderPrefix removes vendor prefixes from OpenRouter model names.
// "meta-llama/llama-3.2-90b-instruct" → "llama-3.2-90b-instruct"
func stripProviderPrefix(modelName string) string {
	if idx := strings.Index(modelName, "/"); idx != -1 {
		return modelName[idx+1:]
	}
	return modelName
}
