package provider

import (
	"fmt"

	"notepilot/config"
	"notepilot/model"
)

// NewProvider creates a provider based on configuration.
//
// Returns an error if the provider type is unknown or the provider-specific
// constructor fails (missing API key, invalid URL).
func NewProvider(cfg Config) (model.Provider, error) {
	switch cfg.Type {
	case ProviderTypeOllama:
		return NewOllamaProvider(cfg)
	case ProviderTypeOpenRouter:
		return NewOpenRouterProvider(cfg)
	case ProviderTypeOpenAI:
		return NewOpenAIProvider(cfg)
	case ProviderTypeAnthropic:
		return NewAnthropicProvider(cfg)
	case ProviderTypeGemini:
		return NewGeminiProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// MapProviderIDToType converts a config provider ID to a ProviderType.
// Unknown IDs pass through unchanged and make NewProvider fail.
func MapProviderIDToType(id string) ProviderType {
	switch id {
	case config.ProviderOllama:
		return ProviderTypeOllama
	case config.ProviderOpenRouter:
		return ProviderTypeOpenRouter
	case config.ProviderOpenAI:
		return ProviderTypeOpenAI
	case config.ProviderAnthropic:
		return ProviderTypeAnthropic
	case config.ProviderGemini:
		return ProviderTypeGemini
	default:
		return ProviderType(id)
	}
}

// ConfigFrom derives the provider Config from application settings.
func ConfigFrom(cfg *config.Config) Config {
	baseURL := cfg.BaseURL
	if cfg.Provider == config.ProviderOllama {
		baseURL = cfg.OllamaHost
	}
	return Config{
		Type:    MapProviderIDToType(cfg.Provider),
		BaseURL: baseURL,
		Model:   cfg.Model,
		APIKey:  cfg.APIKey(),
		Timeout: cfg.RequestTimeout,
	}
}
