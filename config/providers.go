package config

import (
	"fmt"
)

const (
	ProviderOllama     = "ollama"
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
	ProviderGemini     = "gemini"
)

// SupportedProviders lists valid values for the provider setting.
var SupportedProviders = []string{
	ProviderOllama,
	ProviderOpenAI,
	ProviderOpenRouter,
	ProviderAnthropic,
	ProviderGemini,
}

func ValidateProvider(providerID string) error {
	for _, p := range SupportedProviders {
		if p == providerID {
			return nil
		}
	}
	return fmt.Errorf("unknown provider: %s", providerID)
}

// ProviderDisplayName returns the display name for a provider
func ProviderDisplayName(providerID string) string {
	switch providerID {
	case ProviderOllama:
		return "Ollama"
	case ProviderOpenRouter:
		return "OpenRouter"
	case ProviderAnthropic:
		return "Anthropic"
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderGemini:
		return "Gemini"
	default:
		return providerID
	}
}

// ProviderDefaultBaseURL returns the default base URL for a provider
func ProviderDefaultBaseURL(providerID string) string {
	switch providerID {
	case ProviderOllama:
		return DefaultOllamaHost
	case ProviderOpenRouter:
		return "https://openrouter.ai/api/v1"
	case ProviderAnthropic:
		return "https://api.anthropic.com"
	case ProviderOpenAI:
		return "https://api.openai.com/v1"
	default:
		return ""
	}
}

// ProviderAPIKeyEnv names the environment variable holding a provider's key.
func ProviderAPIKeyEnv(providerID string) string {
	switch providerID {
	case ProviderOpenAI, ProviderOpenRouter:
		return EnvPrefix + "OPENAI_API_KEY"
	case ProviderAnthropic:
		return EnvPrefix + "ANTHROPIC_API_KEY"
	case ProviderGemini:
		return EnvPrefix + "GEMINI_API_KEY"
	default:
		return ""
	}
}
