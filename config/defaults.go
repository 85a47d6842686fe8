package config

import "time"

const (
	DefaultProvider       = ProviderOllama
	DefaultModel          = "llama3.1:latest"
	DefaultOllamaHost     = "http://localhost:11434"
	DefaultMaxToolRounds  = 5
	DefaultMemorySize     = 20
	DefaultCacheCapacity  = 500
	DefaultRequestTimeout = 2 * time.Minute
)

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/notepilot",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Provider: DefaultProvider,
		Model:    DefaultModel,
		Ollama: OllamaConfig{
			Host: DefaultOllamaHost,
		},
		Copilot: CopilotConfig{
			MaxToolRounds:  DefaultMaxToolRounds,
			MemorySize:     DefaultMemorySize,
			CacheCapacity:  DefaultCacheCapacity,
			RequestTimeout: DefaultRequestTimeout.String(),
		},
	}
}

// Defaults returns a Config populated with built-in defaults only.
func Defaults() *Config {
	return &Config{
		DataDirectory:  DefaultSystemConfig().DataDirectory,
		Provider:       DefaultProvider,
		Model:          DefaultModel,
		OllamaHost:     DefaultOllamaHost,
		MaxToolRounds:  DefaultMaxToolRounds,
		MemorySize:     DefaultMemorySize,
		CacheCapacity:  DefaultCacheCapacity,
		RequestTimeout: DefaultRequestTimeout,
	}
}

func GenerateSystemConfigTemplate() string {
	return `# notepilot System Configuration
# Location: ~/.config/notepilot/settings.toml
# This file uses TOML format: https://toml.io

# Directory where notes, the chat transcript and user config are stored
data_directory = "~/.local/share/notepilot"
`
}

func GenerateUserConfigTemplate() string {
	return `# notepilot User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

# Model backend: ollama, openai, openrouter, anthropic or gemini
# API keys are read from NOTEPILOT_<PROVIDER>_API_KEY
provider = "ollama"

# Model used for chat and slash commands
model = "llama3.1:latest"

# Override the provider endpoint (optional)
# base_url = "https://openrouter.ai/api/v1"

# Serve Prometheus metrics on this address (optional)
# metrics_addr = "127.0.0.1:9464"

[ollama]
# Ollama server URL
host = "http://localhost:11434"

[copilot]
# Extra instructions prepended to the system prompt (optional)
persona = ""

# Model requests per chat turn before giving up on tool calls
max_tool_rounds = 5

# Conversation turns remembered across messages
memory_size = 20

# Extracted note texts kept in memory
cache_capacity = 500

# Timeout for a single model request
request_timeout = "2m0s"
`
}
