package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type OllamaConfig struct {
	Host string `toml:"host"`
}

type CopilotConfig struct {
	Persona        string `toml:"persona,omitempty"`
	MaxToolRounds  int    `toml:"max_tool_rounds"`
	MemorySize     int    `toml:"memory_size"`
	CacheCapacity  int    `toml:"cache_capacity"`
	RequestTimeout string `toml:"request_timeout"`
}

type UserConfig struct {
	Provider    string        `toml:"provider"`
	Model       string        `toml:"model"`
	BaseURL     string        `toml:"base_url,omitempty"`
	MetricsAddr string        `toml:"metrics_addr,omitempty"`
	Ollama      OllamaConfig  `toml:"ollama"`
	Copilot     CopilotConfig `toml:"copilot"`
}

// EnvOverrides holds NOTEPILOT_* variables. Empty values leave the file
// configuration untouched.
type EnvOverrides struct {
	Provider        string `env:"PROVIDER"`
	Model           string `env:"MODEL"`
	OllamaHost      string `env:"OLLAMA_HOST"`
	DataDir         string `env:"DATA_DIR"`
	BaseURL         string `env:"BASE_URL"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
}

type Config struct {
	DataDirectory  string
	Provider       string
	Model          string
	OllamaHost     string
	BaseURL        string
	MetricsAddr    string
	Persona        string
	MaxToolRounds  int
	MemorySize     int
	CacheCapacity  int
	RequestTimeout time.Duration

	OpenAIAPIKey    string
	AnthropicAPIKey string
	GeminiAPIKey    string
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// APIKey returns the key for the configured cloud provider, if any.
func (c *Config) APIKey() string {
	switch c.Provider {
	case ProviderOpenAI, ProviderOpenRouter:
		return c.OpenAIAPIKey
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	case ProviderGemini:
		return c.GeminiAPIKey
	default:
		return ""
	}
}

// ReadEnv decodes NOTEPILOT_* variables.
func ReadEnv() (EnvOverrides, error) {
	var overrides EnvOverrides
	if err := env.ParseWithOptions(&overrides, env.Options{Prefix: EnvPrefix}); err != nil {
		return overrides, fmt.Errorf("failed to parse environment: %w", err)
	}
	return overrides, nil
}

func (c *Config) applyUserConfig(u *UserConfig) {
	if u.Provider != "" {
		c.Provider = u.Provider
	}
	if u.Model != "" {
		c.Model = u.Model
	}
	if u.BaseURL != "" {
		c.BaseURL = u.BaseURL
	}
	if u.Ollama.Host != "" {
		c.OllamaHost = u.Ollama.Host
	}
	c.MetricsAddr = u.MetricsAddr
	c.Persona = u.Copilot.Persona
	if u.Copilot.MaxToolRounds > 0 {
		c.MaxToolRounds = u.Copilot.MaxToolRounds
	}
	if u.Copilot.MemorySize > 0 {
		c.MemorySize = u.Copilot.MemorySize
	}
	if u.Copilot.CacheCapacity > 0 {
		c.CacheCapacity = u.Copilot.CacheCapacity
	}
	if u.Copilot.RequestTimeout != "" {
		if d, err := time.ParseDuration(u.Copilot.RequestTimeout); err == nil && d > 0 {
			c.RequestTimeout = d
		} else {
			Log.Warnf("[Config] ignoring invalid request_timeout %q", u.Copilot.RequestTimeout)
		}
	}
}

func (c *Config) applyEnvOverrides(e EnvOverrides) {
	if e.Provider != "" {
		c.Provider = e.Provider
	}
	if e.Model != "" {
		c.Model = e.Model
	}
	if e.OllamaHost != "" {
		c.OllamaHost = e.OllamaHost
	}
	if e.DataDir != "" {
		c.DataDirectory = e.DataDir
	}
	if e.BaseURL != "" {
		c.BaseURL = e.BaseURL
	}
	c.OpenAIAPIKey = e.OpenAIAPIKey
	c.AnthropicAPIKey = e.AnthropicAPIKey
	c.GeminiAPIKey = e.GeminiAPIKey
}

// Load resolves configuration from settings.toml, the user config.toml in
// the data directory and NOTEPILOT_* environment variables, in that order.
func Load() (*Config, error) {
	overrides, err := ReadEnv()
	if err != nil {
		return nil, err
	}

	cfg := Defaults()

	systemCfg, err := LoadSystemConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}
	cfg.DataDirectory = systemCfg.DataDirectory
	if overrides.DataDir != "" {
		cfg.DataDirectory = overrides.DataDir
	}

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Ensure data directory has correct permissions (fix if needed)
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	cfg.applyUserConfig(userCfg)
	cfg.applyEnvOverrides(overrides)

	if err := ValidateProvider(cfg.Provider); err != nil {
		return nil, err
	}

	return cfg, nil
}
