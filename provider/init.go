package provider

import (
	"context"
	"fmt"

	"notepilot/config"
	"notepilot/model"
)

// Initialize creates the provider selected in cfg.
//
// A provider that cannot be reached is still returned: the first Complete
// call will surface the error in the chat, which keeps offline startup
// working. Construction errors (unknown provider, missing API key) fail.
func Initialize(ctx context.Context, cfg *config.Config) (model.Provider, error) {
	pcfg := ConfigFrom(cfg)

	p, err := NewProvider(pcfg)
	if err != nil {
		if key := config.ProviderAPIKeyEnv(cfg.Provider); key != "" && cfg.APIKey() == "" {
			return nil, fmt.Errorf("failed to initialize %s provider (set %s): %w", config.ProviderDisplayName(cfg.Provider), key, err)
		}
		return nil, fmt.Errorf("failed to initialize %s provider: %w", config.ProviderDisplayName(cfg.Provider), err)
	}

	if err := p.Ping(ctx); err != nil {
		config.Log.Warnf("[Provider] %s is not reachable: %v", cfg.Provider, err)
	} else {
		config.Log.Debugf("[Provider] initialized %s (model %s)", cfg.Provider, p.GetModel())
	}

	return p, nil
}
