package provider

import (
	"context"
	"fmt"
	"sort"

	"notepilot/config"
	"notepilot/model"
)

// ProbeResult is the outcome of checking one provider.
type ProbeResult struct {
	ProviderID string
	Models     []model.ModelInfo
	Err        error
}

// Probe validates a provider's settings by pinging it and listing its
// models, for `notepilot models`.
func Probe(ctx context.Context, providerID string, cfg Config) ProbeResult {
	cfg.Type = MapProviderIDToType(providerID)

	p, err := NewProvider(cfg)
	if err != nil {
		return ProbeResult{ProviderID: providerID, Err: fmt.Errorf("failed to create provider: %w", err)}
	}

	if err := p.Ping(ctx); err != nil {
		return ProbeResult{ProviderID: providerID, Err: fmt.Errorf("connection failed: %w", err)}
	}

	models, err := p.ListModels(ctx)
	if err != nil {
		return ProbeResult{ProviderID: providerID, Err: err}
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })

	config.Log.Debugf("[Provider] fetched %d models from provider %s", len(models), providerID)
	return ProbeResult{ProviderID: providerID, Models: models}
}
