package model

import (
	"context"
	"errors"
)

// Completer is the model-request primitive: send an ordered message list,
// receive the full completion text.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// ModelInfo describes a model offered by a provider.
type ModelInfo struct {
	Name     string
	Size     int64
	Provider string
}

// Provider abstracts LLM backends (Ollama, OpenAI-compatible, Anthropic, Gemini).
//
// This interface lives in the model package so provider implementations can
// import model without model importing them.
type Provider interface {
	Completer

	// ListModels returns available models for this provider.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// GetModel returns the currently selected model name.
	GetModel() string

	// SetModel changes the active model.
	SetModel(model string)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}

// ErrEmptyCompletion is returned by providers when the model produced no text.
var ErrEmptyCompletion = errors.New("model returned an empty completion")
