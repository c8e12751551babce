// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/protocol-engine/pkg/types"
)

// Request carries one generation call to a backend.
type Request struct {
	// System is the system instruction fixing the assistant's role and the
	// required output shape.
	System string

	// User is the task prompt, including the methods text.
	User string

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxOutputTokens caps the response length.
	MaxOutputTokens int

	// JSONResponse requests structured JSON output where the provider
	// supports a response format switch.
	JSONResponse bool
}

// Backend abstracts a generative AI provider so tests can supply a mock.
// Each implementation handles a single request and returns the raw response
// text. Per Strategy pattern.
type Backend interface {
	// Name identifies the backend and model, e.g. "openai/gpt-4o-mini".
	// Recorded on generated protocols for provenance.
	Name() string

	Generate(ctx context.Context, req Request) (string, error)
}

// NewBackend builds the Backend selected by cfg.Provider. An empty provider
// defaults to OpenAI.
func NewBackend(cfg types.SynthesisConfig) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai":
		return NewOpenAIBackend(cfg), nil
	case "gemini":
		return NewGeminiBackend(cfg)
	case "anthropic":
		return NewAnthropicBackend(cfg), nil
	default:
		return nil, fmt.Errorf("unknown synthesis provider %q (want openai, gemini, or anthropic)", cfg.Provider)
	}
}
