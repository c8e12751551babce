// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/pdiddy/protocol-engine/pkg/types"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiBackend generates protocols through the Google Gemini API.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend builds a Gemini backend from cfg. An empty model selects
// the default. Client construction validates the credential configuration,
// so this can fail where the other constructors cannot.
func NewGeminiBackend(cfg types.SynthesisConfig) (*GeminiBackend, error) {
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("new gemini client: %w", err)
	}
	return &GeminiBackend{client: client, model: model}, nil
}

func (b *GeminiBackend) Name() string {
	return "gemini/" + b.model
}

func (b *GeminiBackend) Generate(ctx context.Context, req Request) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens:   int32(req.MaxOutputTokens),
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
	}
	if req.JSONResponse {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(req.User), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("generate content returned no text")
	}
	return text, nil
}
