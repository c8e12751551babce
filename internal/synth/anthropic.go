// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"context"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pdiddy/protocol-engine/pkg/types"
)

const defaultAnthropicModel = "claude-sonnet-4-5"

// AnthropicBackend generates protocols through the Anthropic messages API.
// Anthropic has no JSON response mode, so the system instruction alone
// enforces the output shape and the parser strips any code fences.
type AnthropicBackend struct {
	client anthropic.Client
	model  string
}

// NewAnthropicBackend builds an Anthropic backend from cfg. An empty model
// selects the default.
func NewAnthropicBackend(cfg types.SynthesisConfig) *AnthropicBackend {
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicBackend{
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  model,
	}
}

func (b *AnthropicBackend) Name() string {
	return "anthropic/" + b.model
}

func (b *AnthropicBackend) Generate(ctx context.Context, req Request) (string, error) {
	msg, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(b.model),
		MaxTokens:   int64(req.MaxOutputTokens),
		Temperature: anthropic.Float(req.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("messages call: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("messages call returned no text content")
	}
	return sb.String(), nil
}
