// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/pdiddy/protocol-engine/pkg/types"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIBackend generates protocols through the OpenAI chat completions API.
type OpenAIBackend struct {
	client openai.Client
	model  string
}

// NewOpenAIBackend builds an OpenAI backend from cfg. An empty model selects
// the default.
func NewOpenAIBackend(cfg types.SynthesisConfig) *OpenAIBackend {
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIBackend{
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  model,
	}
}

func (b *OpenAIBackend) Name() string {
	return "openai/" + b.model
}

func (b *OpenAIBackend) Generate(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(int64(req.MaxOutputTokens)),
	}
	if req.JSONResponse {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
