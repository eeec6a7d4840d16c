package provider

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/curation-cli/internal/fault"
	"github.com/sells-group/curation-cli/pkg/anthropic"
)

// defaultAnthropicMaxTokens is used when the caller does not cap output.
// The Messages API requires max_tokens on every request.
const defaultAnthropicMaxTokens = 2000

// anthropicProvider generates through the Anthropic Messages API. The system
// prompt is native; structured output is prompt-steered and fence-stripped.
type anthropicProvider struct {
	client       anthropic.Client
	defaultModel string
}

// NewAnthropic creates the Anthropic provider.
func NewAnthropic(client anthropic.Client, defaultModel string) Provider {
	return &anthropicProvider{client: client, defaultModel: defaultModel}
}

func (p *anthropicProvider) Name() string { return NameAnthropic }

func (p *anthropicProvider) Generate(ctx context.Context, req Request) (string, error) {
	return p.generate(ctx, req, req.UserPrompt)
}

func (p *anthropicProvider) GenerateJSON(ctx context.Context, req Request) (map[string]any, error) {
	raw, err := p.generate(ctx, req, req.UserPrompt+jsonInstruction)
	if err != nil {
		return nil, err
	}
	return parseObject("anthropic", raw)
}

func (p *anthropicProvider) generate(ctx context.Context, req Request, prompt string) (string, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      req.SystemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &req.Temperature,
	})
	if err != nil {
		zap.L().Error("anthropic generation failed",
			zap.String("model", model),
			zap.Error(err),
		)
		return "", fault.External("anthropic", err)
	}
	return resp.Text, nil
}
