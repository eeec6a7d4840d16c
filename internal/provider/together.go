package provider

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/curation-cli/internal/fault"
	"github.com/sells-group/curation-cli/pkg/openai"
)

// togetherProvider generates through Together AI's OpenAI-compatible chat
// completions endpoint. Together has no native JSON mode, so structured
// output is prompt-steered and fence-stripped.
type togetherProvider struct {
	client       openai.Client
	defaultModel string
}

// NewTogether creates the Together AI provider.
func NewTogether(client openai.Client, defaultModel string) Provider {
	return &togetherProvider{client: client, defaultModel: defaultModel}
}

func (p *togetherProvider) Name() string { return NameTogether }

func (p *togetherProvider) Generate(ctx context.Context, req Request) (string, error) {
	return p.chat(ctx, req, req.UserPrompt)
}

func (p *togetherProvider) GenerateJSON(ctx context.Context, req Request) (map[string]any, error) {
	raw, err := p.chat(ctx, req, req.UserPrompt+jsonInstruction)
	if err != nil {
		return nil, err
	}
	return parseObject("together", raw)
}

func (p *togetherProvider) chat(ctx context.Context, req Request, userPrompt string) (string, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	ccReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.Message{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: &req.Temperature,
	}
	if req.MaxTokens > 0 {
		ccReq.MaxTokens = &req.MaxTokens
	}

	resp, err := p.client.ChatCompletion(ctx, ccReq)
	if err != nil {
		zap.L().Error("together generation failed",
			zap.String("model", model),
			zap.Error(err),
		)
		return "", fault.External("together", err)
	}
	return firstChoice(resp), nil
}
