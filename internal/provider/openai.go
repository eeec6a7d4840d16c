package provider

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/curation-cli/internal/fault"
	"github.com/sells-group/curation-cli/pkg/openai"
)

// openAIProvider generates through the OpenAI chat completions API, using
// the native json_object response format for structured output.
type openAIProvider struct {
	client       openai.Client
	defaultModel string
}

// NewOpenAI creates the OpenAI provider.
func NewOpenAI(client openai.Client, defaultModel string) Provider {
	return &openAIProvider{client: client, defaultModel: defaultModel}
}

func (p *openAIProvider) Name() string { return NameOpenAI }

func (p *openAIProvider) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := p.chat(ctx, req, nil)
	if err != nil {
		return "", err
	}
	return firstChoice(resp), nil
}

func (p *openAIProvider) GenerateJSON(ctx context.Context, req Request) (map[string]any, error) {
	resp, err := p.chat(ctx, req, &openai.ResponseFormat{Type: "json_object"})
	if err != nil {
		return nil, err
	}
	return parseObject("openai", firstChoice(resp))
}

func (p *openAIProvider) chat(ctx context.Context, req Request, format *openai.ResponseFormat) (*openai.ChatCompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	ccReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.Message{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature:    &req.Temperature,
		ResponseFormat: format,
	}
	if req.MaxTokens > 0 {
		ccReq.MaxTokens = &req.MaxTokens
	}

	resp, err := p.client.ChatCompletion(ctx, ccReq)
	if err != nil {
		zap.L().Error("openai generation failed",
			zap.String("model", model),
			zap.Error(err),
		)
		return nil, fault.External("openai", err)
	}
	zap.L().Debug("openai generation completed",
		zap.String("model", model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return resp, nil
}

func firstChoice(resp *openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Message.Content
}
