package provider

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/curation-cli/internal/fault"
	"github.com/sells-group/curation-cli/pkg/gemini"
)

// geminiProvider generates through the Gemini generateContent API. Gemini
// takes the system prompt folded into the user turn; structured output is
// prompt-steered and fence-stripped.
type geminiProvider struct {
	client       gemini.Client
	defaultModel string
}

// NewGemini creates the Gemini provider.
func NewGemini(client gemini.Client, defaultModel string) Provider {
	return &geminiProvider{client: client, defaultModel: defaultModel}
}

func (p *geminiProvider) Name() string { return NameGemini }

func (p *geminiProvider) Generate(ctx context.Context, req Request) (string, error) {
	return p.generate(ctx, req, req.SystemPrompt+"\n\n"+req.UserPrompt)
}

func (p *geminiProvider) GenerateJSON(ctx context.Context, req Request) (map[string]any, error) {
	raw, err := p.generate(ctx, req, req.SystemPrompt+"\n\n"+req.UserPrompt+jsonInstruction)
	if err != nil {
		return nil, err
	}
	return parseObject("gemini", raw)
}

func (p *geminiProvider) generate(ctx context.Context, req Request, prompt string) (string, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	genCfg := &gemini.GenerationConfig{Temperature: &req.Temperature}
	if req.MaxTokens > 0 {
		genCfg.MaxOutputTokens = &req.MaxTokens
	}

	resp, err := p.client.GenerateContent(ctx, model, gemini.GenerateContentRequest{
		Contents: []gemini.Content{
			{Role: "user", Parts: []gemini.Part{{Text: prompt}}},
		},
		GenerationConfig: genCfg,
	})
	if err != nil {
		zap.L().Error("gemini generation failed",
			zap.String("model", model),
			zap.Error(err),
		)
		return "", fault.External("gemini", err)
	}
	return resp.Text(), nil
}
