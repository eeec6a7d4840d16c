// Package provider gives the generation orchestrator a uniform interface
// over the supported LLM vendors. Providers hold no mutable state beyond
// their transport client; retry policy belongs to the caller.
package provider

import (
	"context"
	"strings"

	"github.com/sells-group/curation-cli/internal/config"
	"github.com/sells-group/curation-cli/internal/fault"
	"github.com/sells-group/curation-cli/pkg/anthropic"
	"github.com/sells-group/curation-cli/pkg/gemini"
	"github.com/sells-group/curation-cli/pkg/openai"
)

// Supported vendor identifiers, matched case-insensitively by New.
const (
	NameOpenAI    = "openai"
	NameAnthropic = "anthropic"
	NameGemini    = "gemini"
	NameTogether  = "together"
)

// Supported lists the closed set of vendor identifiers.
func Supported() []string {
	return []string{NameOpenAI, NameAnthropic, NameGemini, NameTogether}
}

// Request carries the inputs of one generation call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Model        string
	Temperature  float64
	MaxTokens    int // 0 means the provider default
}

// Provider is the uniform generation interface. Generate returns raw text;
// GenerateJSON instructs the vendor to emit JSON and returns the parsed
// object. Both fail with an external fault on any transport, auth, or
// vendor-side error; GenerateJSON fails with a processing fault when the
// output cannot be parsed as an object.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
	GenerateJSON(ctx context.Context, req Request) (map[string]any, error)
}

// New resolves a provider by case-insensitive name from the closed set of
// supported vendors.
func New(name string, cfg *config.Config) (Provider, error) {
	switch strings.ToLower(name) {
	case NameOpenAI:
		return NewOpenAI(openai.NewClient(cfg.OpenAI.Key, openai.WithBaseURL(cfg.OpenAI.BaseURL)), cfg.OpenAI.Model), nil
	case NameAnthropic:
		return NewAnthropic(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model), nil
	case NameGemini:
		return NewGemini(gemini.NewClient(cfg.Gemini.Key, gemini.WithBaseURL(cfg.Gemini.BaseURL)), cfg.Gemini.Model), nil
	case NameTogether:
		return NewTogether(openai.NewClient(cfg.Together.Key, openai.WithBaseURL(cfg.Together.BaseURL)), cfg.Together.Model), nil
	default:
		return nil, fault.Externalf("provider factory", "unknown provider %q, supported: %s",
			name, strings.Join(Supported(), ", "))
	}
}
