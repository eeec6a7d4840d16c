package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/curation-cli/internal/config"
	"github.com/sells-group/curation-cli/internal/fault"
	"github.com/sells-group/curation-cli/pkg/openai"
)

func factoryConfig() *config.Config {
	return &config.Config{
		OpenAI:    config.OpenAIConfig{Key: "k", BaseURL: "https://api.openai.com/v1", Model: "gpt-4-turbo-preview"},
		Anthropic: config.AnthropicConfig{Key: "k", Model: "claude-sonnet-4-5-20250929"},
		Gemini:    config.GeminiConfig{Key: "k", BaseURL: "https://example.test/v1beta", Model: "gemini-pro"},
		Together:  config.TogetherConfig{Key: "k", BaseURL: "https://api.together.xyz/v1", Model: "meta-llama/Llama-3-8b-chat-hf"},
	}
}

func TestNew_ResolvesAllSupportedVendors(t *testing.T) {
	cfg := factoryConfig()
	for _, name := range Supported() {
		p, err := New(name, cfg)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
	}
}

func TestNew_CaseInsensitive(t *testing.T) {
	p, err := New("OpenAI", factoryConfig())
	require.NoError(t, err)
	assert.Equal(t, NameOpenAI, p.Name())
}

func TestNew_UnknownVendor(t *testing.T) {
	_, err := New("mistral", factoryConfig())
	require.Error(t, err)
	assert.True(t, fault.IsExternal(err))
	assert.Contains(t, err.Error(), `unknown provider "mistral"`)
	assert.Contains(t, err.Error(), "openai, anthropic, gemini, together")
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n{\"a\":1}\n```\n ", `{"a":1}`},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.in))
		})
	}
}

func TestParseObject(t *testing.T) {
	obj, err := parseObject("stub", "```json\n{\"instruction\": \"do the thing\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "do the thing", obj["instruction"])
}

func TestParseObject_EmptyOutput(t *testing.T) {
	obj, err := parseObject("stub", "```json\n```")
	require.NoError(t, err)
	assert.Empty(t, obj)
}

func TestParseObject_MalformedOutput(t *testing.T) {
	_, err := parseObject("stub", "the model rambled instead of emitting JSON")
	require.Error(t, err)
	assert.True(t, fault.IsProcessing(err))
}

// fakeChat satisfies openai.Client for exercising the adapters without HTTP.
type fakeChat struct {
	last    openai.ChatCompletionRequest
	content string
	err     error
}

func (f *fakeChat) ChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &openai.ChatCompletionResponse{
		Choices: []openai.Choice{{Message: openai.Message{Role: "assistant", Content: f.content}}},
	}, nil
}

func TestOpenAI_GenerateJSONUsesNativeFormat(t *testing.T) {
	fake := &fakeChat{content: `{"instruction":"x"}`}
	p := NewOpenAI(fake, "gpt-4-turbo-preview")

	obj, err := p.GenerateJSON(context.Background(), Request{
		SystemPrompt: "sys",
		UserPrompt:   "user",
		Temperature:  0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, "x", obj["instruction"])

	require.NotNil(t, fake.last.ResponseFormat)
	assert.Equal(t, "json_object", fake.last.ResponseFormat.Type)
	assert.Equal(t, "gpt-4-turbo-preview", fake.last.Model)
	require.Len(t, fake.last.Messages, 2)
	assert.Equal(t, "sys", fake.last.Messages[0].Content)
}

func TestOpenAI_ModelOverride(t *testing.T) {
	fake := &fakeChat{content: "hello"}
	p := NewOpenAI(fake, "default-model")

	_, err := p.Generate(context.Background(), Request{Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", fake.last.Model)
}

func TestTogether_GenerateJSONPromptSteered(t *testing.T) {
	fake := &fakeChat{content: "```json\n{\"ideal_response\":\"fine\"}\n```"}
	p := NewTogether(fake, "meta-llama/Llama-3-8b-chat-hf")

	obj, err := p.GenerateJSON(context.Background(), Request{UserPrompt: "make one"})
	require.NoError(t, err)
	assert.Equal(t, "fine", obj["ideal_response"])

	assert.Nil(t, fake.last.ResponseFormat)
	require.Len(t, fake.last.Messages, 2)
	assert.Contains(t, fake.last.Messages[1].Content, "Respond with valid JSON only.")
}

func TestOpenAI_VendorErrorIsExternal(t *testing.T) {
	fake := &fakeChat{err: assert.AnError}
	p := NewOpenAI(fake, "m")

	_, err := p.Generate(context.Background(), Request{UserPrompt: "x"})
	require.Error(t, err)
	assert.True(t, fault.IsExternal(err))
}
