package model

import (
	"strings"
	"time"
)

// ContentPlaceholder is the token in a user prompt template that is replaced
// with the segment content during generation.
const ContentPlaceholder = "{content}"

// GenerationTemplate is an optional prompt template bound to a domain and
// use case. Read-only during generation.
type GenerationTemplate struct {
	ID                 string    `json:"id"`
	DomainID           string    `json:"domain_id"`
	UseCase            string    `json:"use_case,omitempty"`
	Name               string    `json:"name"`
	SystemPrompt       string    `json:"system_prompt"`
	UserPromptTemplate string    `json:"user_prompt_template"`
	TargetModelFamily  string    `json:"target_model_family,omitempty"`
	Config             Metadata  `json:"config,omitempty"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// RenderUserPrompt substitutes segment content into the template.
func (t *GenerationTemplate) RenderUserPrompt(content string) string {
	return strings.ReplaceAll(t.UserPromptTemplate, ContentPlaceholder, content)
}
