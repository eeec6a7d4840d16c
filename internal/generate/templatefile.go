package generate

import (
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/curation-cli/internal/model"
)

// TemplateFile is the on-disk YAML form of a generation template.
type TemplateFile struct {
	Name              string `yaml:"name"`
	DomainID          string `yaml:"domain_id"`
	UseCase           string `yaml:"use_case"`
	SystemPrompt      string `yaml:"system_prompt"`
	UserPrompt        string `yaml:"user_prompt"`
	TargetModelFamily string `yaml:"target_model_family"`
	Inactive          bool   `yaml:"inactive"`
}

// LoadTemplateFile reads a generation template definition from a YAML file.
func LoadTemplateFile(path string) (*model.GenerationTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "template: read %s", path)
	}

	// The YAML has a top-level "template" key
	var wrapper struct {
		Template TemplateFile `yaml:"template"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrapf(err, "template: parse %s", path)
	}

	tf := wrapper.Template
	switch {
	case tf.Name == "":
		return nil, eris.Errorf("template file %s: name is required", path)
	case tf.DomainID == "":
		return nil, eris.Errorf("template file %s: domain_id is required", path)
	case tf.SystemPrompt == "":
		return nil, eris.Errorf("template file %s: system_prompt is required", path)
	case !strings.Contains(tf.UserPrompt, model.ContentPlaceholder):
		return nil, eris.Errorf("template file %s: user_prompt must contain the %s placeholder", path, model.ContentPlaceholder)
	}

	now := time.Now().UTC()
	return &model.GenerationTemplate{
		ID:                 uuid.NewString(),
		DomainID:           tf.DomainID,
		UseCase:            tf.UseCase,
		Name:               tf.Name,
		SystemPrompt:       tf.SystemPrompt,
		UserPromptTemplate: tf.UserPrompt,
		TargetModelFamily:  tf.TargetModelFamily,
		IsActive:           !tf.Inactive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}
