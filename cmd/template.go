package main

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/curation-cli/internal/generate"
	"github.com/sells-group/curation-cli/internal/model"
)

var (
	templateFile     string
	templateName     string
	templateDomain   string
	templateUseCase  string
	templateSystem   string
	templateUser     string
	templateModel    string
	templateInactive bool
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage generation templates",
}

var templateCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a generation template",
	RunE: func(cmd *cobra.Command, args []string) error {
		var def *model.GenerationTemplate
		if templateFile != "" {
			loaded, err := generate.LoadTemplateFile(templateFile)
			if err != nil {
				return err
			}
			def = loaded
		} else {
			if templateName == "" || templateDomain == "" || templateSystem == "" || templateUser == "" {
				return eris.New("either --file or --name, --domain, --system-prompt and --user-prompt are required")
			}
			if !strings.Contains(templateUser, model.ContentPlaceholder) {
				return eris.Errorf("user prompt template must contain the %s placeholder", model.ContentPlaceholder)
			}
			now := time.Now().UTC()
			def = &model.GenerationTemplate{
				ID:                 uuid.NewString(),
				DomainID:           templateDomain,
				UseCase:            templateUseCase,
				Name:               templateName,
				SystemPrompt:       templateSystem,
				UserPromptTemplate: templateUser,
				TargetModelFamily:  templateModel,
				IsActive:           !templateInactive,
				CreatedAt:          now,
				UpdatedAt:          now,
			}
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		tmpl, err := st.CreateTemplate(cmd.Context(), *def)
		if err != nil {
			return err
		}
		zap.L().Info("template created",
			zap.String("template_id", tmpl.ID),
			zap.String("name", tmpl.Name),
		)
		return nil
	},
}

func init() {
	templateCreateCmd.Flags().StringVar(&templateFile, "file", "", "YAML template definition file")
	templateCreateCmd.Flags().StringVar(&templateName, "name", "", "template name")
	templateCreateCmd.Flags().StringVar(&templateDomain, "domain", "", "owning domain ID")
	templateCreateCmd.Flags().StringVar(&templateUseCase, "use-case", "", "use case tag")
	templateCreateCmd.Flags().StringVar(&templateSystem, "system-prompt", "", "system prompt")
	templateCreateCmd.Flags().StringVar(&templateUser, "user-prompt", "", "user prompt template with {content} placeholder")
	templateCreateCmd.Flags().StringVar(&templateModel, "model", "", "target model identifier")
	templateCreateCmd.Flags().BoolVar(&templateInactive, "inactive", false, "create the template inactive")

	templateCmd.AddCommand(templateCreateCmd)
	rootCmd.AddCommand(templateCmd)
}
