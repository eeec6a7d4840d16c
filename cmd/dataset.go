package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/curation-cli/internal/model"
	"github.com/sells-group/curation-cli/internal/provider"
	"github.com/sells-group/curation-cli/internal/store"
)

var (
	datasetName        string
	datasetDomain      string
	datasetDescription string
	datasetProvider    string
	datasetUseCase     string
	datasetTemplate    string
	datasetModel       string
	datasetSegmentType string
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Manage datasets",
}

var datasetCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a draft dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Validate the vendor name up front rather than at generation time.
		if _, err := provider.New(datasetProvider, cfg); err != nil {
			return err
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		now := time.Now().UTC()
		ds := model.Dataset{
			ID:                uuid.NewString(),
			DomainID:          datasetDomain,
			TemplateID:        datasetTemplate,
			UseCase:           datasetUseCase,
			Name:              datasetName,
			Description:       datasetDescription,
			Provider:          datasetProvider,
			TargetModelFamily: datasetModel,
			Status:            model.DatasetStatusDraft,
			Version:           1,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if datasetSegmentType != "" {
			ds.SegmentFilter = model.Metadata{"segment_type": datasetSegmentType}
		}

		created, err := st.CreateDataset(cmd.Context(), ds)
		if err != nil {
			return err
		}
		zap.L().Info("dataset created",
			zap.String("dataset_id", created.ID),
			zap.String("name", created.Name),
			zap.String("provider", created.Provider),
		)
		return nil
	},
}

var datasetShowCmd = &cobra.Command{
	Use:   "show <dataset-id>",
	Short: "Show a dataset and its counters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		ds, err := st.GetDataset(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		items, err := st.ListItems(cmd.Context(), store.ItemFilter{DatasetID: ds.ID})
		if err != nil {
			return err
		}

		zap.L().Info("dataset",
			zap.String("id", ds.ID),
			zap.String("name", ds.Name),
			zap.String("status", string(ds.Status)),
			zap.Int("total", ds.TotalItems),
			zap.Int("approved", ds.ApprovedItems),
			zap.Int("rejected", ds.RejectedItems),
			zap.Int("pending", ds.PendingItems),
			zap.Int("item_rows", len(items)),
			zap.Bool("counters_consistent", ds.CountersConsistent()),
		)
		return nil
	},
}

func init() {
	datasetCreateCmd.Flags().StringVar(&datasetName, "name", "", "dataset name (required)")
	datasetCreateCmd.Flags().StringVar(&datasetDomain, "domain", "", "owning domain ID (required)")
	datasetCreateCmd.Flags().StringVar(&datasetDescription, "description", "", "dataset description")
	datasetCreateCmd.Flags().StringVar(&datasetProvider, "provider", "openai", "LLM vendor for generation")
	datasetCreateCmd.Flags().StringVar(&datasetUseCase, "use-case", "", "restrict segment selection to a use case")
	datasetCreateCmd.Flags().StringVar(&datasetTemplate, "template", "", "generation template ID")
	datasetCreateCmd.Flags().StringVar(&datasetModel, "model", "", "target model identifier (default: provider default)")
	datasetCreateCmd.Flags().StringVar(&datasetSegmentType, "segment-type", "", "restrict segment selection to a segment type")
	datasetCreateCmd.MarkFlagRequired("name")
	datasetCreateCmd.MarkFlagRequired("domain")

	datasetCmd.AddCommand(datasetCreateCmd, datasetShowCmd)
	rootCmd.AddCommand(datasetCmd)
}
