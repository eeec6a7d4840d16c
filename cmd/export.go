package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/curation-cli/internal/blob"
	"github.com/sells-group/curation-cli/internal/export"
)

var (
	exportDataset      string
	exportApprovedOnly bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a dataset to messages-format JSONL",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		storage, err := blob.NewLocal(cfg.Export.Dir)
		if err != nil {
			return err
		}

		exp, err := export.New(st, storage).Run(cmd.Context(), exportDataset, export.Options{
			ApprovedOnly: exportApprovedOnly,
		})
		if err != nil {
			return err
		}

		location, err := storage.Presign(cmd.Context(), exp.BlobKey)
		if err != nil {
			return err
		}
		zap.L().Info("export complete",
			zap.String("dataset_id", exportDataset),
			zap.Int("version", exp.ExportVersion),
			zap.Int("items", exp.ItemCount),
			zap.String("location", location),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDataset, "dataset", "", "dataset ID (required)")
	exportCmd.Flags().BoolVar(&exportApprovedOnly, "approved-only", true, "export only approved items")
	exportCmd.MarkFlagRequired("dataset")
	rootCmd.AddCommand(exportCmd)
}
