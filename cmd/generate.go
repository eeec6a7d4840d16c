package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/curation-cli/internal/generate"
)

var (
	generateDataset    string
	generateSegmentIDs []string
	generateMaxItems   int
	generateBatchSize  int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run a generation pass over a dataset's segments",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		gen := generate.New(st, cfg, nil)
		res, err := gen.Run(cmd.Context(), generate.Request{
			DatasetID:  generateDataset,
			SegmentIDs: generateSegmentIDs,
			MaxItems:   generateMaxItems,
			BatchSize:  generateBatchSize,
		})
		if err != nil {
			return err
		}

		zap.L().Info("generation complete",
			zap.String("dataset_id", generateDataset),
			zap.Int("generated", res.Generated),
			zap.Int("failed", res.Failed),
		)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateDataset, "dataset", "", "dataset ID (required)")
	generateCmd.Flags().StringSliceVar(&generateSegmentIDs, "segments", nil, "explicit segment IDs (default: select by dataset filters)")
	generateCmd.Flags().IntVar(&generateMaxItems, "max-items", 0, "cap on items to generate (0 = no cap)")
	generateCmd.Flags().IntVar(&generateBatchSize, "batch-size", 0, "segments per batch (default from config)")
	generateCmd.MarkFlagRequired("dataset")
	rootCmd.AddCommand(generateCmd)
}
