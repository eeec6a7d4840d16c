package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/curation-cli/internal/extract"
	"github.com/sells-group/curation-cli/internal/segment"
)

var (
	ingestDomain      string
	ingestDocumentID  string
	ingestUseCase     string
	ingestSegmentType string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Extract and segment a document into generation input",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}

		extractor, err := extract.NewExtractor(cfg.Ingest)
		if err != nil {
			return err
		}
		text, err := extractor.Extract(cmd.Context(), data)
		if err != nil {
			return err
		}

		segments := segment.Paragraphs(text, segment.Source{
			DomainID:    ingestDomain,
			DocumentID:  ingestDocumentID,
			UseCase:     ingestUseCase,
			SegmentType: ingestSegmentType,
		})
		if len(segments) == 0 {
			zap.L().Warn("document produced no segments", zap.String("file", args[0]))
			return nil
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		created, err := st.CreateSegments(cmd.Context(), segments)
		if err != nil {
			return err
		}

		zap.L().Info("document ingested",
			zap.String("file", args[0]),
			zap.String("domain_id", ingestDomain),
			zap.Int("segments", len(created)),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDomain, "domain", "", "owning domain ID (required)")
	ingestCmd.Flags().StringVar(&ingestDocumentID, "document", "", "source document ID")
	ingestCmd.Flags().StringVar(&ingestUseCase, "use-case", "", "use case tag")
	ingestCmd.Flags().StringVar(&ingestSegmentType, "segment-type", "", "segment type tag (default paragraph)")
	ingestCmd.MarkFlagRequired("domain")
	rootCmd.AddCommand(ingestCmd)
}
