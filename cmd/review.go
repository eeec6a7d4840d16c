package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/curation-cli/internal/review"
)

var (
	reviewDataset       string
	reviewReviewer      string
	reviewJustification string

	editInstruction   string
	editInputText     string
	editIdealResponse string
	editBadResponse   string
	editExplanation   string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review generated dataset items",
}

var reviewPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List items awaiting review",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		items, err := review.NewService(st).ListPending(cmd.Context(), reviewDataset)
		if err != nil {
			return err
		}
		for _, it := range items {
			fmt.Printf("%s  score=%.2f  %s\n", it.ID, it.QualityScore, truncate(it.Instruction, 80))
		}
		fmt.Printf("%d pending\n", len(items))
		return nil
	},
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve <item-id>",
	Short: "Approve a pending item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		item, rev, err := review.NewService(st).Approve(cmd.Context(), args[0], reviewReviewer, reviewJustification)
		if err != nil {
			return err
		}
		zap.L().Info("item approved",
			zap.String("item_id", item.ID),
			zap.String("review_id", rev.ID),
		)
		return nil
	},
}

var reviewRejectCmd = &cobra.Command{
	Use:   "reject <item-id>",
	Short: "Reject a pending item (justification required)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		item, rev, err := review.NewService(st).Reject(cmd.Context(), args[0], reviewReviewer, reviewJustification)
		if err != nil {
			return err
		}
		zap.L().Info("item rejected",
			zap.String("item_id", item.ID),
			zap.String("review_id", rev.ID),
		)
		return nil
	},
}

var reviewEditCmd = &cobra.Command{
	Use:   "edit <item-id>",
	Short: "Edit item content fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		var updates review.FieldUpdates
		flags := cmd.Flags()
		if flags.Changed("instruction") {
			updates.Instruction = &editInstruction
		}
		if flags.Changed("input") {
			updates.InputText = &editInputText
		}
		if flags.Changed("ideal-response") {
			updates.IdealResponse = &editIdealResponse
		}
		if flags.Changed("bad-response") {
			updates.BadResponse = &editBadResponse
		}
		if flags.Changed("explanation") {
			updates.Explanation = &editExplanation
		}

		item, rev, err := review.NewService(st).Edit(cmd.Context(), args[0], reviewReviewer, reviewJustification, updates)
		if err != nil {
			return err
		}
		zap.L().Info("item edited",
			zap.String("item_id", item.ID),
			zap.String("review_id", rev.ID),
		)
		return nil
	},
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func init() {
	reviewCmd.PersistentFlags().StringVar(&reviewReviewer, "reviewer", "", "reviewer identifier")
	reviewCmd.PersistentFlags().StringVar(&reviewJustification, "justification", "", "reason for the action")

	reviewPendingCmd.Flags().StringVar(&reviewDataset, "dataset", "", "filter to one dataset")

	reviewEditCmd.Flags().StringVar(&editInstruction, "instruction", "", "replace the instruction")
	reviewEditCmd.Flags().StringVar(&editInputText, "input", "", "replace the input text")
	reviewEditCmd.Flags().StringVar(&editIdealResponse, "ideal-response", "", "replace the ideal response")
	reviewEditCmd.Flags().StringVar(&editBadResponse, "bad-response", "", "replace the bad response")
	reviewEditCmd.Flags().StringVar(&editExplanation, "explanation", "", "replace the explanation")

	reviewCmd.AddCommand(reviewPendingCmd, reviewApproveCmd, reviewRejectCmd, reviewEditCmd)
	rootCmd.AddCommand(reviewCmd)
}
