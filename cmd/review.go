package main

import (
	"github.com/spf13/cobra"

	"github.com/bfsi-insights/curation-cli/internal/pipeline"
)

var (
	reviewReviewer string
	reviewReason   string
	reviewTitle    string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Apply human review decisions to queue items",
}

var approveCmd = &cobra.Command{
	Use:   "approve <item-id>",
	Short: "Approve an enriched item for publishing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		return pipeline.NewReview(s).Approve(cmd.Context(), args[0], reviewReviewer, reviewTitle)
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <item-id>",
	Short: "Reject an enriched item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		return pipeline.NewReview(s).Reject(cmd.Context(), args[0], reviewReviewer, reviewReason)
	},
}

var reenrichCmd = &cobra.Command{
	Use:   "reenrich <item-id>",
	Short: "Send an enriched or approved item back through enrichment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		return pipeline.NewReview(s).Reenrich(cmd.Context(), args[0])
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry <item-id>",
	Short: "Resurrect a rejected item for re-evaluation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		return pipeline.NewReview(s).Retry(cmd.Context(), args[0])
	},
}

func init() {
	reviewCmd.PersistentFlags().StringVar(&reviewReviewer, "reviewer", "cli", "reviewer identity for the audit trail")
	approveCmd.Flags().StringVar(&reviewTitle, "title", "", "replace the enriched title on approval")
	rejectCmd.Flags().StringVar(&reviewReason, "reason", "", "rejection reason")
	reviewCmd.AddCommand(approveCmd, rejectCmd, reenrichCmd, retryCmd)
	rootCmd.AddCommand(reviewCmd)
}
