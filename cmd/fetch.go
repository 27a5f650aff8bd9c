package main

import (
	"github.com/spf13/cobra"

	"github.com/bfsi-insights/curation-cli/internal/pipeline"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download article pages for pending queue items",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := pipeline.NewFetch(e.Store, e.Fetcher, fetchConfig()).Run(cmd.Context(), batchOptions())
		if err != nil {
			return err
		}
		e.Notifier.RunSummary("fetch", res)
		return nil
	},
}

func init() {
	addBatchFlags(fetchCmd)
	rootCmd.AddCommand(fetchCmd)
}
