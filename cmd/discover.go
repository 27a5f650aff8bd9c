package main

import (
	"github.com/spf13/cobra"

	"github.com/bfsi-insights/curation-cli/internal/pipeline"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Poll source feeds and enqueue new candidate items",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := pipeline.NewDiscovery(e.Store, e.Fetcher).Run(cmd.Context(), batchOptions())
		if err != nil {
			return err
		}
		e.Notifier.RunSummary("discover", res)
		return nil
	},
}

func init() {
	addBatchFlags(discoverCmd)
	rootCmd.AddCommand(discoverCmd)
}
