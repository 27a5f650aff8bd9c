package main

import (
	"github.com/spf13/cobra"

	"github.com/bfsi-insights/curation-cli/internal/pipeline"
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Run fetched items through the LLM relevance gate",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		client, err := initLLM()
		if err != nil {
			return err
		}

		res, err := pipeline.NewFilter(e.Store, client, filterConfig()).Run(cmd.Context(), batchOptions())
		if err != nil {
			return err
		}
		e.Notifier.RunSummary("filter", res)
		return nil
	},
}

func init() {
	addBatchFlags(filterCmd)
	rootCmd.AddCommand(filterCmd)
}
