package main

import (
	"github.com/spf13/cobra"

	"github.com/bfsi-insights/curation-cli/internal/pipeline"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Materialize approved items as knowledge-base resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := pipeline.NewPublish(e.Store, publishConfig()).Run(cmd.Context(), batchOptions())
		if err != nil {
			return err
		}
		e.Notifier.RunSummary("publish", res)
		return nil
	},
}

func init() {
	addBatchFlags(publishCmd)
	rootCmd.AddCommand(publishCmd)
}
