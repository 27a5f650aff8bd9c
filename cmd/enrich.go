package main

import (
	"github.com/spf13/cobra"

	"github.com/bfsi-insights/curation-cli/internal/pipeline"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Generate summaries, tags, and quality scores for filtered items",
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

		thumbs := pipeline.NewThumbnailSaver(e.Fetcher, cfg.Enrich.ThumbsDir)
		res, err := pipeline.NewEnrich(e.Store, client, thumbs, enrichConfig()).Run(cmd.Context(), batchOptions())
		if err != nil {
			return err
		}
		e.Notifier.RunSummary("enrich", res)
		return nil
	},
}

func init() {
	addBatchFlags(enrichCmd)
	rootCmd.AddCommand(enrichCmd)
}
