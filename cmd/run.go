package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bfsi-insights/curation-cli/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run discover, fetch, filter, enrich, and publish back to back",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		client, err := initLLM()
		if err != nil {
			return err
		}
		thumbs := pipeline.NewThumbnailSaver(e.Fetcher, cfg.Enrich.ThumbsDir)
		opts := batchOptions()

		stages := []struct {
			name string
			run  func() (pipeline.Result, error)
		}{
			{"discover", func() (pipeline.Result, error) {
				return pipeline.NewDiscovery(e.Store, e.Fetcher).Run(ctx, opts)
			}},
			{"fetch", func() (pipeline.Result, error) {
				return pipeline.NewFetch(e.Store, e.Fetcher, fetchConfig()).Run(ctx, opts)
			}},
			{"filter", func() (pipeline.Result, error) {
				return pipeline.NewFilter(e.Store, client, filterConfig()).Run(ctx, opts)
			}},
			{"enrich", func() (pipeline.Result, error) {
				return pipeline.NewEnrich(e.Store, client, thumbs, enrichConfig()).Run(ctx, opts)
			}},
			{"publish", func() (pipeline.Result, error) {
				return pipeline.NewPublish(e.Store, publishConfig()).Run(ctx, opts)
			}},
		}

		for _, stage := range stages {
			res, err := stage.run()
			if err != nil {
				zap.L().Error("stage failed, stopping pipeline",
					zap.String("stage", stage.name),
					zap.Error(err),
				)
				return err
			}
			e.Notifier.RunSummary(stage.name, res)
		}
		return nil
	},
}

func init() {
	addBatchFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}
