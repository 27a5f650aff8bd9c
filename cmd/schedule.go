package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bfsi-insights/curation-cli/internal/pipeline"
	"github.com/bfsi-insights/curation-cli/pkg/llm"
)

var (
	scheduleDiscover string
	schedulePipeline string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on a cron schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

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

		c := cron.New()

		if _, err := c.AddFunc(scheduleDiscover, func() {
			res, err := pipeline.NewDiscovery(e.Store, e.Fetcher).Run(ctx, opts)
			if err != nil {
				zap.L().Error("scheduled discovery failed", zap.Error(err))
				return
			}
			e.Notifier.RunSummary("discover", res)
		}); err != nil {
			return err
		}

		if _, err := c.AddFunc(schedulePipeline, func() {
			runStages(ctx, e, client, thumbs, opts)
		}); err != nil {
			return err
		}

		zap.L().Info("scheduler started",
			zap.String("discover", scheduleDiscover),
			zap.String("pipeline", schedulePipeline),
		)
		c.Start()
		<-ctx.Done()
		<-c.Stop().Done()
		return nil
	},
}

// runStages drives the post-discovery stages once. Stage failures are
// logged; the next tick retries from wherever items are parked.
func runStages(ctx context.Context, e *env, client llm.Client, thumbs *pipeline.ThumbnailSaver, opts pipeline.Options) {
	stages := []struct {
		name string
		run  func() (pipeline.Result, error)
	}{
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
			zap.L().Error("scheduled stage failed", zap.String("stage", stage.name), zap.Error(err))
			return
		}
		e.Notifier.RunSummary(stage.name, res)
	}
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleDiscover, "discover-cron", "0 */4 * * *", "cron expression for discovery runs")
	scheduleCmd.Flags().StringVar(&schedulePipeline, "pipeline-cron", "30 */4 * * *", "cron expression for fetch/filter/enrich/publish runs")
	addBatchFlags(scheduleCmd)
	rootCmd.AddCommand(scheduleCmd)
}
