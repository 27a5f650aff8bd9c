package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bfsi-insights/curation-cli/internal/fetcher"
	"github.com/bfsi-insights/curation-cli/internal/notify"
	"github.com/bfsi-insights/curation-cli/internal/pipeline"
	"github.com/bfsi-insights/curation-cli/internal/store"
	"github.com/bfsi-insights/curation-cli/pkg/llm"
)

// env bundles the shared dependencies a command needs: the store, the HTTP
// fetcher, the LLM client, and the notifier.
type env struct {
	Store    store.Store
	Fetcher  *fetcher.HTTPFetcher
	Notifier notify.Notifier
}

func (e *env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("store close failed", zap.Error(err))
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres", "":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func initEnv(ctx context.Context) (*env, error) {
	s, err := initStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}

	f := fetcher.NewHTTPFetcher(fetcher.Options{
		UserAgent:   cfg.Discovery.UserAgent,
		FeedTimeout: time.Duration(cfg.Discovery.FeedTimeoutSecs) * time.Second,
		PageTimeout: time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries:  cfg.Fetch.Retries,
		Backoff:     time.Duration(cfg.Fetch.BackoffSecs) * time.Second,
	})

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			zap.L().Warn("telegram setup failed, notifications disabled", zap.Error(err))
		} else {
			notifier = tg
		}
	}

	return &env{Store: s, Fetcher: f, Notifier: notifier}, nil
}

func initLLM() (llm.Client, error) {
	return llm.NewOpenAIClient(llm.Options{
		APIKey:      cfg.OpenAI.Key,
		FilterModel: cfg.OpenAI.FilterModel,
		EnrichModel: cfg.OpenAI.EnrichModel,
	})
}

// Batch flag values shared by the stage commands.
var (
	flagLimit  int
	flagDryRun bool
	flagSource string
	flagWorker string
)

func addBatchFlags(cmds ...*cobra.Command) {
	for _, cmd := range cmds {
		cmd.Flags().IntVar(&flagLimit, "limit", 0, "max items to process (default 10)")
		cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "log actions without writing")
		cmd.Flags().StringVar(&flagSource, "source", "", "restrict to a single source")
		cmd.Flags().StringVar(&flagWorker, "worker", "", "worker id for claim attribution")
	}
}

func batchOptions() pipeline.Options {
	return pipeline.Options{
		Limit:  flagLimit,
		DryRun: flagDryRun,
		Source: flagSource,
		Worker: flagWorker,
	}
}

func fetchConfig() pipeline.FetchConfig {
	return pipeline.FetchConfig{
		ItemDelay:   time.Duration(cfg.Fetch.ItemDelayMS) * time.Millisecond,
		MaxAttempts: cfg.Fetch.MaxAttempts,
		StaleClaim:  time.Duration(cfg.Fetch.ClaimStaleMin) * time.Minute,
	}
}

func filterConfig() pipeline.FilterConfig {
	return pipeline.FilterConfig{
		Model:      cfg.OpenAI.FilterModel,
		ItemDelay:  time.Duration(cfg.Enrich.ItemDelayMS) * time.Millisecond,
		StaleClaim: time.Duration(cfg.Fetch.ClaimStaleMin) * time.Minute,
	}
}

func enrichConfig() pipeline.EnrichConfig {
	return pipeline.EnrichConfig{
		Model:         cfg.OpenAI.EnrichModel,
		PromptVersion: cfg.OpenAI.PromptVersion,
		ItemDelay:     time.Duration(cfg.Enrich.ItemDelayMS) * time.Millisecond,
		StaleClaim:    time.Duration(cfg.Fetch.ClaimStaleMin) * time.Minute,
	}
}

func publishConfig() pipeline.PublishConfig {
	return pipeline.PublishConfig{
		ItemDelay:  time.Duration(cfg.Publish.ItemDelayMS) * time.Millisecond,
		StaleClaim: time.Duration(cfg.Fetch.ClaimStaleMin) * time.Minute,
	}
}
