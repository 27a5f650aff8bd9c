package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bfsi-insights/curation-cli/internal/feed"
	"github.com/bfsi-insights/curation-cli/internal/fetcher"
	"github.com/bfsi-insights/curation-cli/internal/model"
	"github.com/bfsi-insights/curation-cli/internal/store"
)

// PageFetcher downloads an article page.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) ([]byte, error)
}

// FetchConfig tunes the fetch agent.
type FetchConfig struct {
	ItemDelay   time.Duration
	MaxAttempts int
	StaleClaim  time.Duration
}

// Fetch downloads full article pages for pending queue items and extracts
// title, description, author, lead image, and body text.
type Fetch struct {
	store   store.Store
	fetcher PageFetcher
	cfg     FetchConfig
}

func NewFetch(s store.Store, f PageFetcher, cfg FetchConfig) *Fetch {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Fetch{store: s, fetcher: f, cfg: cfg}
}

func (f *Fetch) Run(ctx context.Context, opts Options) (Result, error) {
	run := model.AgentRun{Agent: "fetch", Stage: "fetch"}
	return trackRun(ctx, f.store, run, func(ctx context.Context) (Result, error) {
		res, err := f.run(ctx, opts)
		logResult("fetch", res)
		return res, err
	})
}

func (f *Fetch) run(ctx context.Context, opts Options) (Result, error) {
	var res Result

	items, err := f.store.ClaimItems(ctx, store.ClaimOptions{
		Statuses:   []model.Status{model.StatusPending},
		Limit:      opts.limit(),
		Worker:     opts.Worker,
		StaleAfter: f.cfg.StaleClaim,
		Source:     opts.Source,
	})
	if err != nil {
		return res, eris.Wrap(err, "fetch: claim items")
	}

	pacer := itemPacer(f.cfg.ItemDelay)
	for _, item := range items {
		if err := pacer.Wait(ctx); err != nil {
			return res, eris.Wrap(err, "fetch: pacing wait")
		}
		res.Processed++
		f.fetchOne(ctx, item, opts.DryRun, &res)
	}
	return res, nil
}

func (f *Fetch) fetchOne(ctx context.Context, item model.QueueItem, dryRun bool, res *Result) {
	log := zap.L().With(zap.String("id", item.ID), zap.String("url", item.URL))

	// arXiv abstracts arrive complete from the feed, and the site blocks
	// scrapers; the item moves on with its discovery payload.
	if feed.IsArxiv(item.URL) {
		if dryRun {
			log.Info("dry run: would mark arxiv item fetched")
			res.Succeeded++
			return
		}
		if err := f.store.MarkFetched(ctx, item.ID, item.Payload); err != nil {
			log.Error("mark fetched failed", zap.Error(err))
			res.Failed++
			return
		}
		res.Succeeded++
		return
	}

	body, err := f.fetcher.FetchPage(ctx, item.URL)
	if err != nil {
		log.Warn("page fetch failed", zap.Error(err))
		f.recordFailure(ctx, item, res)
		return
	}

	page, err := fetcher.ExtractPage(body, item.URL)
	if err != nil {
		log.Warn("page extraction failed", zap.Error(err))
		f.recordFailure(ctx, item, res)
		return
	}

	payload := mergePage(item.Payload, page)

	if dryRun {
		log.Info("dry run: would mark fetched", zap.String("title", payload.Title))
		res.Succeeded++
		return
	}
	if err := f.store.MarkFetched(ctx, item.ID, payload); err != nil {
		log.Error("mark fetched failed", zap.Error(err))
		res.Failed++
		return
	}
	res.Succeeded++
}

// recordFailure bumps the attempt counter and, once the item has burned
// through its budget, parks it as failed so the queue cannot accumulate
// permanently unfetchable URLs.
func (f *Fetch) recordFailure(ctx context.Context, item model.QueueItem, res *Result) {
	res.Failed++

	attempts, err := f.store.RecordFetchFailure(ctx, item.ID)
	if err != nil {
		zap.L().Error("record fetch failure failed", zap.String("id", item.ID), zap.Error(err))
		return
	}
	if attempts >= f.cfg.MaxAttempts {
		zap.L().Warn("fetch attempts exhausted, marking failed",
			zap.String("id", item.ID),
			zap.Int("attempts", attempts),
		)
		if err := f.store.MarkFailed(ctx, item.ID); err != nil {
			zap.L().Error("mark failed failed", zap.String("id", item.ID), zap.Error(err))
		}
	}
}

// mergePage folds extracted page fields into the discovery payload. The
// page is the better authority once fetched: feed values survive only where
// the page offered nothing.
func mergePage(payload model.Payload, page *fetcher.Page) model.Payload {
	if page.Title != "" {
		payload.Title = page.Title
	}
	if page.Description != "" {
		payload.Description = page.Description
	}
	if len(payload.Authors) == 0 && page.Author != "" {
		payload.Authors = []string{page.Author}
	}
	if page.Published != nil {
		payload.PublishedAt = page.Published
	}
	payload.Content = page.Text
	payload.ImageURL = page.ImageURL
	return payload
}
