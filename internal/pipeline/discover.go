package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bfsi-insights/curation-cli/internal/feed"
	"github.com/bfsi-insights/curation-cli/internal/model"
	"github.com/bfsi-insights/curation-cli/internal/store"
)

// discovery stamps provenance on everything it enqueues.
const (
	discoveryPromptVersion = "v1"
	discoveryModelID       = "discovery-rss"
)

// FeedFetcher downloads a feed document.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, url string) ([]byte, error)
}

// Discovery polls source feeds and enqueues new candidate items.
type Discovery struct {
	store    store.Store
	fetcher  FeedFetcher
	parser   feed.Parser
	fallback feed.Parser
	now      func() time.Time
}

func NewDiscovery(s store.Store, f FeedFetcher) *Discovery {
	return &Discovery{
		store:    s,
		fetcher:  f,
		parser:   feed.NewGofeedParser(),
		fallback: feed.FallbackParser{},
		now:      time.Now,
	}
}

// Run polls every enabled source (or just opts.Source) and enqueues items
// that pass the keyword gate. A failed source is logged and skipped; one
// broken feed must not starve the rest.
func (d *Discovery) Run(ctx context.Context, opts Options) (Result, error) {
	run := model.AgentRun{Agent: "discover", Stage: "discovery", ModelID: discoveryModelID, PromptVersion: discoveryPromptVersion}
	return trackRun(ctx, d.store, run, func(ctx context.Context) (Result, error) {
		res, err := d.run(ctx, opts)
		logResult("discovery", res)
		return res, err
	})
}

func (d *Discovery) run(ctx context.Context, opts Options) (Result, error) {
	var res Result

	sources, err := d.store.ListSources(ctx, true)
	if err != nil {
		return res, eris.Wrap(err, "discovery: list sources")
	}

	remaining := opts.limit()
	for _, src := range sources {
		if opts.Source != "" && src.Slug != opts.Source && src.Name != opts.Source {
			continue
		}
		if remaining <= 0 {
			break
		}
		// Premium sources are manually curated; unattended runs leave them
		// alone unless the operator named one explicitly.
		if src.Premium() && opts.Source == "" {
			zap.L().Warn("premium source skipped, needs manual curation",
				zap.String("source", src.Slug))
			res.Skipped++
			continue
		}
		if src.RSSFeed == "" {
			res.Skipped++
			continue
		}

		enqueued, err := d.pollSource(ctx, src, &remaining, opts.DryRun, &res)
		if err != nil {
			zap.L().Error("source poll failed",
				zap.String("source", src.Slug),
				zap.Error(err),
			)
			res.Failed++
			continue
		}
		zap.L().Info("source polled",
			zap.String("source", src.Slug),
			zap.Int("enqueued", enqueued),
		)
	}
	return res, nil
}

func (d *Discovery) pollSource(ctx context.Context, src model.Source, remaining *int, dryRun bool, res *Result) (int, error) {
	data, err := d.fetcher.FetchFeed(ctx, src.RSSFeed)
	if err != nil {
		return 0, err
	}

	items, err := d.parser.Parse(ctx, data)
	if err != nil {
		zap.L().Warn("feed parse failed, trying fallback parser",
			zap.String("source", src.Slug),
			zap.Error(err),
		)
		items, err = d.fallback.Parse(ctx, data)
		if err != nil {
			return 0, eris.Wrap(err, "parse feed")
		}
	}

	enqueued := 0
	for _, fi := range items {
		if *remaining <= 0 {
			break
		}

		ok, reason := Relevant(fi.Title, fi.Description, src.Keywords)
		if !ok {
			zap.L().Debug("item not relevant",
				zap.String("link", fi.Link),
				zap.String("reason", reason),
			)
			res.Skipped++
			continue
		}

		published := feed.PublishedDate(fi, d.now)
		item := &model.QueueItem{
			URL:           fi.Link,
			PromptVersion: discoveryPromptVersion,
			ModelID:       discoveryModelID,
			Payload: model.Payload{
				Title:       fi.Title,
				Description: fi.Description,
				Authors:     fi.Authors,
				Source:      src.Name,
				PublishedAt: &published,
			},
		}

		res.Processed++
		if dryRun {
			zap.L().Info("dry run: would enqueue", zap.String("url", fi.Link))
			res.Succeeded++
			*remaining--
			continue
		}

		inserted, err := d.store.EnqueueItem(ctx, item)
		if err != nil {
			zap.L().Error("enqueue failed", zap.String("url", fi.Link), zap.Error(err))
			res.Failed++
			continue
		}
		if !inserted {
			// A duplicate of a rejected row gets a second chance; every
			// other duplicate is skipped.
			resurrected, err := d.store.ResurrectRejected(ctx, item.URLNorm)
			if err != nil {
				zap.L().Error("resurrect check failed", zap.String("url", fi.Link), zap.Error(err))
				res.Failed++
				continue
			}
			if !resurrected {
				res.Skipped++
				continue
			}
			zap.L().Info("rejected item rediscovered", zap.String("url", fi.Link))
		}
		res.Succeeded++
		enqueued++
		*remaining--
	}
	return enqueued, nil
}
