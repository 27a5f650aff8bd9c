package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bfsi-insights/curation-cli/internal/model"
	"github.com/bfsi-insights/curation-cli/internal/store"
	"github.com/bfsi-insights/curation-cli/pkg/llm"
)

// FilterConfig tunes the relevance filter agent.
type FilterConfig struct {
	Model      string
	ItemDelay  time.Duration
	StaleClaim time.Duration
}

// Filter runs fetched items through the LLM relevance gate. The keyword
// gate at discovery is deliberately loose; this pass reads the actual
// content and rejects items that only matched incidentally.
type Filter struct {
	store store.Store
	llm   llm.Client
	cfg   FilterConfig
}

func NewFilter(s store.Store, client llm.Client, cfg FilterConfig) *Filter {
	return &Filter{store: s, llm: client, cfg: cfg}
}

func (f *Filter) Run(ctx context.Context, opts Options) (Result, error) {
	run := model.AgentRun{Agent: "filter", Stage: "relevance-filter", ModelID: f.cfg.Model}
	return trackRun(ctx, f.store, run, func(ctx context.Context) (Result, error) {
		res, err := f.run(ctx, opts)
		logResult("relevance-filter", res)
		return res, err
	})
}

func (f *Filter) run(ctx context.Context, opts Options) (Result, error) {
	var res Result

	items, err := f.store.ClaimItems(ctx, store.ClaimOptions{
		Statuses:   []model.Status{model.StatusFetched},
		Limit:      opts.limit(),
		Worker:     opts.Worker,
		StaleAfter: f.cfg.StaleClaim,
		Source:     opts.Source,
	})
	if err != nil {
		return res, eris.Wrap(err, "filter: claim items")
	}

	pacer := itemPacer(f.cfg.ItemDelay)
	for _, item := range items {
		if err := pacer.Wait(ctx); err != nil {
			return res, eris.Wrap(err, "filter: pacing wait")
		}
		res.Processed++
		f.filterOne(ctx, item, opts.DryRun, &res)
	}
	return res, nil
}

func (f *Filter) filterOne(ctx context.Context, item model.QueueItem, dryRun bool, res *Result) {
	log := zap.L().With(zap.String("id", item.ID), zap.String("url", item.URL))

	verdict, err := f.llm.FilterRelevance(ctx, llm.FilterRequest{
		Title:       item.Payload.Title,
		Description: item.Payload.Description,
		Source:      item.Payload.Source,
		URL:         item.URL,
	})
	if err != nil {
		log.Error("filter request failed", zap.Error(err))
		res.Failed++
		f.release(ctx, item.ID)
		return
	}

	if dryRun {
		log.Info("dry run: filter verdict",
			zap.Bool("relevant", verdict.Relevant),
			zap.String("reason", verdict.Reason),
		)
		res.Succeeded++
		return
	}

	if !verdict.Relevant {
		if err := f.store.MarkRejected(ctx, item.ID, verdict.Reason, "relevance-filter"); err != nil {
			log.Error("mark rejected failed", zap.Error(err))
			res.Failed++
			return
		}
		log.Info("item rejected by filter", zap.String("reason", verdict.Reason))
		res.Rejected++
		return
	}

	payload := item.Payload
	payload.FilterReason = verdict.Reason
	if err := f.store.MarkFiltered(ctx, item.ID, payload); err != nil {
		log.Error("mark filtered failed", zap.Error(err))
		res.Failed++
		return
	}
	res.Succeeded++
}

func (f *Filter) release(ctx context.Context, id string) {
	if err := f.store.ReleaseClaim(ctx, id); err != nil {
		zap.L().Warn("release claim failed", zap.String("id", id), zap.Error(err))
	}
}
