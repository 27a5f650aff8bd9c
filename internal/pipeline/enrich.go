package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bfsi-insights/curation-cli/internal/model"
	"github.com/bfsi-insights/curation-cli/internal/registry"
	"github.com/bfsi-insights/curation-cli/internal/store"
	"github.com/bfsi-insights/curation-cli/pkg/llm"
)

// EnrichConfig tunes the enrichment agent.
type EnrichConfig struct {
	Model         string
	PromptVersion string
	ItemDelay     time.Duration
	StaleClaim    time.Duration
}

// Enrich generates summaries, tags, persona scores, and quality scores for
// filtered items, plus pending items that already carry enough descriptive
// text to skip the fetch path (manually curated entries).
type Enrich struct {
	store  store.Store
	llm    llm.Client
	thumbs *ThumbnailSaver
	cfg    EnrichConfig
	now    func() time.Time
}

func NewEnrich(s store.Store, client llm.Client, thumbs *ThumbnailSaver, cfg EnrichConfig) *Enrich {
	return &Enrich{store: s, llm: client, thumbs: thumbs, cfg: cfg, now: time.Now}
}

func (e *Enrich) Run(ctx context.Context, opts Options) (Result, error) {
	run := model.AgentRun{Agent: "enrich", Stage: "enrichment", ModelID: e.cfg.Model, PromptVersion: e.cfg.PromptVersion}
	return trackRun(ctx, e.store, run, func(ctx context.Context) (Result, error) {
		res, err := e.run(ctx, opts)
		logResult("enrichment", res)
		return res, err
	})
}

func (e *Enrich) run(ctx context.Context, opts Options) (Result, error) {
	var res Result

	tax, err := registry.LoadTaxonomies(ctx, e.store)
	if err != nil {
		return res, eris.Wrap(err, "enrich: load taxonomies")
	}

	items, err := e.store.ClaimItems(ctx, store.ClaimOptions{
		Statuses:    []model.Status{model.StatusPending, model.StatusFiltered},
		Limit:       opts.limit(),
		Worker:      opts.Worker,
		StaleAfter:  e.cfg.StaleClaim,
		EnrichReady: true,
		Source:      opts.Source,
	})
	if err != nil {
		return res, eris.Wrap(err, "enrich: claim items")
	}

	pacer := itemPacer(e.cfg.ItemDelay)
	for _, item := range items {
		if err := pacer.Wait(ctx); err != nil {
			return res, eris.Wrap(err, "enrich: pacing wait")
		}
		res.Processed++
		e.enrichOne(ctx, item, tax, opts.DryRun, &res)
	}
	return res, nil
}

func (e *Enrich) enrichOne(ctx context.Context, item model.QueueItem, tax *model.Taxonomies, dryRun bool, res *Result) {
	log := zap.L().With(zap.String("id", item.ID), zap.String("url", item.URL))

	// Dry runs still call the model so prompt changes can be exercised
	// against live content; only the writes are skipped.
	enrichment, err := e.llm.Enrich(ctx, llm.EnrichRequest{
		Title:       item.Payload.Title,
		Description: item.Payload.Description,
		Source:      item.Payload.Source,
		URL:         item.URL,
		Text:        item.Payload.Content,
		Taxonomies:  *tax,
	})
	if err != nil {
		log.Error("enrich request failed", zap.Error(err))
		res.Failed++
		e.release(ctx, item.ID)
		return
	}

	if !enrichment.BFSIRelevant {
		if dryRun {
			log.Info("dry run: would reject", zap.String("reason", enrichment.RelevanceReason))
			res.Rejected++
			return
		}
		if err := e.store.MarkRejected(ctx, item.ID, enrichment.RelevanceReason, "enrichment"); err != nil {
			log.Error("mark rejected failed", zap.Error(err))
			res.Failed++
			return
		}
		log.Info("item rejected during enrichment", zap.String("reason", enrichment.RelevanceReason))
		res.Rejected++
		return
	}

	if err := ValidateEnrichment(enrichment); err != nil {
		log.Warn("enrichment output invalid", zap.Error(err))
		res.Failed++
		e.release(ctx, item.ID)
		return
	}

	payload := applyEnrichment(item.Payload, enrichment)
	payload.QualityScore = QualityScore(payload, item.DiscoveredAt, tax, e.now())

	if dryRun {
		log.Info("dry run: would mark enriched",
			zap.Float64("quality_score", payload.QualityScore),
			zap.String("topic", payload.Tags.Topic),
		)
		res.Succeeded++
		return
	}

	var thumbRef *string
	if e.thumbs != nil && item.Payload.ImageURL != "" {
		ref, err := e.thumbs.Save(ctx, item.ID, item.Payload.ImageURL)
		if err != nil {
			// A missing preview image is cosmetic; the item proceeds.
			log.Warn("thumbnail save failed", zap.Error(err))
		} else {
			thumbRef = &ref
		}
	}

	if err := e.store.MarkEnriched(ctx, item.ID, payload, e.cfg.PromptVersion, e.cfg.Model, thumbRef); err != nil {
		log.Error("mark enriched failed", zap.Error(err))
		res.Failed++
		return
	}
	res.Succeeded++
}

func (e *Enrich) release(ctx context.Context, id string) {
	if err := e.store.ReleaseClaim(ctx, id); err != nil {
		zap.L().Warn("release claim failed", zap.String("id", id), zap.Error(err))
	}
}

func applyEnrichment(payload model.Payload, enrichment *model.Enrichment) model.Payload {
	payload.Summary = enrichment.Summary
	payload.Tags = enrichment.Tags
	payload.PersonaScores = enrichment.PersonaScores
	payload.RelevanceConfidence = enrichment.RelevanceConfidence
	payload.Vendors = enrichment.Vendors
	payload.Organizations = enrichment.Organizations
	return payload
}
