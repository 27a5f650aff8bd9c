package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bfsi-insights/curation-cli/internal/model"
	"github.com/bfsi-insights/curation-cli/internal/store"
)

// PublishConfig tunes the publish agent.
type PublishConfig struct {
	ItemDelay  time.Duration
	StaleClaim time.Duration
}

// Publish promotes approved queue items into the public resource tables:
// the resource row, taxonomy junctions, and vendor/organization mentions.
type Publish struct {
	store store.Store
	cfg   PublishConfig
	now   func() time.Time
}

func NewPublish(s store.Store, cfg PublishConfig) *Publish {
	return &Publish{store: s, cfg: cfg, now: time.Now}
}

func (p *Publish) Run(ctx context.Context, opts Options) (Result, error) {
	run := model.AgentRun{Agent: "publish", Stage: "publish"}
	return trackRun(ctx, p.store, run, func(ctx context.Context) (Result, error) {
		res, err := p.run(ctx, opts)
		logResult("publish", res)
		return res, err
	})
}

func (p *Publish) run(ctx context.Context, opts Options) (Result, error) {
	var res Result

	items, err := p.store.ClaimItems(ctx, store.ClaimOptions{
		Statuses:   []model.Status{model.StatusApproved},
		Limit:      opts.limit(),
		Worker:     opts.Worker,
		StaleAfter: p.cfg.StaleClaim,
		Source:     opts.Source,
	})
	if err != nil {
		return res, eris.Wrap(err, "publish: claim items")
	}

	sources, err := p.store.ListSources(ctx, false)
	if err != nil {
		return res, eris.Wrap(err, "publish: list sources")
	}
	bySourceName := make(map[string]model.Source, len(sources))
	for _, src := range sources {
		bySourceName[strings.ToLower(src.Name)] = src
	}

	pacer := itemPacer(p.cfg.ItemDelay)
	for _, item := range items {
		if err := pacer.Wait(ctx); err != nil {
			return res, eris.Wrap(err, "publish: pacing wait")
		}
		res.Processed++
		p.publishOne(ctx, item, bySourceName, opts.DryRun, &res)
	}
	return res, nil
}

func (p *Publish) publishOne(ctx context.Context, item model.QueueItem, sources map[string]model.Source, dryRun bool, res *Result) {
	log := zap.L().With(zap.String("id", item.ID), zap.String("url", item.URL))

	exists, err := p.store.ResourceExists(ctx, item.URLNorm)
	if err != nil {
		log.Error("resource existence check failed", zap.Error(err))
		res.Failed++
		p.release(ctx, item.ID)
		return
	}

	if dryRun {
		log.Info("dry run: would publish", zap.Bool("already_published", exists))
		res.Succeeded++
		return
	}

	if exists {
		// Already published from an earlier run that died before flipping
		// the queue row. Just finish the bookkeeping.
		if err := p.store.MarkPublished(ctx, item.ID); err != nil {
			log.Error("mark published failed", zap.Error(err))
			res.Failed++
			return
		}
		log.Info("resource already published, queue row caught up")
		res.Skipped++
		return
	}

	resource := p.buildResource(item, sources)
	if err := p.insertWithSlugRetry(ctx, resource); err != nil {
		log.Error("resource insert failed", zap.Error(err))
		res.Failed++
		p.release(ctx, item.ID)
		return
	}

	// Junction failures degrade the resource's cross-linking, not its
	// existence. Log and carry on.
	p.linkJunctions(ctx, resource.ID, item, log)

	if err := p.store.MarkPublished(ctx, item.ID); err != nil {
		log.Error("mark published failed", zap.Error(err))
		res.Failed++
		return
	}
	log.Info("resource published", zap.String("resource_id", resource.ID), zap.String("slug", resource.Slug))
	res.Succeeded++
}

func (p *Publish) buildResource(item model.QueueItem, sources map[string]model.Source) *model.Resource {
	payload := item.Payload

	resource := &model.Resource{
		Title:         payload.Title,
		URL:           item.URL,
		CanonicalURL:  item.URLNorm,
		Slug:          model.Slugify(payload.Title),
		SummaryShort:  payload.Summary.Short,
		SummaryMedium: payload.Summary.Medium,
		SummaryLong:   payload.Summary.Long,
		Role:          payload.Tags.Role,
		ContentType:   payload.Tags.ContentType,
		Geography:     payload.Tags.Geography,
		Thumbnail:     item.ThumbRef,
		QualityScore:  payload.QualityScore,
		OriginQueueID: item.ID,
		PublishedAt:   p.now().UTC(),
	}
	if len(payload.Authors) > 0 {
		resource.Author = strings.Join(payload.Authors, ", ")
	}
	if payload.PublishedAt != nil {
		resource.DatePublished = payload.PublishedAt
	}
	resource.SourceName = payload.Source
	if src, ok := sources[strings.ToLower(payload.Source)]; ok {
		resource.SourceSlug = src.Slug
		resource.SourceDomain = src.Domain
	}
	return resource
}

// insertWithSlugRetry retries once with an ID-suffixed slug when two titles
// collide.
func (p *Publish) insertWithSlugRetry(ctx context.Context, resource *model.Resource) error {
	err := p.store.InsertResource(ctx, resource)
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "unique") && !strings.Contains(msg, "duplicate") {
		return err
	}

	suffix := resource.OriginQueueID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	resource.Slug = resource.Slug + "-" + suffix
	resource.ID = ""
	return p.store.InsertResource(ctx, resource)
}

func (p *Publish) linkJunctions(ctx context.Context, resourceID string, item model.QueueItem, log *zap.Logger) {
	tags := item.Payload.Tags
	if tags.Industry != "" {
		if err := p.store.LinkIndustry(ctx, resourceID, tags.Industry, 0); err != nil {
			log.Warn("industry link failed", zap.String("code", tags.Industry), zap.Error(err))
		}
	}
	if tags.Topic != "" {
		if err := p.store.LinkTopic(ctx, resourceID, tags.Topic, 0); err != nil {
			log.Warn("topic link failed", zap.String("code", tags.Topic), zap.Error(err))
		}
	}

	for _, vendor := range item.Payload.Vendors {
		vendorID, err := p.store.GetOrCreateVendor(ctx, vendor)
		if err != nil {
			log.Warn("vendor upsert failed", zap.String("vendor", vendor), zap.Error(err))
			continue
		}
		if err := p.store.LinkVendor(ctx, resourceID, vendorID); err != nil {
			log.Warn("vendor link failed", zap.String("vendor", vendor), zap.Error(err))
		}
	}
	for _, org := range item.Payload.Organizations {
		orgID, err := p.store.GetOrCreateOrganization(ctx, org)
		if err != nil {
			log.Warn("organization upsert failed", zap.String("organization", org), zap.Error(err))
			continue
		}
		if err := p.store.LinkOrganization(ctx, resourceID, orgID); err != nil {
			log.Warn("organization link failed", zap.String("organization", org), zap.Error(err))
		}
	}
}

func (p *Publish) release(ctx context.Context, id string) {
	if err := p.store.ReleaseClaim(ctx, id); err != nil {
		zap.L().Warn("release claim failed", zap.String("id", id), zap.Error(err))
	}
}
