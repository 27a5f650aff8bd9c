package store

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bfsi-insights/curation-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func enqueue(t *testing.T, s *SQLiteStore, url string) *model.QueueItem {
	t.Helper()
	item := &model.QueueItem{
		URL:           url,
		PromptVersion: "v1",
		ModelID:       "discovery-rss",
		Payload: model.Payload{
			Title:       "Open banking adoption in 2026",
			Source:      "McKinsey",
			Description: "A look at payment infrastructure trends.",
		},
	}
	inserted, err := s.EnqueueItem(context.Background(), item)
	require.NoError(t, err)
	require.True(t, inserted)
	return item
}

func TestEnqueueDedupByNormalizedURL(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	enqueue(t, s, "https://example.com/Report?utm_source=rss")

	dup := &model.QueueItem{URL: "https://EXAMPLE.com/report#section"}
	inserted, err := s.EnqueueItem(ctx, dup)
	require.NoError(t, err)
	assert.False(t, inserted, "same normalized URL must not enqueue twice")

	other := &model.QueueItem{URL: "https://example.com/other-report"}
	inserted, err = s.EnqueueItem(ctx, other)
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestClaimSkipsFreshClaims(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := enqueue(t, s, "https://example.com/a")

	first, err := s.ClaimItems(ctx, ClaimOptions{
		Statuses: []model.Status{model.StatusPending},
		Limit:    10,
		Worker:   "worker-1",
	})
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := s.ClaimItems(ctx, ClaimOptions{
		Statuses: []model.Status{model.StatusPending},
		Limit:    10,
		Worker:   "worker-2",
	})
	require.NoError(t, err)
	assert.Empty(t, second, "claimed item must be invisible to other workers")

	// A stale claim is taken over.
	taken, err := s.ClaimItems(ctx, ClaimOptions{
		Statuses:   []model.Status{model.StatusPending},
		Limit:      10,
		Worker:     "worker-2",
		StaleAfter: time.Nanosecond,
	})
	require.NoError(t, err)
	require.Len(t, taken, 1)
	assert.Equal(t, item.ID, taken[0].ID)
}

func TestGetQueueItemMissing(t *testing.T) {
	s := newTestStore(t)

	item, err := s.GetQueueItem(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.Nil(t, item)
}

func TestStageProgression(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := enqueue(t, s, "https://example.com/a")

	require.NoError(t, s.MarkFetched(ctx, item.ID, item.Payload))
	got, err := s.GetQueueItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFetched, got.Status)
	assert.NotNil(t, got.FetchedAt)
	assert.Nil(t, got.ClaimedBy)

	require.NoError(t, s.MarkFiltered(ctx, item.ID, got.Payload))

	payload := got.Payload
	payload.Summary = model.Summary{Short: "s", Medium: "m", Long: "l"}
	thumb := "thumbs/a.jpg"
	require.NoError(t, s.MarkEnriched(ctx, item.ID, payload, "v3.0-bfsi-filter", "gpt-5.1", &thumb))

	got, err = s.GetQueueItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusEnriched, got.Status)
	assert.Equal(t, "v3.0-bfsi-filter", got.PromptVersion)
	assert.Equal(t, "gpt-5.1", got.ModelID)
	require.NotNil(t, got.ThumbRef)
	assert.Equal(t, "thumbs/a.jpg", *got.ThumbRef)

	require.NoError(t, s.MarkApproved(ctx, item.ID, "alex", "Corrected title"))
	require.NoError(t, s.MarkPublished(ctx, item.ID))

	got, err = s.GetQueueItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPublished, got.Status)
	assert.Equal(t, "Corrected title", got.Payload.Title)
	assert.NotNil(t, got.ReviewedAt)
}

func TestRetryRejectedClearsEnrichment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := enqueue(t, s, "https://example.com/a")

	payload := item.Payload
	payload.Summary = model.Summary{Short: "s", Medium: "m", Long: "l"}
	payload.Tags = model.Tags{Topic: "payments"}
	require.NoError(t, s.MarkFetched(ctx, item.ID, payload))
	require.NoError(t, s.MarkRejected(ctx, item.ID, "off topic", "alex"))

	require.NoError(t, s.RetryRejected(ctx, item.ID))

	got, err := s.GetQueueItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.True(t, got.Payload.Summary.Empty(), "summary must be cleared")
	assert.True(t, got.Payload.Tags.Empty(), "tags must be cleared")
	assert.Nil(t, got.RejectionReason)
	assert.Nil(t, got.Reviewer)
	assert.Nil(t, got.ReviewedAt)
	assert.Equal(t, "Open banking adoption in 2026", got.Payload.Title, "descriptive fields survive retry")

	// Retrying a non-rejected item is an error.
	assert.Error(t, s.RetryRejected(ctx, item.ID))
}

func TestReturnForReenrichment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := enqueue(t, s, "https://example.com/a")
	assert.Error(t, s.ReturnForReenrichment(ctx, item.ID), "pending item cannot be re-enriched")

	require.NoError(t, s.MarkFetched(ctx, item.ID, item.Payload))
	require.NoError(t, s.MarkFiltered(ctx, item.ID, item.Payload))
	require.NoError(t, s.MarkEnriched(ctx, item.ID, item.Payload, "v3.0-bfsi-filter", "gpt-5.1", nil))
	require.NoError(t, s.ReturnForReenrichment(ctx, item.ID))

	got, err := s.GetQueueItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestEnrichReadyClaimFiltersPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ready := enqueue(t, s, "https://example.com/ready")

	bare := &model.QueueItem{URL: "https://example.com/bare"}
	inserted, err := s.EnqueueItem(ctx, bare)
	require.NoError(t, err)
	require.True(t, inserted)

	items, err := s.ClaimItems(ctx, ClaimOptions{
		Statuses:    []model.Status{model.StatusPending, model.StatusFiltered},
		Limit:       10,
		Worker:      "enrich-agent",
		EnrichReady: true,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, ready.ID, items[0].ID, "pending item without title/description is not enrich-ready")
}

func TestPublishResourceWithJunctions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := enqueue(t, s, "https://example.com/a")

	res := &model.Resource{
		Title:         "Open banking adoption in 2026",
		URL:           item.URL,
		CanonicalURL:  item.URLNorm,
		Slug:          "open-banking-adoption-in-2026",
		SummaryShort:  "s",
		SummaryMedium: "m",
		SummaryLong:   "l",
		QualityScore:  0.72,
		OriginQueueID: item.ID,
	}
	require.NoError(t, s.InsertResource(ctx, res))
	require.NotEmpty(t, res.ID)

	exists, err := s.ResourceExists(ctx, item.URLNorm)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.ResourceExists(ctx, "https://example.com/unpublished")
	require.NoError(t, err)
	assert.False(t, exists)

	vendorID, err := s.GetOrCreateVendor(ctx, "Temenos")
	require.NoError(t, err)
	again, err := s.GetOrCreateVendor(ctx, "Temenos")
	require.NoError(t, err)
	assert.Equal(t, vendorID, again, "vendor get-or-create is keyed by slug")

	orgID, err := s.GetOrCreateOrganization(ctx, "Deutsche  Bank")
	require.NoError(t, err)
	orgAgain, err := s.GetOrCreateOrganization(ctx, "deutsche bank")
	require.NoError(t, err)
	assert.Equal(t, orgID, orgAgain, "organization get-or-create is keyed by normalized name")

	require.NoError(t, s.LinkVendor(ctx, res.ID, vendorID))
	require.NoError(t, s.LinkVendor(ctx, res.ID, vendorID))
	require.NoError(t, s.LinkOrganization(ctx, res.ID, orgID))
}

func TestSeedAndWeightSources(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.SeedSources(ctx, []model.Source{
		{Slug: "mckinsey", Name: "McKinsey", Domain: "mckinsey.com", Tier: "premium", Category: "strategy-consulting", Enabled: true, Keywords: []string{"banking"}},
		{Slug: "disabled", Name: "Old Source", Domain: "old.example", Tier: "basic", Category: "publication", Enabled: false},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	enabled, err := s.ListSources(ctx, true)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "mckinsey", enabled[0].Slug)
	assert.Equal(t, []string{"banking"}, enabled[0].Keywords)

	weights, err := s.SourceWeights(ctx)
	require.NoError(t, err)
	// premium (1.0) blended with strategy-consulting (0.95)
	assert.InDelta(t, 0.975, weights["McKinsey"], 1e-9)
}

func TestAgentRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := &model.AgentRun{Agent: "enrich", Stage: "enrichment", ModelID: "gpt-5.1", PromptVersion: "v3.0-bfsi-filter"}
	require.NoError(t, s.StartAgentRun(ctx, run))
	require.NotEmpty(t, run.ID)

	require.NoError(t, s.FinishAgentRun(ctx, run.ID, "complete", "", map[string]int{"enriched": 3, "rejected": 1}))
	assert.Error(t, s.FinishAgentRun(ctx, "missing", "complete", "", nil))
}
