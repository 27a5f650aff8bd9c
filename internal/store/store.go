package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/bfsi-insights/curation-cli/internal/model"
)

// ErrNotFound is the sentinel returned when a lookup by id matches no row.
// Callers test it with eris.Is to distinguish missing rows from real
// query failures.
var ErrNotFound = eris.New("store: not found")

// QueueFilter specifies criteria for listing queue items.
type QueueFilter struct {
	Statuses []model.Status `json:"statuses,omitempty"`
	Source   string         `json:"source,omitempty"`
	Limit    int            `json:"limit,omitempty"`
	Offset   int            `json:"offset,omitempty"`
}

// ClaimOptions controls how a batch agent claims queue items. A claim
// older than StaleAfter is considered abandoned and may be taken over.
type ClaimOptions struct {
	Statuses   []model.Status
	Limit      int
	Worker     string
	StaleAfter time.Duration

	// EnrichReady restricts pending items to those with a title and
	// description and no summary yet. Items in later statuses pass
	// unconditionally.
	EnrichReady bool

	// Source restricts items to a single source name in the payload.
	Source string
}

// Store defines the persistence interface for the curation pipeline.
type Store interface {
	// Queue
	EnqueueItem(ctx context.Context, item *model.QueueItem) (bool, error)
	GetQueueItem(ctx context.Context, id string) (*model.QueueItem, error)
	ListQueue(ctx context.Context, filter QueueFilter) ([]model.QueueItem, error)
	ClaimItems(ctx context.Context, opts ClaimOptions) ([]model.QueueItem, error)
	ReleaseClaim(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[model.Status]int, error)

	// Stage transitions
	MarkFetched(ctx context.Context, id string, payload model.Payload) error
	RecordFetchFailure(ctx context.Context, id string) (int, error)
	MarkFailed(ctx context.Context, id string) error
	MarkFiltered(ctx context.Context, id string, payload model.Payload) error
	MarkEnriched(ctx context.Context, id string, payload model.Payload, promptVersion, modelID string, thumbRef *string) error
	MarkRejected(ctx context.Context, id string, reason string, reviewer string) error
	MarkApproved(ctx context.Context, id string, reviewer string, editedTitle string) error
	MarkPublished(ctx context.Context, id string) error
	RetryRejected(ctx context.Context, id string) error
	ResurrectRejected(ctx context.Context, urlNorm string) (bool, error)
	ReturnForReenrichment(ctx context.Context, id string) error

	// Published resources
	ResourceExists(ctx context.Context, canonicalURL string) (bool, error)
	InsertResource(ctx context.Context, res *model.Resource) error
	LinkIndustry(ctx context.Context, resourceID, code string, rank int) error
	LinkTopic(ctx context.Context, resourceID, code string, rank int) error
	GetOrCreateVendor(ctx context.Context, name string) (string, error)
	GetOrCreateOrganization(ctx context.Context, name string) (string, error)
	LinkVendor(ctx context.Context, resourceID, vendorID string) error
	LinkOrganization(ctx context.Context, resourceID, orgID string) error

	// Sources and taxonomies
	SeedSources(ctx context.Context, sources []model.Source) (int64, error)
	ListSources(ctx context.Context, enabledOnly bool) ([]model.Source, error)
	ListTaxonomy(ctx context.Context, kind string) ([]string, error)
	ContentTypeWeights(ctx context.Context) (map[string]float64, error)
	SourceWeights(ctx context.Context) (map[string]float64, error)

	// Agent run bookkeeping
	StartAgentRun(ctx context.Context, run *model.AgentRun) error
	FinishAgentRun(ctx context.Context, id string, status string, errMsg string, metrics map[string]int) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Taxonomy kinds recognised by ListTaxonomy.
const (
	TaxonomyRole              = "role"
	TaxonomyIndustry          = "industry"
	TaxonomyTopic             = "topic"
	TaxonomyContentType       = "content_type"
	TaxonomyGeography         = "geography"
	TaxonomyUseCase           = "use_case"
	TaxonomyAgenticCapability = "agentic_capability"
)
