package model

import "time"

// Resource is a published knowledge-base entry, created exactly once from
// an approved queue item. Multi-value taxonomy, vendor, and organization
// linkage lives in junction rows keyed by the resource id.
type Resource struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Author        string     `json:"author,omitempty"`
	URL           string     `json:"url"`
	CanonicalURL  string     `json:"canonical_url"`
	Slug          string     `json:"slug"`
	DatePublished *time.Time `json:"date_published,omitempty"`
	SourceName    string     `json:"source_name,omitempty"`
	SourceDomain  string     `json:"source_domain,omitempty"`
	SourceSlug    string     `json:"source_slug,omitempty"`
	SummaryShort  string     `json:"summary_short,omitempty"`
	SummaryMedium string     `json:"summary_medium,omitempty"`
	SummaryLong   string     `json:"summary_long,omitempty"`
	Role          string     `json:"role"`
	ContentType   string     `json:"content_type"`
	Geography     string     `json:"geography"`
	Thumbnail     *string    `json:"thumbnail,omitempty"`
	QualityScore  float64    `json:"quality_score,omitempty"`
	OriginQueueID string     `json:"origin_queue_id"`
	PublishedAt   time.Time  `json:"published_at"`
}

// AgentRun records one batch invocation of a pipeline stage for audit and
// the ops dashboard.
type AgentRun struct {
	ID            string         `json:"id"`
	Agent         string         `json:"agent"`
	Stage         string         `json:"stage"`
	ModelID       string         `json:"model_id,omitempty"`
	PromptVersion string         `json:"prompt_version,omitempty"`
	Status        string         `json:"status"`
	Error         string         `json:"error,omitempty"`
	Metrics       map[string]int `json:"metrics,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    *time.Time     `json:"finished_at,omitempty"`
}
