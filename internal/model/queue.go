package model

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Status represents the pipeline state of an ingestion queue item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusFetched   Status = "fetched"
	StatusFiltered  Status = "filtered"
	StatusEnriched  Status = "enriched"
	StatusApproved  Status = "approved"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
	StatusFailed    Status = "failed"
)

// statusCodes maps statuses into the numeric bands the review UI groups by:
// discovery <200, pending-enrichment 200s, review 300s, published 400s,
// terminal 500s.
var statusCodes = map[Status]int{
	StatusPending:   100,
	StatusFetched:   110,
	StatusFiltered:  200,
	StatusEnriched:  300,
	StatusApproved:  310,
	StatusPublished: 400,
	StatusFailed:    500,
	StatusRejected:  540,
}

// Code returns the numeric status code for s, or 0 for unknown statuses.
func (s Status) Code() int {
	return statusCodes[s]
}

// Valid reports whether s is a known pipeline status.
func (s Status) Valid() bool {
	_, ok := statusCodes[s]
	return ok
}

// Terminal reports whether s ends the pipeline for an item. Rejected is
// terminal for the pipeline but may still be resurrected by discovery.
func (s Status) Terminal() bool {
	return s == StatusPublished || s == StatusRejected || s == StatusFailed
}

// Summary holds the three summary tiers produced by enrichment. Empty
// strings mean "not yet generated"; an item is visible to human review only
// once Short is non-empty.
type Summary struct {
	Short  string `json:"short,omitempty"`
	Medium string `json:"medium,omitempty"`
	Long   string `json:"long,omitempty"`
}

// Empty reports whether no summary tier has been generated.
func (s Summary) Empty() bool {
	return s.Short == "" && s.Medium == "" && s.Long == ""
}

// Tags holds the taxonomy classification for an item. Every field is a
// single code; multi-value linkage happens through junction rows at publish
// time, never by packing separators into these strings.
type Tags struct {
	Role                string `json:"role,omitempty"`
	Industry            string `json:"industry,omitempty"`
	Topic               string `json:"topic,omitempty"`
	ContentType         string `json:"content_type,omitempty"`
	Geography           string `json:"geography,omitempty"`
	UseCases            string `json:"use_cases,omitempty"`
	AgenticCapabilities string `json:"agentic_capabilities,omitempty"`
}

// Empty reports whether no tag has been assigned.
func (t Tags) Empty() bool {
	return t == Tags{}
}

// Fields returns tag name/value pairs for validation and junction building.
func (t Tags) Fields() map[string]string {
	return map[string]string{
		"role":                 t.Role,
		"industry":             t.Industry,
		"topic":                t.Topic,
		"content_type":         t.ContentType,
		"geography":            t.Geography,
		"use_cases":            t.UseCases,
		"agentic_capabilities": t.AgenticCapabilities,
	}
}

// PersonaScores holds per-audience relevance in [0,1].
type PersonaScores struct {
	Executive  float64 `json:"executive"`
	Technical  float64 `json:"technical"`
	Compliance float64 `json:"compliance"`
}

// Payload is the semi-structured document carried by a queue item through
// the pipeline. Discovery seeds it, fetch overwrites the content fields,
// enrichment fills the rest.
type Payload struct {
	Title               string        `json:"title,omitempty"`
	Authors             []string      `json:"authors,omitempty"`
	Source              string        `json:"source,omitempty"`
	Description         string        `json:"description,omitempty"`
	Content             string        `json:"content,omitempty"`
	ImageURL            string        `json:"image_url,omitempty"`
	PublishedAt         *time.Time    `json:"published_at,omitempty"`
	FilterReason        string        `json:"filter_reason,omitempty"`
	Summary             Summary       `json:"summary"`
	Tags                Tags          `json:"tags"`
	PersonaScores       PersonaScores `json:"persona_scores,omitempty"`
	QualityScore        float64       `json:"quality_score,omitempty"`
	RelevanceConfidence float64       `json:"relevance_confidence,omitempty"`
	Vendors             []string      `json:"vendors,omitempty"`
	Organizations       []string      `json:"organizations,omitempty"`
}

// QueueItem is a candidate content record tracked through the pipeline.
type QueueItem struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	URLNorm         string     `json:"url_norm"`
	Status          Status     `json:"status"`
	StatusCode      int        `json:"status_code"`
	Payload         Payload    `json:"payload"`
	PromptVersion   string     `json:"prompt_version,omitempty"`
	ModelID         string     `json:"model_id,omitempty"`
	ThumbRef        *string    `json:"thumb_ref,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	Reviewer        *string    `json:"reviewer,omitempty"`
	FetchAttempts   int        `json:"fetch_attempts"`
	ClaimedBy       *string    `json:"claimed_by,omitempty"`
	ClaimedAt       *time.Time `json:"claimed_at,omitempty"`
	DiscoveredAt    time.Time  `json:"discovered_at"`
	FetchedAt       *time.Time `json:"fetched_at,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
}

var trailingJunk = regexp.MustCompile(`[?#].*$`)

// NormalizeURL reduces a URL to its dedup identity: origin plus path,
// lowercased, query and fragment stripped. Unparseable input falls back to
// a lowercased string with query/fragment removed.
func NormalizeURL(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return trailingJunk.ReplaceAllString(strings.ToLower(strings.TrimSpace(raw)), "")
	}
	return strings.ToLower(parsed.Scheme + "://" + parsed.Host + parsed.Path)
}
