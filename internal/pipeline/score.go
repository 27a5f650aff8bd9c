package pipeline

import (
	"math"
	"time"

	"github.com/bfsi-insights/curation-cli/internal/model"
)

// Quality score weights. Reputation dominates because editorial trust in
// the source is the strongest signal we have before a human reads the item.
const (
	weightSourceReputation = 0.35
	weightContentType      = 0.20
	weightRecency          = 0.15
	weightConfidence       = 0.30

	defaultSourceReputation = 0.6
	defaultContentTypeWt    = 0.6
	defaultConfidence       = 0.5
)

// QualityScore computes the composite score for an enriched item. Pure:
// same inputs and clock always give the same answer.
func QualityScore(payload model.Payload, discoveredAt time.Time, tax *model.Taxonomies, now time.Time) float64 {
	srcRep := defaultSourceReputation
	if w, ok := tax.SourceWeights[payload.Source]; ok {
		srcRep = w
	}

	ctWeight := defaultContentTypeWt
	if w, ok := tax.ContentTypeWeights[payload.Tags.ContentType]; ok {
		ctWeight = w
	}

	ref := discoveredAt
	if payload.PublishedAt != nil {
		ref = *payload.PublishedAt
	}

	// Models that skip relevance_confidence get a neutral 0.5, not a zero
	// that would tank the whole score.
	confidence := payload.RelevanceConfidence
	if confidence == 0 {
		confidence = defaultConfidence
	}

	score := weightSourceReputation*srcRep +
		weightContentType*ctWeight +
		weightRecency*recencyScore(ref, now) +
		weightConfidence*confidence

	return math.Round(score*100) / 100
}

// recencyScore bands article age: fresher items surface higher but nothing
// is ever zeroed out, older research still has value.
func recencyScore(ref, now time.Time) float64 {
	age := now.Sub(ref)
	switch {
	case age < 30*24*time.Hour:
		return 1.0
	case age < 90*24*time.Hour:
		return 0.9
	case age < 180*24*time.Hour:
		return 0.8
	default:
		return 0.7
	}
}
