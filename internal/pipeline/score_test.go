package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bfsi-insights/curation-cli/internal/model"
)

func scoreClock() time.Time {
	return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
}

func TestQualityScoreDefaults(t *testing.T) {
	// Unknown source and content type fall back to 0.6 each. Ten days old,
	// confidence 0.8: 0.35*0.6 + 0.20*0.6 + 0.15*1.0 + 0.30*0.8 = 0.72.
	now := scoreClock()
	published := now.Add(-10 * 24 * time.Hour)
	payload := model.Payload{
		Source:              "Some Unknown Blog",
		PublishedAt:         &published,
		RelevanceConfidence: 0.8,
	}
	tax := &model.Taxonomies{}

	got := QualityScore(payload, now.Add(-12*24*time.Hour), tax, now)
	assert.InDelta(t, 0.72, got, 0.001)
}

func TestQualityScoreKnownSourceAndType(t *testing.T) {
	now := scoreClock()
	published := now.Add(-5 * 24 * time.Hour)
	payload := model.Payload{
		Source:              "Bank for International Settlements",
		PublishedAt:         &published,
		RelevanceConfidence: 1.0,
		Tags:                model.Tags{ContentType: "research-paper"},
	}
	tax := &model.Taxonomies{
		SourceWeights:      map[string]float64{"Bank for International Settlements": 1.0},
		ContentTypeWeights: map[string]float64{"research-paper": 0.9},
	}

	// 0.35*1.0 + 0.20*0.9 + 0.15*1.0 + 0.30*1.0 = 0.98.
	got := QualityScore(payload, now, tax, now)
	assert.InDelta(t, 0.98, got, 0.001)
}

func TestQualityScoreRecencyBands(t *testing.T) {
	now := scoreClock()
	tax := &model.Taxonomies{}

	// Everything but recency is held constant at
	// 0.35*0.6 + 0.20*0.6 + 0.30*0.5 = 0.48; expectations are the
	// two-decimal rounded composites.
	cases := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"fresh", 10 * 24 * time.Hour, 0.63},
		{"quarter", 45 * 24 * time.Hour, 0.62},
		{"half year", 120 * 24 * time.Hour, 0.60},
		{"archive", 400 * 24 * time.Hour, 0.59},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			published := now.Add(-tc.age)
			payload := model.Payload{PublishedAt: &published, RelevanceConfidence: 0.5}
			got := QualityScore(payload, now, tax, now)
			assert.InDelta(t, tc.want, got, 0.001)
		})
	}
}

func TestQualityScoreDefaultsAbsentConfidence(t *testing.T) {
	// A model response without relevance_confidence scores as a neutral
	// 0.5: 0.35*0.6 + 0.20*0.6 + 0.15*1.0 + 0.30*0.5 = 0.63.
	now := scoreClock()
	published := now.Add(-10 * 24 * time.Hour)
	payload := model.Payload{
		Source:      "Some Unknown Blog",
		PublishedAt: &published,
	}

	got := QualityScore(payload, now.Add(-12*24*time.Hour), &model.Taxonomies{}, now)
	assert.InDelta(t, 0.63, got, 0.001)
}

func TestQualityScoreFallsBackToDiscoveryDate(t *testing.T) {
	now := scoreClock()
	payload := model.Payload{RelevanceConfidence: 0.8}
	tax := &model.Taxonomies{}

	fresh := QualityScore(payload, now.Add(-24*time.Hour), tax, now)
	old := QualityScore(payload, now.Add(-200*24*time.Hour), tax, now)
	assert.Greater(t, fresh, old)
}
