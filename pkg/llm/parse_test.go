package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilterVerdict(t *testing.T) {
	v := parseFilterVerdict(`{"relevant": true, "reason": "covers payment fraud"}`)
	assert.True(t, v.Relevant)
	assert.Equal(t, "covers payment fraud", v.Reason)
}

func TestParseFilterVerdictStripsFences(t *testing.T) {
	v := parseFilterVerdict("```json\n{\"relevant\": false, \"reason\": \"about crop yields\"}\n```")
	assert.False(t, v.Relevant)
	assert.Equal(t, "about crop yields", v.Reason)
}

func TestParseFilterVerdictFallsBackToSubstringScan(t *testing.T) {
	v := parseFilterVerdict(`The article is relevant. {"relevant": true, "reason": "truncated...`)
	assert.True(t, v.Relevant)

	v = parseFilterVerdict(`not json at all`)
	assert.False(t, v.Relevant)
}

func TestParseEnrichment(t *testing.T) {
	content := "```json\n" + `{
		"bfsi_relevant": true,
		"relevance_reason": "core banking topic",
		"relevance_confidence": 0.9,
		"summary": {"short": "s", "medium": "m", "long": "l"},
		"tags": {"role": "cto", "topic": "payments"},
		"persona_scores": {"executive": 0.8, "technical": 0.5, "compliance": 0.3},
		"vendors": ["Temenos"],
		"organizations": ["BIS"]
	}` + "\n```"

	e, err := parseEnrichment(content)
	require.NoError(t, err)
	assert.True(t, e.BFSIRelevant)
	assert.InDelta(t, 0.9, e.RelevanceConfidence, 1e-9)
	assert.Equal(t, "payments", e.Tags.Topic)
	assert.Equal(t, []string{"Temenos"}, e.Vendors)
	assert.InDelta(t, 0.8, e.PersonaScores.Executive, 1e-9)
}

func TestParseEnrichmentRejectsGarbage(t *testing.T) {
	_, err := parseEnrichment("I could not produce JSON today.")
	assert.Error(t, err)
}
