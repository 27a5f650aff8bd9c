package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelevantMatchesBFSIKeyword(t *testing.T) {
	ok, reason := Relevant("AI agents reshape retail banking", "", nil)
	assert.True(t, ok)
	assert.Contains(t, reason, "banking")
}

func TestRelevantExclusionWins(t *testing.T) {
	// "insurance" would match, but the medical context disqualifies it.
	ok, reason := Relevant("Health insurance claims and patient outcomes", "", nil)
	assert.False(t, ok)
	assert.Contains(t, reason, "patient")
}

func TestRelevantSourceKeywords(t *testing.T) {
	ok, _ := Relevant("Generative models in enterprise software", "", nil)
	assert.False(t, ok)

	ok, reason := Relevant("Generative models in enterprise software", "", []string{"enterprise"})
	assert.True(t, ok)
	assert.Contains(t, reason, "enterprise")
}

func TestRelevantWordBoundaries(t *testing.T) {
	// "embankment" must not match "bank".
	ok, _ := Relevant("River embankment restoration project", "", nil)
	assert.False(t, ok)
}

func TestRelevantScansDescription(t *testing.T) {
	ok, _ := Relevant("Quarterly review", "New AML screening rules for payment providers", nil)
	assert.True(t, ok)
}
