package state

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bfsi-insights/curation-cli/internal/model"
)

func TestNextHappyPath(t *testing.T) {
	steps := []struct {
		from  model.Status
		event Event
		want  model.Status
	}{
		{model.StatusPending, EventFetchSucceeded, model.StatusFetched},
		{model.StatusFetched, EventFilterAccepted, model.StatusFiltered},
		{model.StatusFiltered, EventEnrichCompleted, model.StatusEnriched},
		{model.StatusEnriched, EventApproved, model.StatusApproved},
		{model.StatusApproved, EventPublished, model.StatusPublished},
	}
	for _, s := range steps {
		got, err := Next(s.from, s.event)
		require.NoError(t, err, "%s on %s", s.event, s.from)
		assert.Equal(t, s.want, got)
	}
}

func TestNextRejectionAndRetryLoops(t *testing.T) {
	tests := []struct {
		name  string
		from  model.Status
		event Event
		want  model.Status
	}{
		{"filter rejects", model.StatusFetched, EventFilterRejected, model.StatusRejected},
		{"enrichment rejects filtered", model.StatusFiltered, EventEnrichRejected, model.StatusRejected},
		{"enrichment rejects manual entry", model.StatusPending, EventEnrichRejected, model.StatusRejected},
		{"manual entry skips fetch", model.StatusPending, EventEnrichCompleted, model.StatusEnriched},
		{"reviewer rejects", model.StatusEnriched, EventRejected, model.StatusRejected},
		{"re-enrich from enriched", model.StatusEnriched, EventReenrich, model.StatusPending},
		{"re-enrich from approved", model.StatusApproved, EventReenrich, model.StatusPending},
		{"rejected url seen again", model.StatusRejected, EventRediscovered, model.StatusPending},
		{"fetch gives up", model.StatusPending, EventFetchExhausted, model.StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.from, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextRejectsInvalidMoves(t *testing.T) {
	invalid := []struct {
		from  model.Status
		event Event
	}{
		{model.StatusPending, EventApproved},
		{model.StatusPublished, EventReenrich},
		{model.StatusFailed, EventRediscovered},
		{model.StatusFetched, EventEnrichCompleted},
	}
	for _, tt := range invalid {
		_, err := Next(tt.from, tt.event)
		require.Error(t, err, "%s on %s", tt.event, tt.from)
		assert.True(t, eris.Is(err, ErrInvalidTransition))
		assert.False(t, Can(tt.from, tt.event))
	}
}

func TestEventsFromIsSortedAndComplete(t *testing.T) {
	events := EventsFrom(model.StatusEnriched)
	assert.Equal(t, []Event{EventApproved, EventReenrich, EventRejected}, events)

	assert.Empty(t, EventsFrom(model.StatusPublished))
	assert.Empty(t, EventsFrom(model.StatusFailed))
}
