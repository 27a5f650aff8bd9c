// Package state defines the ingestion pipeline state machine. Every status
// change in the system goes through Next so the retry and re-enrich loops
// stay auditable in one place.
package state

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/bfsi-insights/curation-cli/internal/model"
)

// Event is a pipeline occurrence that may move an item to a new status.
type Event string

const (
	// EventFetchSucceeded fires when the fetch stage extracted content.
	EventFetchSucceeded Event = "fetch_succeeded"
	// EventFetchExhausted fires when a URL has failed fetching more times
	// than the configured cap and is considered permanently broken.
	EventFetchExhausted Event = "fetch_exhausted"
	// EventFilterAccepted / EventFilterRejected are the relevance filter's
	// binary verdict on a fetched item.
	EventFilterAccepted Event = "filter_accepted"
	EventFilterRejected Event = "filter_rejected"
	// EventEnrichCompleted fires when enrichment produced a valid payload.
	EventEnrichCompleted Event = "enrich_completed"
	// EventEnrichRejected fires when the enrichment model judged the item
	// not BFSI-relevant.
	EventEnrichRejected Event = "enrich_rejected"
	// EventApproved, EventRejected, and EventReenrich are human review
	// actions relayed by the admin UI.
	EventApproved Event = "approved"
	EventRejected Event = "rejected"
	EventReenrich Event = "reenrich"
	// EventPublished fires when the publish stage materialized a resource.
	EventPublished Event = "published"
	// EventRediscovered fires when discovery sees a rejected URL again and
	// resurrects it for re-evaluation.
	EventRediscovered Event = "rediscovered"
)

type transition struct {
	from  model.Status
	event Event
}

// transitions is the full table from the component design: a linear flow
// with the filter/enrichment rejection branches, the discovery retry loop,
// and the human re-enrich loop.
var transitions = map[transition]model.Status{
	{model.StatusPending, EventFetchSucceeded}: model.StatusFetched,
	{model.StatusPending, EventFetchExhausted}: model.StatusFailed,

	{model.StatusFetched, EventFilterAccepted}: model.StatusFiltered,
	{model.StatusFetched, EventFilterRejected}: model.StatusRejected,

	// Enrichment accepts both filtered items and pending items that already
	// carry content from discovery (manually curated entries skip fetch).
	{model.StatusPending, EventEnrichCompleted}:  model.StatusEnriched,
	{model.StatusFiltered, EventEnrichCompleted}: model.StatusEnriched,
	{model.StatusPending, EventEnrichRejected}:   model.StatusRejected,
	{model.StatusFiltered, EventEnrichRejected}:  model.StatusRejected,

	{model.StatusEnriched, EventApproved}: model.StatusApproved,
	{model.StatusEnriched, EventRejected}: model.StatusRejected,
	{model.StatusEnriched, EventReenrich}: model.StatusPending,
	{model.StatusApproved, EventReenrich}: model.StatusPending,

	{model.StatusApproved, EventPublished}: model.StatusPublished,

	{model.StatusRejected, EventRediscovered}: model.StatusPending,
}

// ErrInvalidTransition is the sentinel wrapped by Next for disallowed moves.
var ErrInvalidTransition = eris.New("invalid state transition")

// Next returns the status an item moves to when event occurs in current.
// It is pure: drivers claim rows, compute the next status here, and apply
// it through the store.
func Next(current model.Status, event Event) (model.Status, error) {
	next, ok := transitions[transition{current, event}]
	if !ok {
		return "", eris.Wrapf(ErrInvalidTransition, "%s on %q", event, current)
	}
	return next, nil
}

// Can reports whether event is allowed in current.
func Can(current model.Status, event Event) bool {
	_, ok := transitions[transition{current, event}]
	return ok
}

// EventsFrom returns the events allowed in current, sorted for stable output.
func EventsFrom(current model.Status) []Event {
	var events []Event
	for t := range transitions {
		if t.from == current {
			events = append(events, t.event)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i] < events[j] })
	return events
}
