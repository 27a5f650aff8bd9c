package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bfsi-insights/curation-cli/internal/model"
	"github.com/bfsi-insights/curation-cli/internal/state"
	"github.com/bfsi-insights/curation-cli/internal/store"
)

// Review applies human review decisions to enriched items. Every action is
// validated against the state machine before the store is touched, so a
// stale admin tab can never, say, approve an item that was already
// published.
type Review struct {
	store store.Store
}

func NewReview(s store.Store) *Review {
	return &Review{store: s}
}

func (r *Review) check(ctx context.Context, id string, event state.Event) (*model.QueueItem, error) {
	item, err := r.store.GetQueueItem(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "review: load item")
	}
	if _, err := state.Next(item.Status, event); err != nil {
		return nil, err
	}
	return item, nil
}

// Approve moves an enriched item into the publish queue. An edited title,
// when given, replaces the enriched one.
func (r *Review) Approve(ctx context.Context, id, reviewer, editedTitle string) error {
	if _, err := r.check(ctx, id, state.EventApproved); err != nil {
		return err
	}
	if err := r.store.MarkApproved(ctx, id, reviewer, editedTitle); err != nil {
		return eris.Wrap(err, "review: approve")
	}
	zap.L().Info("item approved", zap.String("id", id), zap.String("reviewer", reviewer))
	return nil
}

// Reject marks an enriched item as not worth publishing, with the reviewer's
// reason preserved for the audit trail.
func (r *Review) Reject(ctx context.Context, id, reviewer, reason string) error {
	if _, err := r.check(ctx, id, state.EventRejected); err != nil {
		return err
	}
	if err := r.store.MarkRejected(ctx, id, reason, reviewer); err != nil {
		return eris.Wrap(err, "review: reject")
	}
	zap.L().Info("item rejected", zap.String("id", id), zap.String("reviewer", reviewer), zap.String("reason", reason))
	return nil
}

// Reenrich sends an enriched or approved item back through enrichment,
// keeping the fetched content so the next pass starts from the same text.
func (r *Review) Reenrich(ctx context.Context, id string) error {
	if _, err := r.check(ctx, id, state.EventReenrich); err != nil {
		return err
	}
	if err := r.store.ReturnForReenrichment(ctx, id); err != nil {
		return eris.Wrap(err, "review: reenrich")
	}
	zap.L().Info("item returned for re-enrichment", zap.String("id", id))
	return nil
}

// Retry resurrects a rejected item: enrichment output and the rejection
// verdict are cleared and the item re-enters the pipeline as pending.
func (r *Review) Retry(ctx context.Context, id string) error {
	if _, err := r.check(ctx, id, state.EventRediscovered); err != nil {
		return err
	}
	if err := r.store.RetryRejected(ctx, id); err != nil {
		return eris.Wrap(err, "review: retry rejected")
	}
	zap.L().Info("rejected item resurrected", zap.String("id", id))
	return nil
}
