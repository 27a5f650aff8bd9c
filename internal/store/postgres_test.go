package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bfsi-insights/curation-cli/internal/model"
)

func testTime(t *testing.T) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, "2026-08-01T09:00:00Z")
	require.NoError(t, err)
	return ts
}

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestEnqueueItemDeduplicates(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO ingestion_queue`).
		WithArgs(pgxmock.AnyArg(), "https://example.com/Report?utm=x", "https://example.com/report",
			"pending", 100, pgxmock.AnyArg(), "v1", "discovery-rss", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO ingestion_queue`).
		WithArgs(pgxmock.AnyArg(), "https://example.com/Report?utm=x", "https://example.com/report",
			"pending", 100, pgxmock.AnyArg(), "v1", "discovery-rss", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	item := &model.QueueItem{
		URL:           "https://example.com/Report?utm=x",
		PromptVersion: "v1",
		ModelID:       "discovery-rss",
	}
	inserted, err := s.EnqueueItem(context.Background(), item)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "https://example.com/report", item.URLNorm)

	again := &model.QueueItem{
		URL:           "https://example.com/Report?utm=x",
		PromptVersion: "v1",
		ModelID:       "discovery-rss",
	}
	inserted, err = s.EnqueueItem(context.Background(), again)
	require.NoError(t, err)
	assert.False(t, inserted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimItemsUsesSkipLocked(t *testing.T) {
	s, mock := newMockStore(t)

	cols := []string{"id", "url", "url_norm", "status", "payload", "prompt_version", "model_id",
		"thumb_ref", "rejection_reason", "reviewer", "fetch_attempts", "claimed_by", "claimed_at",
		"fetched_at", "reviewed_at", "discovered_at"}
	worker := "fetch-agent-1"
	mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
		WithArgs([]string{"pending"}, pgxmock.AnyArg(), 5, worker).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			"q1", "https://example.com/a", "https://example.com/a", "pending", []byte(`{"title":"A"}`),
			"v1", "discovery-rss", nil, nil, nil, 0, nil, nil, nil, nil, testTime(t),
		))

	items, err := s.ClaimItems(context.Background(), ClaimOptions{
		Statuses: []model.Status{model.StatusPending},
		Limit:    5,
		Worker:   worker,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "q1", items[0].ID)
	assert.Equal(t, model.StatusPending, items[0].Status)
	assert.Equal(t, "A", items[0].Payload.Title)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRejectedSetsReviewFields(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE ingestion_queue SET status = \$1, status_code = \$2`).
		WithArgs("rejected", 540, "q1", "not bfsi relevant", "filter-agent").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.MarkRejected(context.Background(), "q1", "not bfsi relevant", "filter-agent")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetryRejectedOnlyTouchesRejected(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`WHERE id = \$3 AND status = \$4`).
		WithArgs("pending", 100, "q1", "rejected").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.RetryRejected(context.Background(), "q1")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkEnrichedStampsProvenance(t *testing.T) {
	s, mock := newMockStore(t)

	thumb := "thumbs/q1.jpg"
	mock.ExpectExec(`UPDATE ingestion_queue SET status = \$1, status_code = \$2`).
		WithArgs("enriched", 300, "q1", pgxmock.AnyArg(), "v3.0-bfsi-filter", "gpt-5.1", &thumb).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.MarkEnriched(context.Background(), "q1", model.Payload{Title: "A"}, "v3.0-bfsi-filter", "gpt-5.1", &thumb)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
