package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bfsi-insights/curation-cli/internal/model"
	"github.com/bfsi-insights/curation-cli/internal/store"
)

func newServeStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedEnrichedItem(t *testing.T, s store.Store) *model.QueueItem {
	t.Helper()
	ctx := context.Background()

	item := &model.QueueItem{
		URL: "https://example.com/articles/reviewable",
		Payload: model.Payload{
			Title:       "Open banking risk controls",
			Description: "A look at API risk in open banking programs.",
			Source:      "Test Source",
		},
	}
	inserted, err := s.EnqueueItem(ctx, item)
	require.NoError(t, err)
	require.True(t, inserted)

	require.NoError(t, s.MarkFetched(ctx, item.ID, item.Payload))
	require.NoError(t, s.MarkFiltered(ctx, item.ID, item.Payload))

	payload := item.Payload
	payload.Summary = model.Summary{
		Short:  strings.Repeat("s", 160),
		Medium: strings.Repeat("m", 320),
		Long:   strings.Repeat("l", 800),
	}
	payload.Tags = model.Tags{Role: "cio", Industry: "banking", Topic: "agentic-ai", ContentType: "article", Geography: "global"}
	require.NoError(t, s.MarkEnriched(ctx, item.ID, payload, "v3.0-bfsi-filter", "gpt-5.1", nil))
	return item
}

func TestServeHealth(t *testing.T) {
	router := newRouter(newServeStore(t), []string{"*"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServeQueueListing(t *testing.T) {
	s := newServeStore(t)
	item := seedEnrichedItem(t, s)
	router := newRouter(s, []string{"*"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/queue?status=enriched", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []model.QueueItem `json:"items"`
		Count int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, item.ID, body.Items[0].ID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/queue?status=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/queue/"+item.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/queue/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeReviewActions(t *testing.T) {
	s := newServeStore(t)
	item := seedEnrichedItem(t, s)
	router := newRouter(s, []string{"*"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/queue/"+item.ID+"/approve",
		strings.NewReader(`{"reviewer":"ops@test"}`))
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := s.GetQueueItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)
	require.NotNil(t, got.Reviewer)
	assert.Equal(t, "ops@test", *got.Reviewer)

	// Approving again is not a legal transition and must not be a 500.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/queue/"+item.ID+"/approve",
		strings.NewReader(`{"reviewer":"ops@test"}`))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// A review action on an id that never existed is a 404, not a crash.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/queue/no-such-id/approve",
		strings.NewReader(`{"reviewer":"ops@test"}`))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/queue/"+item.ID+"/reenrich", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	got, err = s.GetQueueItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestServeStatusCounts(t *testing.T) {
	s := newServeStore(t)
	seedEnrichedItem(t, s)
	router := newRouter(s, []string{"*"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var counts map[model.Status]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	assert.Equal(t, 1, counts[model.StatusEnriched])
}
