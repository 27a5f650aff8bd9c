package db

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsertEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	n, err := BulkUpsert(context.Background(), mock, UpsertSpec{
		Table:   "kb_source",
		Columns: []string{"slug", "name"},
	}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsertStatement(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO kb_source \(slug, name, tier\) VALUES \(\$1, \$2, \$3\), \(\$4, \$5, \$6\) ON CONFLICT \(slug\) DO UPDATE SET name = EXCLUDED\.name, tier = EXCLUDED\.tier`).
		WithArgs("mck", "McKinsey", "premium", "bis", "BIS", "premium").
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	n, err := BulkUpsert(context.Background(), mock, UpsertSpec{
		Table:        "kb_source",
		Columns:      []string{"slug", "name", "tier"},
		ConflictCols: []string{"slug"},
		UpdateCols:   []string{"name", "tier"},
	}, [][]any{
		{"mck", "McKinsey", "premium"},
		{"bis", "BIS", "premium"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsertDoNothing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO kb_topic \(code\) VALUES \(\$1\) ON CONFLICT \(code\) DO NOTHING`).
		WithArgs("payments").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n, err := BulkUpsert(context.Background(), mock, UpsertSpec{
		Table:        "kb_topic",
		Columns:      []string{"code"},
		ConflictCols: []string{"code"},
	}, [][]any{{"payments"}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsertRowWidthMismatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = BulkUpsert(context.Background(), mock, UpsertSpec{
		Table:   "kb_source",
		Columns: []string{"slug", "name"},
	}, [][]any{{"only-one"}})
	assert.Error(t, err)
}
