package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// UpsertSpec describes a batched INSERT ... ON CONFLICT DO UPDATE.
// ConflictCols identifies the unique key; UpdateCols are rewritten from the
// incoming row on conflict. Columns absent from UpdateCols keep their stored
// value.
type UpsertSpec struct {
	Table        string
	Columns      []string
	ConflictCols []string
	UpdateCols   []string
}

// maxParams keeps each statement under the postgres bind limit of 65535.
const maxParams = 60000

// BulkUpsert writes rows in chunks sized to the parameter limit and returns
// the total number of rows affected.
func BulkUpsert(ctx context.Context, pool Pool, spec UpsertSpec, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(spec.Columns) == 0 {
		return 0, eris.New("db: upsert spec has no columns")
	}
	for i, row := range rows {
		if len(row) != len(spec.Columns) {
			return 0, eris.Errorf("db: row %d has %d values, want %d", i, len(row), len(spec.Columns))
		}
	}

	chunkRows := maxParams / len(spec.Columns)
	var total int64
	for start := 0; start < len(rows); start += chunkRows {
		end := start + chunkRows
		if end > len(rows) {
			end = len(rows)
		}
		n, err := upsertChunk(ctx, pool, spec, rows[start:end])
		if err != nil {
			return total, err
		}
		total += n
	}
	zap.S().Debugw("bulk upsert complete", "table", spec.Table, "rows", total)
	return total, nil
}

func upsertChunk(ctx context.Context, pool Pool, spec UpsertSpec, rows [][]any) (int64, error) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(spec.Table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(spec.Columns, ", "))
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(spec.Columns))
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", len(args)+1)
			args = append(args, row[j])
		}
		sb.WriteByte(')')
	}

	if len(spec.ConflictCols) > 0 {
		sb.WriteString(" ON CONFLICT (")
		sb.WriteString(strings.Join(spec.ConflictCols, ", "))
		sb.WriteByte(')')
		if len(spec.UpdateCols) == 0 {
			sb.WriteString(" DO NOTHING")
		} else {
			sb.WriteString(" DO UPDATE SET ")
			for i, col := range spec.UpdateCols {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(col)
				sb.WriteString(" = EXCLUDED.")
				sb.WriteString(col)
			}
		}
	}

	tag, err := pool.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert into %s", spec.Table)
	}
	return tag.RowsAffected(), nil
}
