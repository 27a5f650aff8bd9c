package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/bfsi-insights/curation-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Useful for local
// development and tests; production runs on postgres.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One connection keeps :memory: databases coherent and sidesteps
	// SQLITE_BUSY on concurrent writes.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS ingestion_queue (
	id               TEXT PRIMARY KEY,
	url              TEXT NOT NULL,
	url_norm         TEXT NOT NULL UNIQUE,
	status           TEXT NOT NULL DEFAULT 'pending',
	status_code      INTEGER NOT NULL DEFAULT 100,
	payload          TEXT NOT NULL DEFAULT '{}',
	prompt_version   TEXT,
	model_id         TEXT,
	thumb_ref        TEXT,
	rejection_reason TEXT,
	reviewer         TEXT,
	fetch_attempts   INTEGER NOT NULL DEFAULT 0,
	claimed_by       TEXT,
	claimed_at       DATETIME,
	fetched_at       DATETIME,
	reviewed_at      DATETIME,
	discovered_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_queue_status ON ingestion_queue(status);
CREATE INDEX IF NOT EXISTS idx_queue_discovered_at ON ingestion_queue(discovered_at);

CREATE TABLE IF NOT EXISTS kb_resource (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	author         TEXT,
	url            TEXT NOT NULL,
	canonical_url  TEXT NOT NULL UNIQUE,
	slug           TEXT NOT NULL UNIQUE,
	date_published DATE,
	source_name    TEXT,
	source_domain  TEXT,
	source_slug    TEXT,
	summary_short  TEXT NOT NULL,
	summary_medium TEXT NOT NULL,
	summary_long   TEXT NOT NULL,
	role           TEXT,
	content_type   TEXT,
	geography      TEXT,
	thumbnail      TEXT,
	quality_score  REAL NOT NULL DEFAULT 0,
	origin_queue_id TEXT REFERENCES ingestion_queue(id),
	published_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS kb_role               (code TEXT PRIMARY KEY);
CREATE TABLE IF NOT EXISTS kb_industry           (code TEXT PRIMARY KEY);
CREATE TABLE IF NOT EXISTS kb_topic              (code TEXT PRIMARY KEY);
CREATE TABLE IF NOT EXISTS kb_geography          (code TEXT PRIMARY KEY);
CREATE TABLE IF NOT EXISTS kb_use_case           (code TEXT PRIMARY KEY);
CREATE TABLE IF NOT EXISTS kb_agentic_capability (code TEXT PRIMARY KEY);

CREATE TABLE IF NOT EXISTS kb_content_type (
	code   TEXT PRIMARY KEY,
	weight REAL NOT NULL DEFAULT 0.7
);

CREATE TABLE IF NOT EXISTS resource_industry (
	resource_id TEXT NOT NULL,
	code        TEXT NOT NULL,
	rank        INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (resource_id, code)
);

CREATE TABLE IF NOT EXISTS resource_topic (
	resource_id TEXT NOT NULL,
	code        TEXT NOT NULL,
	rank        INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (resource_id, code)
);

CREATE TABLE IF NOT EXISTS ag_vendor (
	id   TEXT PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bfsi_organization (
	id        TEXT PRIMARY KEY,
	name_norm TEXT NOT NULL UNIQUE,
	name      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS resource_vendor (
	resource_id TEXT NOT NULL,
	vendor_id   TEXT NOT NULL,
	PRIMARY KEY (resource_id, vendor_id)
);

CREATE TABLE IF NOT EXISTS resource_organization (
	resource_id     TEXT NOT NULL,
	organization_id TEXT NOT NULL,
	PRIMARY KEY (resource_id, organization_id)
);

CREATE TABLE IF NOT EXISTS kb_source (
	slug       TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	domain     TEXT NOT NULL,
	tier       TEXT NOT NULL DEFAULT 'standard',
	category   TEXT NOT NULL DEFAULT 'publication',
	rss_feed   TEXT,
	enabled    INTEGER NOT NULL DEFAULT 1,
	keywords   TEXT NOT NULL DEFAULT '[]',
	sort_order INTEGER NOT NULL DEFAULT 0,
	weight     REAL
);

CREATE TABLE IF NOT EXISTS agent_runs (
	id             TEXT PRIMARY KEY,
	agent          TEXT NOT NULL,
	stage          TEXT NOT NULL,
	model_id       TEXT,
	prompt_version TEXT,
	status         TEXT NOT NULL DEFAULT 'running',
	error          TEXT,
	metrics        TEXT,
	started_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at    DATETIME
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	_, err := s.db.ExecContext(ctx, taxonomySeed)
	return eris.Wrap(err, "sqlite: seed taxonomies")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteQueueColumns = `id, url, url_norm, status, payload, COALESCE(prompt_version, ''), COALESCE(model_id, ''), thumb_ref,
	rejection_reason, reviewer, fetch_attempts, claimed_by, claimed_at, fetched_at, reviewed_at, discovered_at`

func (s *SQLiteStore) EnqueueItem(ctx context.Context, item *model.QueueItem) (bool, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.URLNorm == "" {
		item.URLNorm = model.NormalizeURL(item.URL)
	}
	if item.Status == "" {
		item.Status = model.StatusPending
	}
	if item.DiscoveredAt.IsZero() {
		item.DiscoveredAt = time.Now().UTC()
	}

	payloadJSON, err := json.Marshal(item.Payload)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: marshal payload")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO ingestion_queue
		 (id, url, url_norm, status, status_code, payload, prompt_version, model_id, discovered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (url_norm) DO NOTHING`,
		item.ID, item.URL, item.URLNorm, string(item.Status), item.Status.Code(),
		string(payloadJSON), item.PromptVersion, item.ModelID, item.DiscoveredAt,
	)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: enqueue item")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) GetQueueItem(ctx context.Context, id string) (*model.QueueItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteQueueColumns+` FROM ingestion_queue WHERE id = ?`, id)
	item, err := scanSQLiteQueueItem(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "queue item %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get queue item %s", id)
	}
	return item, nil
}

func (s *SQLiteStore) ListQueue(ctx context.Context, filter QueueFilter) ([]model.QueueItem, error) {
	query := `SELECT ` + sqliteQueueColumns + ` FROM ingestion_queue WHERE 1=1`
	var args []any

	if len(filter.Statuses) > 0 {
		query += ` AND status IN (`
		for i, st := range filter.Statuses {
			if i > 0 {
				query += `, `
			}
			query += `?`
			args = append(args, string(st))
		}
		query += `)`
	}
	if filter.Source != "" {
		query += ` AND json_extract(payload, '$.source') = ?`
		args = append(args, filter.Source)
	}
	query += ` ORDER BY discovered_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list queue")
	}
	defer rows.Close()

	var items []model.QueueItem
	for rows.Next() {
		item, err := scanSQLiteQueueItem(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan queue item")
		}
		items = append(items, *item)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: list queue iterate")
}

// ClaimItems selects candidates then claims each one with a conditional
// update inside a transaction. SQLite has a single writer, so the row-level
// locking dance postgres needs does not apply.
func (s *SQLiteStore) ClaimItems(ctx context.Context, opts ClaimOptions) ([]model.QueueItem, error) {
	if len(opts.Statuses) == 0 {
		return nil, eris.New("sqlite: claim requires at least one status")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	staleAfter := opts.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	staleBefore := time.Now().UTC().Add(-staleAfter)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin claim")
	}
	defer tx.Rollback()

	query := `SELECT ` + sqliteQueueColumns + ` FROM ingestion_queue WHERE status IN (`
	var args []any
	for i, st := range opts.Statuses {
		if i > 0 {
			query += `, `
		}
		query += `?`
		args = append(args, string(st))
	}
	query += `) AND (claimed_at IS NULL OR claimed_at < ?)`
	args = append(args, staleBefore)

	if opts.EnrichReady {
		query += ` AND (status <> 'pending'
			OR (COALESCE(json_extract(payload, '$.title'), '') <> ''
				AND COALESCE(json_extract(payload, '$.description'), '') <> ''
				AND COALESCE(json_extract(payload, '$.summary.short'), '') = ''))`
	}
	if opts.Source != "" {
		query += ` AND json_extract(payload, '$.source') = ?`
		args = append(args, opts.Source)
	}
	query += ` ORDER BY discovered_at ASC LIMIT ?`
	args = append(args, limit)

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: claim select")
	}

	var items []model.QueueItem
	for rows.Next() {
		item, err := scanSQLiteQueueItem(rows)
		if err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "sqlite: scan claim candidate")
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, eris.Wrap(err, "sqlite: claim iterate")
	}
	rows.Close()

	now := time.Now().UTC()
	for i := range items {
		if _, err := tx.ExecContext(ctx,
			`UPDATE ingestion_queue SET claimed_by = ?, claimed_at = ? WHERE id = ?`,
			opts.Worker, now, items[i].ID,
		); err != nil {
			return nil, eris.Wrapf(err, "sqlite: claim %s", items[i].ID)
		}
		items[i].ClaimedBy = &opts.Worker
		items[i].ClaimedAt = &now
	}
	return items, eris.Wrap(tx.Commit(), "sqlite: commit claim")
}

func (s *SQLiteStore) ReleaseClaim(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE ingestion_queue SET claimed_by = NULL, claimed_at = NULL WHERE id = ?`, id)
	return eris.Wrapf(err, "sqlite: release claim %s", id)
}

func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[model.Status]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM ingestion_queue GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count by status")
	}
	defer rows.Close()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan status count")
		}
		counts[model.Status(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count iterate")
}

func (s *SQLiteStore) MarkFetched(ctx context.Context, id string, payload model.Payload) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal payload")
	}
	return s.setStatus(ctx, id, model.StatusFetched,
		`payload = ?, fetched_at = datetime('now'), claimed_by = NULL, claimed_at = NULL`,
		string(payloadJSON))
}

func (s *SQLiteStore) RecordFetchFailure(ctx context.Context, id string) (int, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE ingestion_queue
		 SET fetch_attempts = fetch_attempts + 1, claimed_by = NULL, claimed_at = NULL, updated_at = datetime('now')
		 WHERE id = ?`, id)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: record fetch failure %s", id)
	}
	var attempts int
	err = s.db.QueryRowContext(ctx,
		`SELECT fetch_attempts FROM ingestion_queue WHERE id = ?`, id).Scan(&attempts)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: read fetch attempts %s", id)
	}
	return attempts, nil
}

func (s *SQLiteStore) MarkFailed(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, model.StatusFailed, `claimed_by = NULL, claimed_at = NULL`)
}

func (s *SQLiteStore) MarkFiltered(ctx context.Context, id string, payload model.Payload) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal payload")
	}
	return s.setStatus(ctx, id, model.StatusFiltered,
		`payload = ?, claimed_by = NULL, claimed_at = NULL`, string(payloadJSON))
}

func (s *SQLiteStore) MarkEnriched(ctx context.Context, id string, payload model.Payload, promptVersion, modelID string, thumbRef *string) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal payload")
	}
	return s.setStatus(ctx, id, model.StatusEnriched,
		`payload = ?, prompt_version = ?, model_id = ?, thumb_ref = ?, claimed_by = NULL, claimed_at = NULL`,
		string(payloadJSON), promptVersion, modelID, thumbRef)
}

func (s *SQLiteStore) MarkRejected(ctx context.Context, id string, reason string, reviewer string) error {
	return s.setStatus(ctx, id, model.StatusRejected,
		`rejection_reason = ?, reviewer = NULLIF(?, ''), reviewed_at = datetime('now'), claimed_by = NULL, claimed_at = NULL`,
		reason, reviewer)
}

func (s *SQLiteStore) MarkApproved(ctx context.Context, id string, reviewer string, editedTitle string) error {
	if editedTitle != "" {
		return s.setStatus(ctx, id, model.StatusApproved,
			`reviewer = NULLIF(?, ''), reviewed_at = datetime('now'),
			 payload = json_set(payload, '$.title', ?)`, reviewer, editedTitle)
	}
	return s.setStatus(ctx, id, model.StatusApproved,
		`reviewer = NULLIF(?, ''), reviewed_at = datetime('now')`, reviewer)
}

func (s *SQLiteStore) MarkPublished(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, model.StatusPublished,
		`reviewed_at = COALESCE(reviewed_at, datetime('now')), claimed_by = NULL, claimed_at = NULL`)
}

func (s *SQLiteStore) RetryRejected(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ingestion_queue
		 SET status = ?, status_code = ?,
		     payload = json_remove(payload, '$.summary', '$.tags', '$.persona_scores'),
		     rejection_reason = NULL, reviewer = NULL, reviewed_at = NULL,
		     claimed_by = NULL, claimed_at = NULL, updated_at = datetime('now')
		 WHERE id = ? AND status = ?`,
		string(model.StatusPending), model.StatusPending.Code(), id, string(model.StatusRejected),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: retry rejected %s", id)
	}
	return checkRowsAffected(res, "rejected queue item", id)
}

func (s *SQLiteStore) ResurrectRejected(ctx context.Context, urlNorm string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ingestion_queue
		 SET status = ?, status_code = ?,
		     payload = json_remove(payload, '$.summary', '$.tags', '$.persona_scores'),
		     rejection_reason = NULL, reviewer = NULL, reviewed_at = NULL,
		     claimed_by = NULL, claimed_at = NULL, updated_at = datetime('now')
		 WHERE url_norm = ? AND status = ?`,
		string(model.StatusPending), model.StatusPending.Code(), urlNorm, string(model.StatusRejected),
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: resurrect rejected %s", urlNorm)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) ReturnForReenrichment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ingestion_queue
		 SET status = ?, status_code = ?, claimed_by = NULL, claimed_at = NULL, updated_at = datetime('now')
		 WHERE id = ? AND status IN (?, ?)`,
		string(model.StatusPending), model.StatusPending.Code(), id,
		string(model.StatusEnriched), string(model.StatusApproved),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: return for reenrichment %s", id)
	}
	return checkRowsAffected(res, "enriched or approved queue item", id)
}

func (s *SQLiteStore) setStatus(ctx context.Context, id string, status model.Status, extraSet string, extraArgs ...any) error {
	query := `UPDATE ingestion_queue SET status = ?, status_code = ?, updated_at = datetime('now')`
	if extraSet != "" {
		query += ", " + extraSet
	}
	query += ` WHERE id = ?`

	args := append([]any{string(status), status.Code()}, extraArgs...)
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set status %s on %s", status, id)
	}
	return checkRowsAffected(res, "queue item", id)
}

// Published resources

func (s *SQLiteStore) ResourceExists(ctx context.Context, canonicalURL string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM kb_resource WHERE canonical_url = ?)`,
		canonicalURL,
	).Scan(&exists)
	return exists, eris.Wrap(err, "sqlite: resource exists")
}

func (s *SQLiteStore) InsertResource(ctx context.Context, res *model.Resource) error {
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	if res.PublishedAt.IsZero() {
		res.PublishedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kb_resource
		 (id, title, author, url, canonical_url, slug, date_published,
		  source_name, source_domain, source_slug,
		  summary_short, summary_medium, summary_long,
		  role, content_type, geography, thumbnail, quality_score, origin_queue_id, published_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.Title, res.Author, res.URL, res.CanonicalURL, res.Slug, res.DatePublished,
		res.SourceName, res.SourceDomain, res.SourceSlug,
		res.SummaryShort, res.SummaryMedium, res.SummaryLong,
		res.Role, res.ContentType, res.Geography, res.Thumbnail, res.QualityScore,
		res.OriginQueueID, res.PublishedAt,
	)
	return eris.Wrap(err, "sqlite: insert resource")
}

func (s *SQLiteStore) LinkIndustry(ctx context.Context, resourceID, code string, rank int) error {
	return s.linkTaxonomy(ctx, "resource_industry", resourceID, code, rank)
}

func (s *SQLiteStore) LinkTopic(ctx context.Context, resourceID, code string, rank int) error {
	return s.linkTaxonomy(ctx, "resource_topic", resourceID, code, rank)
}

func (s *SQLiteStore) linkTaxonomy(ctx context.Context, table, resourceID, code string, rank int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+table+` (resource_id, code, rank) VALUES (?, ?, ?)
		 ON CONFLICT (resource_id, code) DO UPDATE SET rank = excluded.rank`,
		resourceID, code, rank,
	)
	return eris.Wrapf(err, "sqlite: link %s", table)
}

func (s *SQLiteStore) GetOrCreateVendor(ctx context.Context, name string) (string, error) {
	slug := model.Slugify(name)
	var id string
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO ag_vendor (id, slug, name) VALUES (?, ?, ?)
		 ON CONFLICT (slug) DO UPDATE SET slug = excluded.slug
		 RETURNING id`,
		uuid.New().String(), slug, name,
	).Scan(&id)
	return id, eris.Wrapf(err, "sqlite: get or create vendor %s", slug)
}

func (s *SQLiteStore) GetOrCreateOrganization(ctx context.Context, name string) (string, error) {
	norm := model.NormalizeName(name)
	var id string
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO bfsi_organization (id, name_norm, name) VALUES (?, ?, ?)
		 ON CONFLICT (name_norm) DO UPDATE SET name_norm = excluded.name_norm
		 RETURNING id`,
		uuid.New().String(), norm, name,
	).Scan(&id)
	return id, eris.Wrapf(err, "sqlite: get or create organization %s", norm)
}

func (s *SQLiteStore) LinkVendor(ctx context.Context, resourceID, vendorID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resource_vendor (resource_id, vendor_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		resourceID, vendorID,
	)
	return eris.Wrap(err, "sqlite: link vendor")
}

func (s *SQLiteStore) LinkOrganization(ctx context.Context, resourceID, orgID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resource_organization (resource_id, organization_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		resourceID, orgID,
	)
	return eris.Wrap(err, "sqlite: link organization")
}

// Sources and taxonomies

func (s *SQLiteStore) SeedSources(ctx context.Context, sources []model.Source) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin seed")
	}
	defer tx.Rollback()

	var total int64
	for _, src := range sources {
		keywordsJSON, err := json.Marshal(src.Keywords)
		if err != nil {
			return total, eris.Wrapf(err, "sqlite: marshal keywords for %s", src.Slug)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO kb_source (slug, name, domain, tier, category, rss_feed, enabled, keywords, sort_order)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (slug) DO UPDATE SET
			   name = excluded.name, domain = excluded.domain, tier = excluded.tier,
			   category = excluded.category, rss_feed = excluded.rss_feed,
			   enabled = excluded.enabled, keywords = excluded.keywords, sort_order = excluded.sort_order`,
			src.Slug, src.Name, src.Domain, src.Tier, src.Category,
			src.RSSFeed, src.Enabled, string(keywordsJSON), src.SortOrder,
		)
		if err != nil {
			return total, eris.Wrapf(err, "sqlite: seed source %s", src.Slug)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, eris.Wrap(tx.Commit(), "sqlite: commit seed")
}

func (s *SQLiteStore) ListSources(ctx context.Context, enabledOnly bool) ([]model.Source, error) {
	query := `SELECT slug, name, domain, tier, category, COALESCE(rss_feed, ''), enabled, keywords, sort_order
	          FROM kb_source`
	if enabledOnly {
		query += ` WHERE enabled`
	}
	query += ` ORDER BY sort_order, slug`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sources")
	}
	defer rows.Close()

	var sources []model.Source
	for rows.Next() {
		var src model.Source
		var keywordsJSON string
		if err := rows.Scan(&src.Slug, &src.Name, &src.Domain, &src.Tier, &src.Category,
			&src.RSSFeed, &src.Enabled, &keywordsJSON, &src.SortOrder); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan source")
		}
		if err := json.Unmarshal([]byte(keywordsJSON), &src.Keywords); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal keywords")
		}
		sources = append(sources, src)
	}
	return sources, eris.Wrap(rows.Err(), "sqlite: list sources iterate")
}

func (s *SQLiteStore) ListTaxonomy(ctx context.Context, kind string) ([]string, error) {
	table, ok := taxonomyTables[kind]
	if !ok {
		return nil, eris.Errorf("sqlite: unknown taxonomy kind %q", kind)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT code FROM `+table+` ORDER BY code`)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list taxonomy %s", kind)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan taxonomy code")
		}
		codes = append(codes, code)
	}
	return codes, eris.Wrap(rows.Err(), "sqlite: taxonomy iterate")
}

func (s *SQLiteStore) ContentTypeWeights(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, weight FROM kb_content_type`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: content type weights")
	}
	defer rows.Close()

	weights := make(map[string]float64)
	for rows.Next() {
		var code string
		var w float64
		if err := rows.Scan(&code, &w); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan content type weight")
		}
		weights[code] = w
	}
	return weights, eris.Wrap(rows.Err(), "sqlite: weights iterate")
}

func (s *SQLiteStore) SourceWeights(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, tier, category, weight FROM kb_source`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: source weights")
	}
	defer rows.Close()

	weights := make(map[string]float64)
	for rows.Next() {
		var name, tier, category string
		var explicit sql.NullFloat64
		if err := rows.Scan(&name, &tier, &category, &explicit); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan source weight")
		}
		if explicit.Valid {
			weights[name] = explicit.Float64
		} else {
			weights[name] = model.BlendSourceWeight(tier, category)
		}
	}
	return weights, eris.Wrap(rows.Err(), "sqlite: source weights iterate")
}

// Agent run bookkeeping

func (s *SQLiteStore) StartAgentRun(ctx context.Context, run *model.AgentRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = "running"

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agent_runs (id, agent, stage, model_id, prompt_version, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Agent, run.Stage, run.ModelID, run.PromptVersion, run.Status, run.StartedAt,
	)
	return eris.Wrap(err, "sqlite: start agent run")
}

func (s *SQLiteStore) FinishAgentRun(ctx context.Context, id string, status string, errMsg string, metrics map[string]int) error {
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run metrics")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE agent_runs SET status = ?, error = NULLIF(?, ''), metrics = ?, finished_at = datetime('now') WHERE id = ?`,
		status, errMsg, string(metricsJSON), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish agent run %s", id)
	}
	return checkRowsAffected(res, "agent run", id)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteQueueItem(row scannable) (*model.QueueItem, error) {
	var item model.QueueItem
	var status, payloadJSON string

	err := row.Scan(&item.ID, &item.URL, &item.URLNorm, &status, &payloadJSON,
		&item.PromptVersion, &item.ModelID, &item.ThumbRef,
		&item.RejectionReason, &item.Reviewer, &item.FetchAttempts,
		&item.ClaimedBy, &item.ClaimedAt, &item.FetchedAt, &item.ReviewedAt, &item.DiscoveredAt)
	if err != nil {
		return nil, err
	}
	item.Status = model.Status(status)
	item.StatusCode = item.Status.Code()
	if payloadJSON != "" {
		if err := json.Unmarshal([]byte(payloadJSON), &item.Payload); err != nil {
			return nil, eris.Wrap(err, "unmarshal payload")
		}
	}
	return &item, nil
}
