package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/bfsi-insights/curation-cli/internal/db"
	"github.com/bfsi-insights/curation-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest queue operations.
var preparedStatements = map[string]string{
	"get_queue_item":    `SELECT ` + queueColumns + ` FROM ingestion_queue WHERE id = $1`,
	"release_claim":     `UPDATE ingestion_queue SET claimed_by = NULL, claimed_at = NULL WHERE id = $1`,
	"resource_exists":   `SELECT EXISTS (SELECT 1 FROM kb_resource WHERE canonical_url = $1)`,
	"count_by_status":   `SELECT status, COUNT(*) FROM ingestion_queue GROUP BY status`,
	"fetch_failure":     `UPDATE ingestion_queue SET fetch_attempts = fetch_attempts + 1 WHERE id = $1 RETURNING fetch_attempts`,
	"finish_agent_run":  `UPDATE agent_runs SET status = $1, error = NULLIF($2, ''), metrics = $3, finished_at = now() WHERE id = $4`,
}

const queueColumns = `id, url, url_norm, status, payload, COALESCE(prompt_version, ''), COALESCE(model_id, ''), thumb_ref,
	rejection_reason, reviewer, fetch_attempts, claimed_by, claimed_at, fetched_at, reviewed_at, discovered_at`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

// Pool returns the underlying database pool for subsystems that need
// direct query access (e.g., bulk seeding).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS ingestion_queue (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	url              TEXT NOT NULL,
	url_norm         TEXT NOT NULL UNIQUE,
	status           TEXT NOT NULL DEFAULT 'pending',
	status_code      INTEGER NOT NULL DEFAULT 100,
	payload          JSONB NOT NULL DEFAULT '{}'::jsonb,
	prompt_version   TEXT,
	model_id         TEXT,
	thumb_ref        TEXT,
	rejection_reason TEXT,
	reviewer         TEXT,
	fetch_attempts   INTEGER NOT NULL DEFAULT 0,
	claimed_by       TEXT,
	claimed_at       TIMESTAMPTZ,
	fetched_at       TIMESTAMPTZ,
	reviewed_at      TIMESTAMPTZ,
	discovered_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_queue_status ON ingestion_queue(status);
CREATE INDEX IF NOT EXISTS idx_queue_claimed_at ON ingestion_queue(claimed_at);
CREATE INDEX IF NOT EXISTS idx_queue_discovered_at ON ingestion_queue(discovered_at);

CREATE TABLE IF NOT EXISTS kb_resource (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
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
	quality_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
	origin_queue_id TEXT REFERENCES ingestion_queue(id),
	published_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_resource_canonical ON kb_resource(canonical_url);

CREATE TABLE IF NOT EXISTS kb_role               (code TEXT PRIMARY KEY);
CREATE TABLE IF NOT EXISTS kb_industry           (code TEXT PRIMARY KEY);
CREATE TABLE IF NOT EXISTS kb_topic              (code TEXT PRIMARY KEY);
CREATE TABLE IF NOT EXISTS kb_geography          (code TEXT PRIMARY KEY);
CREATE TABLE IF NOT EXISTS kb_use_case           (code TEXT PRIMARY KEY);
CREATE TABLE IF NOT EXISTS kb_agentic_capability (code TEXT PRIMARY KEY);

CREATE TABLE IF NOT EXISTS kb_content_type (
	code   TEXT PRIMARY KEY,
	weight DOUBLE PRECISION NOT NULL DEFAULT 0.7
);

CREATE TABLE IF NOT EXISTS resource_industry (
	resource_id TEXT NOT NULL REFERENCES kb_resource(id),
	code        TEXT NOT NULL REFERENCES kb_industry(code),
	rank        INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (resource_id, code)
);

CREATE TABLE IF NOT EXISTS resource_topic (
	resource_id TEXT NOT NULL REFERENCES kb_resource(id),
	code        TEXT NOT NULL REFERENCES kb_topic(code),
	rank        INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (resource_id, code)
);

CREATE TABLE IF NOT EXISTS ag_vendor (
	id        TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	slug      TEXT NOT NULL UNIQUE,
	name      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS bfsi_organization (
	id        TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name_norm TEXT NOT NULL UNIQUE,
	name      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS resource_vendor (
	resource_id TEXT NOT NULL REFERENCES kb_resource(id),
	vendor_id   TEXT NOT NULL REFERENCES ag_vendor(id),
	PRIMARY KEY (resource_id, vendor_id)
);

CREATE TABLE IF NOT EXISTS resource_organization (
	resource_id     TEXT NOT NULL REFERENCES kb_resource(id),
	organization_id TEXT NOT NULL REFERENCES bfsi_organization(id),
	PRIMARY KEY (resource_id, organization_id)
);

CREATE TABLE IF NOT EXISTS kb_source (
	slug       TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	domain     TEXT NOT NULL,
	tier       TEXT NOT NULL DEFAULT 'standard',
	category   TEXT NOT NULL DEFAULT 'publication',
	rss_feed   TEXT,
	enabled    BOOLEAN NOT NULL DEFAULT true,
	keywords   JSONB NOT NULL DEFAULT '[]'::jsonb,
	sort_order INTEGER NOT NULL DEFAULT 0,
	weight     DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS agent_runs (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	agent          TEXT NOT NULL,
	stage          TEXT NOT NULL,
	model_id       TEXT,
	prompt_version TEXT,
	status         TEXT NOT NULL DEFAULT 'running',
	error          TEXT,
	metrics        JSONB,
	started_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at    TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_agent_runs_stage ON agent_runs(stage);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	_, err := s.pool.Exec(ctx, taxonomySeed)
	return eris.Wrap(err, "postgres: seed taxonomies")
}

// taxonomySeed inserts the default classification codes. Idempotent, and
// valid for both postgres and sqlite.
const taxonomySeed = `
INSERT INTO kb_role (code) VALUES
	('cio'), ('cto'), ('coo'), ('cro'), ('cfo'),
	('head-of-innovation'), ('data-science-lead'), ('compliance-officer'), ('product-manager')
ON CONFLICT (code) DO NOTHING;

INSERT INTO kb_industry (code) VALUES
	('banking'), ('insurance'), ('capital-markets'), ('payments'), ('wealth-management'), ('lending')
ON CONFLICT (code) DO NOTHING;

INSERT INTO kb_topic (code) VALUES
	('fraud-detection'), ('aml-kyc'), ('customer-service'), ('underwriting'), ('claims-processing'),
	('risk-management'), ('regulatory-compliance'), ('payments'), ('trading'), ('credit-scoring'),
	('agentic-ai'), ('generative-ai')
ON CONFLICT (code) DO NOTHING;

INSERT INTO kb_content_type (code, weight) VALUES
	('research-paper', 0.9), ('whitepaper', 0.85), ('report', 0.85), ('case-study', 0.8),
	('article', 0.7), ('blog-post', 0.6), ('news', 0.6), ('webinar', 0.65), ('podcast', 0.6)
ON CONFLICT (code) DO NOTHING;

INSERT INTO kb_geography (code) VALUES
	('global'), ('north-america'), ('europe'), ('uk'), ('apac'), ('latam'), ('middle-east-africa')
ON CONFLICT (code) DO NOTHING;

INSERT INTO kb_use_case (code) VALUES
	('fraud-detection'), ('customer-onboarding'), ('document-processing'), ('regulatory-reporting'),
	('credit-decisioning'), ('claims-automation'), ('personalization'), ('treasury-operations')
ON CONFLICT (code) DO NOTHING;

INSERT INTO kb_agentic_capability (code) VALUES
	('autonomous-workflow'), ('tool-use'), ('multi-agent-orchestration'), ('human-in-the-loop'),
	('retrieval-augmentation'), ('code-generation')
ON CONFLICT (code) DO NOTHING;
`

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// EnqueueItem inserts a queue row keyed by normalized URL. It returns false
// without error when the URL is already queued.
func (s *PostgresStore) EnqueueItem(ctx context.Context, item *model.QueueItem) (bool, error) {
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
		return false, eris.Wrap(err, "postgres: marshal payload")
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO ingestion_queue
		 (id, url, url_norm, status, status_code, payload, prompt_version, model_id, discovered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (url_norm) DO NOTHING`,
		item.ID, item.URL, item.URLNorm, string(item.Status), item.Status.Code(),
		payloadJSON, item.PromptVersion, item.ModelID, item.DiscoveredAt,
	)
	if err != nil {
		return false, eris.Wrap(err, "postgres: enqueue item")
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) GetQueueItem(ctx context.Context, id string) (*model.QueueItem, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+queueColumns+` FROM ingestion_queue WHERE id = $1`, id)
	item, err := scanQueueItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "queue item %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get queue item %s", id)
	}
	return item, nil
}

func (s *PostgresStore) ListQueue(ctx context.Context, filter QueueFilter) ([]model.QueueItem, error) {
	psql := sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	q := psql.Select(
		"id", "url", "url_norm", "status", "payload",
		"COALESCE(prompt_version, '')", "COALESCE(model_id, '')", "thumb_ref",
		"rejection_reason", "reviewer", "fetch_attempts", "claimed_by", "claimed_at",
		"fetched_at", "reviewed_at", "discovered_at",
	).From("ingestion_queue")

	if len(filter.Statuses) > 0 {
		vals := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			vals[i] = string(st)
		}
		q = q.Where(sq.Eq{"status": vals})
	}
	if filter.Source != "" {
		q = q.Where(sq.Expr(`payload->>'source' = ?`, filter.Source))
	}
	q = q.OrderBy("discovered_at DESC")

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	q = q.Limit(uint64(limit))
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build list query")
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list queue")
	}
	defer rows.Close()

	var items []model.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan queue item")
		}
		items = append(items, *item)
	}
	return items, eris.Wrap(rows.Err(), "postgres: list queue iterate")
}

// ClaimItems atomically claims up to opts.Limit items in the given statuses.
// SKIP LOCKED keeps concurrent agents from blocking each other, and claims
// older than opts.StaleAfter are taken over.
func (s *PostgresStore) ClaimItems(ctx context.Context, opts ClaimOptions) ([]model.QueueItem, error) {
	if len(opts.Statuses) == 0 {
		return nil, eris.New("postgres: claim requires at least one status")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	staleAfter := opts.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}

	vals := make([]string, len(opts.Statuses))
	for i, st := range opts.Statuses {
		vals[i] = string(st)
	}

	query := `WITH picked AS (
		SELECT id FROM ingestion_queue
		WHERE status = ANY($1)
		  AND (claimed_at IS NULL OR claimed_at < $2)`
	args := []any{vals, time.Now().UTC().Add(-staleAfter)}
	argIdx := 3

	if opts.EnrichReady {
		query += `
		  AND (status <> 'pending'
		       OR (COALESCE(payload->>'title', '') <> ''
		           AND COALESCE(payload->>'description', '') <> ''
		           AND COALESCE(payload#>>'{summary,short}', '') = ''))`
	}
	if opts.Source != "" {
		query += fmt.Sprintf(`
		  AND payload->>'source' = $%d`, argIdx)
		args = append(args, opts.Source)
		argIdx++
	}

	query += fmt.Sprintf(`
		ORDER BY discovered_at ASC
		LIMIT $%d
		FOR UPDATE SKIP LOCKED
	)
	UPDATE ingestion_queue q
	SET claimed_by = $%d, claimed_at = now()
	FROM picked
	WHERE q.id = picked.id
	RETURNING `+qualifiedQueueColumns("q"), argIdx, argIdx+1)
	args = append(args, limit, opts.Worker)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: claim items")
	}
	defer rows.Close()

	var items []model.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan claimed item")
		}
		items = append(items, *item)
	}
	return items, eris.Wrap(rows.Err(), "postgres: claim iterate")
}

func (s *PostgresStore) ReleaseClaim(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE ingestion_queue SET claimed_by = NULL, claimed_at = NULL WHERE id = $1`, id)
	return eris.Wrapf(err, "postgres: release claim %s", id)
}

func (s *PostgresStore) CountByStatus(ctx context.Context) (map[model.Status]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM ingestion_queue GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count by status")
	}
	defer rows.Close()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		counts[model.Status(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: count iterate")
}

func (s *PostgresStore) MarkFetched(ctx context.Context, id string, payload model.Payload) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal payload")
	}
	return s.setStatus(ctx, id, model.StatusFetched,
		`payload = $4, fetched_at = now(), claimed_by = NULL, claimed_at = NULL`, payloadJSON)
}

// RecordFetchFailure bumps the attempt counter without changing status and
// returns the new count. The caller decides when the item is exhausted.
func (s *PostgresStore) RecordFetchFailure(ctx context.Context, id string) (int, error) {
	var attempts int
	err := s.pool.QueryRow(ctx,
		`UPDATE ingestion_queue
		 SET fetch_attempts = fetch_attempts + 1, claimed_by = NULL, claimed_at = NULL, updated_at = now()
		 WHERE id = $1
		 RETURNING fetch_attempts`, id,
	).Scan(&attempts)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: record fetch failure %s", id)
	}
	return attempts, nil
}

func (s *PostgresStore) MarkFailed(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, model.StatusFailed, `claimed_by = NULL, claimed_at = NULL`)
}

func (s *PostgresStore) MarkFiltered(ctx context.Context, id string, payload model.Payload) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal payload")
	}
	return s.setStatus(ctx, id, model.StatusFiltered,
		`payload = $4, claimed_by = NULL, claimed_at = NULL`, payloadJSON)
}

func (s *PostgresStore) MarkEnriched(ctx context.Context, id string, payload model.Payload, promptVersion, modelID string, thumbRef *string) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal payload")
	}
	return s.setStatus(ctx, id, model.StatusEnriched,
		`payload = $4, prompt_version = $5, model_id = $6, thumb_ref = $7, claimed_by = NULL, claimed_at = NULL`,
		payloadJSON, promptVersion, modelID, thumbRef)
}

func (s *PostgresStore) MarkRejected(ctx context.Context, id string, reason string, reviewer string) error {
	return s.setStatus(ctx, id, model.StatusRejected,
		`rejection_reason = $4, reviewer = NULLIF($5, ''), reviewed_at = now(), claimed_by = NULL, claimed_at = NULL`,
		reason, reviewer)
}

// MarkApproved flips an item to approved. A non-empty editedTitle replaces
// the payload title, preserving the reviewer's correction through publish.
func (s *PostgresStore) MarkApproved(ctx context.Context, id string, reviewer string, editedTitle string) error {
	if editedTitle != "" {
		return s.setStatus(ctx, id, model.StatusApproved,
			`reviewer = NULLIF($4, ''), reviewed_at = now(),
			 payload = jsonb_set(payload, '{title}', to_jsonb($5::text))`,
			reviewer, editedTitle)
	}
	return s.setStatus(ctx, id, model.StatusApproved,
		`reviewer = NULLIF($4, ''), reviewed_at = now()`, reviewer)
}

func (s *PostgresStore) MarkPublished(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, model.StatusPublished,
		`reviewed_at = COALESCE(reviewed_at, now()), claimed_by = NULL, claimed_at = NULL`)
}

// RetryRejected returns a rejected item to pending and clears everything a
// fresh enrichment pass will regenerate.
func (s *PostgresStore) RetryRejected(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE ingestion_queue
		 SET status = $1, status_code = $2,
		     payload = payload - 'summary' - 'tags' - 'persona_scores',
		     rejection_reason = NULL, reviewer = NULL, reviewed_at = NULL,
		     claimed_by = NULL, claimed_at = NULL, updated_at = now()
		 WHERE id = $3 AND status = $4`,
		string(model.StatusPending), model.StatusPending.Code(), id, string(model.StatusRejected),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: retry rejected %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("queue item not rejected or not found: %s", id)
	}
	return nil
}

// ResurrectRejected re-opens a previously rejected URL that discovery has
// seen again. Returns true when a rejected row was reset to pending.
func (s *PostgresStore) ResurrectRejected(ctx context.Context, urlNorm string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE ingestion_queue
		 SET status = $1, status_code = $2,
		     payload = payload - 'summary' - 'tags' - 'persona_scores',
		     rejection_reason = NULL, reviewer = NULL, reviewed_at = NULL,
		     claimed_by = NULL, claimed_at = NULL, updated_at = now()
		 WHERE url_norm = $3 AND status = $4`,
		string(model.StatusPending), model.StatusPending.Code(), urlNorm, string(model.StatusRejected),
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: resurrect rejected %s", urlNorm)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ReturnForReenrichment(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE ingestion_queue
		 SET status = $1, status_code = $2, claimed_by = NULL, claimed_at = NULL, updated_at = now()
		 WHERE id = $3 AND status IN ($4, $5)`,
		string(model.StatusPending), model.StatusPending.Code(), id,
		string(model.StatusEnriched), string(model.StatusApproved),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: return for reenrichment %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("queue item not enriched or approved: %s", id)
	}
	return nil
}

func (s *PostgresStore) setStatus(ctx context.Context, id string, status model.Status, extraSet string, extraArgs ...any) error {
	query := `UPDATE ingestion_queue SET status = $1, status_code = $2, updated_at = now()`
	if extraSet != "" {
		query += ", " + extraSet
	}
	query += ` WHERE id = $3`

	args := append([]any{string(status), status.Code(), id}, extraArgs...)
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: set status %s on %s", status, id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("queue item not found: %s", id)
	}
	return nil
}

// Published resources

func (s *PostgresStore) ResourceExists(ctx context.Context, canonicalURL string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM kb_resource WHERE canonical_url = $1)`,
		canonicalURL,
	).Scan(&exists)
	return exists, eris.Wrap(err, "postgres: resource exists")
}

func (s *PostgresStore) InsertResource(ctx context.Context, res *model.Resource) error {
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	if res.PublishedAt.IsZero() {
		res.PublishedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO kb_resource
		 (id, title, author, url, canonical_url, slug, date_published,
		  source_name, source_domain, source_slug,
		  summary_short, summary_medium, summary_long,
		  role, content_type, geography, thumbnail, quality_score, origin_queue_id, published_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		res.ID, res.Title, res.Author, res.URL, res.CanonicalURL, res.Slug, res.DatePublished,
		res.SourceName, res.SourceDomain, res.SourceSlug,
		res.SummaryShort, res.SummaryMedium, res.SummaryLong,
		res.Role, res.ContentType, res.Geography, res.Thumbnail, res.QualityScore,
		res.OriginQueueID, res.PublishedAt,
	)
	return eris.Wrap(err, "postgres: insert resource")
}

func (s *PostgresStore) LinkIndustry(ctx context.Context, resourceID, code string, rank int) error {
	return s.linkTaxonomy(ctx, "resource_industry", resourceID, code, rank)
}

func (s *PostgresStore) LinkTopic(ctx context.Context, resourceID, code string, rank int) error {
	return s.linkTaxonomy(ctx, "resource_topic", resourceID, code, rank)
}

func (s *PostgresStore) linkTaxonomy(ctx context.Context, table, resourceID, code string, rank int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+table+` (resource_id, code, rank) VALUES ($1, $2, $3)
		 ON CONFLICT (resource_id, code) DO UPDATE SET rank = $3`,
		resourceID, code, rank,
	)
	return eris.Wrapf(err, "postgres: link %s", table)
}

func (s *PostgresStore) GetOrCreateVendor(ctx context.Context, name string) (string, error) {
	slug := model.Slugify(name)
	var id string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO ag_vendor (id, slug, name) VALUES ($1, $2, $3)
		 ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		 RETURNING id`,
		uuid.New().String(), slug, name,
	).Scan(&id)
	return id, eris.Wrapf(err, "postgres: get or create vendor %s", slug)
}

func (s *PostgresStore) GetOrCreateOrganization(ctx context.Context, name string) (string, error) {
	norm := model.NormalizeName(name)
	var id string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO bfsi_organization (id, name_norm, name) VALUES ($1, $2, $3)
		 ON CONFLICT (name_norm) DO UPDATE SET name_norm = EXCLUDED.name_norm
		 RETURNING id`,
		uuid.New().String(), norm, name,
	).Scan(&id)
	return id, eris.Wrapf(err, "postgres: get or create organization %s", norm)
}

func (s *PostgresStore) LinkVendor(ctx context.Context, resourceID, vendorID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO resource_vendor (resource_id, vendor_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		resourceID, vendorID,
	)
	return eris.Wrap(err, "postgres: link vendor")
}

func (s *PostgresStore) LinkOrganization(ctx context.Context, resourceID, orgID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO resource_organization (resource_id, organization_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		resourceID, orgID,
	)
	return eris.Wrap(err, "postgres: link organization")
}

// Sources and taxonomies

func (s *PostgresStore) SeedSources(ctx context.Context, sources []model.Source) (int64, error) {
	rows := make([][]any, 0, len(sources))
	for _, src := range sources {
		keywordsJSON, err := json.Marshal(src.Keywords)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal keywords for %s", src.Slug)
		}
		rows = append(rows, []any{
			src.Slug, src.Name, src.Domain, src.Tier, src.Category,
			src.RSSFeed, src.Enabled, keywordsJSON, src.SortOrder,
		})
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertSpec{
		Table:        "kb_source",
		Columns:      []string{"slug", "name", "domain", "tier", "category", "rss_feed", "enabled", "keywords", "sort_order"},
		ConflictCols: []string{"slug"},
		UpdateCols:   []string{"name", "domain", "tier", "category", "rss_feed", "enabled", "keywords", "sort_order"},
	}, rows)
}

func (s *PostgresStore) ListSources(ctx context.Context, enabledOnly bool) ([]model.Source, error) {
	query := `SELECT slug, name, domain, tier, category, COALESCE(rss_feed, ''), enabled, keywords, sort_order
	          FROM kb_source`
	if enabledOnly {
		query += ` WHERE enabled`
	}
	query += ` ORDER BY sort_order, slug`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sources")
	}
	defer rows.Close()

	var sources []model.Source
	for rows.Next() {
		var src model.Source
		var keywordsJSON []byte
		if err := rows.Scan(&src.Slug, &src.Name, &src.Domain, &src.Tier, &src.Category,
			&src.RSSFeed, &src.Enabled, &keywordsJSON, &src.SortOrder); err != nil {
			return nil, eris.Wrap(err, "postgres: scan source")
		}
		if err := json.Unmarshal(keywordsJSON, &src.Keywords); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal keywords")
		}
		sources = append(sources, src)
	}
	return sources, eris.Wrap(rows.Err(), "postgres: list sources iterate")
}

var taxonomyTables = map[string]string{
	TaxonomyRole:              "kb_role",
	TaxonomyIndustry:          "kb_industry",
	TaxonomyTopic:             "kb_topic",
	TaxonomyContentType:       "kb_content_type",
	TaxonomyGeography:         "kb_geography",
	TaxonomyUseCase:           "kb_use_case",
	TaxonomyAgenticCapability: "kb_agentic_capability",
}

func (s *PostgresStore) ListTaxonomy(ctx context.Context, kind string) ([]string, error) {
	table, ok := taxonomyTables[kind]
	if !ok {
		return nil, eris.Errorf("postgres: unknown taxonomy kind %q", kind)
	}

	rows, err := s.pool.Query(ctx, `SELECT code FROM `+table+` ORDER BY code`)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list taxonomy %s", kind)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, eris.Wrap(err, "postgres: scan taxonomy code")
		}
		codes = append(codes, code)
	}
	return codes, eris.Wrap(rows.Err(), "postgres: taxonomy iterate")
}

func (s *PostgresStore) ContentTypeWeights(ctx context.Context) (map[string]float64, error) {
	rows, err := s.pool.Query(ctx, `SELECT code, weight FROM kb_content_type`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: content type weights")
	}
	defer rows.Close()

	weights := make(map[string]float64)
	for rows.Next() {
		var code string
		var w float64
		if err := rows.Scan(&code, &w); err != nil {
			return nil, eris.Wrap(err, "postgres: scan content type weight")
		}
		weights[code] = w
	}
	return weights, eris.Wrap(rows.Err(), "postgres: weights iterate")
}

// SourceWeights returns per-source reputation weights. An explicit weight
// column wins; otherwise the weight is blended from tier and category.
func (s *PostgresStore) SourceWeights(ctx context.Context) (map[string]float64, error) {
	rows, err := s.pool.Query(ctx, `SELECT name, tier, category, weight FROM kb_source`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: source weights")
	}
	defer rows.Close()

	weights := make(map[string]float64)
	for rows.Next() {
		var name, tier, category string
		var explicit *float64
		if err := rows.Scan(&name, &tier, &category, &explicit); err != nil {
			return nil, eris.Wrap(err, "postgres: scan source weight")
		}
		if explicit != nil {
			weights[name] = *explicit
		} else {
			weights[name] = model.BlendSourceWeight(tier, category)
		}
	}
	return weights, eris.Wrap(rows.Err(), "postgres: source weights iterate")
}

// Agent run bookkeeping

func (s *PostgresStore) StartAgentRun(ctx context.Context, run *model.AgentRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = "running"

	_, err := s.pool.Exec(ctx,
		`INSERT INTO agent_runs (id, agent, stage, model_id, prompt_version, status, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, run.Agent, run.Stage, run.ModelID, run.PromptVersion, run.Status, run.StartedAt,
	)
	return eris.Wrap(err, "postgres: start agent run")
}

func (s *PostgresStore) FinishAgentRun(ctx context.Context, id string, status string, errMsg string, metrics map[string]int) error {
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run metrics")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE agent_runs SET status = $1, error = NULLIF($2, ''), metrics = $3, finished_at = now() WHERE id = $4`,
		status, errMsg, metricsJSON, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish agent run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("agent run not found: %s", id)
	}
	return nil
}

// scanQueueItem reads a row in queueColumns order.
func scanQueueItem(row pgx.Row) (*model.QueueItem, error) {
	var item model.QueueItem
	var status string
	var payloadJSON []byte

	err := row.Scan(&item.ID, &item.URL, &item.URLNorm, &status, &payloadJSON,
		&item.PromptVersion, &item.ModelID, &item.ThumbRef,
		&item.RejectionReason, &item.Reviewer, &item.FetchAttempts,
		&item.ClaimedBy, &item.ClaimedAt, &item.FetchedAt, &item.ReviewedAt, &item.DiscoveredAt)
	if err != nil {
		return nil, err
	}
	item.Status = model.Status(status)
	item.StatusCode = item.Status.Code()
	if len(payloadJSON) > 0 {
		if err := json.Unmarshal(payloadJSON, &item.Payload); err != nil {
			return nil, eris.Wrap(err, "unmarshal payload")
		}
	}
	return &item, nil
}

func qualifiedQueueColumns(alias string) string {
	return fmt.Sprintf(`%[1]s.id, %[1]s.url, %[1]s.url_norm, %[1]s.status, %[1]s.payload,
	COALESCE(%[1]s.prompt_version, ''), COALESCE(%[1]s.model_id, ''), %[1]s.thumb_ref, %[1]s.rejection_reason, %[1]s.reviewer,
	%[1]s.fetch_attempts, %[1]s.claimed_by, %[1]s.claimed_at, %[1]s.fetched_at, %[1]s.reviewed_at, %[1]s.discovered_at`, alias)
}
