package rawstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/lib/pq"

	"ipedsetl/internal/platform/config"
	"ipedsetl/internal/platform/metrics"
	"ipedsetl/internal/registry"
)

// Clock supplies ingestion timestamps; injectable for tests.
type Clock func() time.Time

// PostgresStore persists raw pages in the ipeds_raw schema.
type PostgresStore struct {
	db       *sql.DB
	baseURL  string
	pageSize int
	clock    Clock
	log      *log.Logger
	metrics  *metrics.Metrics
}

// PostgresOption configures a PostgresStore instance.
type PostgresOption func(*PostgresStore)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) PostgresOption {
	return func(s *PostgresStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewPostgres constructs a Postgres-backed raw archive. The metrics argument
// may be nil in tests.
func NewPostgres(db *sql.DB, cfg config.Settings, logger *log.Logger, m *metrics.Metrics, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{
		db:       db,
		baseURL:  cfg.BaseURL,
		pageSize: cfg.RawPageSize,
		clock:    time.Now,
		log:      logger,
		metrics:  m,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

var identPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// rawTable returns the qualified raw table name for a dataset. Dataset names
// come from the static registry, but they end up in DDL, so the shape is
// checked anyway.
func rawTable(ds registry.Dataset) (string, error) {
	name := ds.Name()
	if !identPattern.MatchString(name) {
		return "", fmt.Errorf("dataset name %q is not a valid identifier", name)
	}
	return fmt.Sprintf("ipeds_raw.%s_raw", name), nil
}

// EnsureTable creates the dataset's raw table and indexes if absent. The
// ipeds_raw schema itself must already exist; its absence is an administrative
// setup problem reported as ErrSchemaMissing rather than a cryptic SQL error.
func (s *PostgresStore) EnsureTable(ctx context.Context, ds registry.Dataset) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = 'ipeds_raw')`,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check ipeds_raw schema: %w", err)
	}
	if !exists {
		return ErrSchemaMissing
	}

	table, err := rawTable(ds)
	if err != nil {
		return err
	}
	// One statement per Exec: the extended protocol rejects multi-command
	// strings.
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				year INTEGER NOT NULL,
				page_number INTEGER NOT NULL,
				source_url TEXT NOT NULL,
				source_hash TEXT NOT NULL,
				ingested_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				record_count INTEGER NOT NULL,
				payload JSONB NOT NULL CHECK (jsonb_typeof(payload) = 'array'),
				PRIMARY KEY (year, page_number)
			)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_raw_source_hash_idx ON %s (source_hash)`, ds.Name(), table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_raw_year_idx ON %s (year)`, ds.Name(), table),
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure raw table %s: %w", table, err)
		}
	}
	return nil
}

// UpsertPages archives one year's flattened records as hash-gated pages. A
// page whose content hash matches the stored row keeps its payload bytes and
// ingested_at, which is what makes re-runs cheap.
func (s *PostgresStore) UpsertPages(ctx context.Context, ds registry.Dataset, year int, records []map[string]any) (int, error) {
	table, err := rawTable(ds)
	if err != nil {
		return 0, err
	}

	chunks := chunk(records, s.pageSize)
	if len(chunks) == 0 {
		s.log.Printf("no records for %s year %d; nothing to archive", ds.Name(), year)
		return 0, nil
	}

	upsert := fmt.Sprintf(`
		INSERT INTO %[1]s (year, page_number, source_url, source_hash, ingested_at, record_count, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (year, page_number) DO UPDATE SET
			source_url = EXCLUDED.source_url,
			source_hash = EXCLUDED.source_hash,
			ingested_at = EXCLUDED.ingested_at,
			record_count = EXCLUDED.record_count,
			payload = EXCLUDED.payload
		WHERE %[1]s.source_hash IS DISTINCT FROM EXCLUDED.source_hash
	`, table)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback()

	written := 0
	for i, pageRecords := range chunks {
		pageNumber := i + 1
		canonical, err := canonicalJSON(pageRecords)
		if err != nil {
			return 0, fmt.Errorf("encode page %d for %s year %d: %w", pageNumber, ds.Name(), year, err)
		}
		res, err := tx.ExecContext(ctx, upsert,
			year,
			pageNumber,
			pageSourceURL(s.baseURL, ds.Descriptor().Path, year, pageNumber),
			contentHash(canonical),
			s.clock().UTC(),
			len(pageRecords),
			canonical,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert page %d for %s year %d: %w", pageNumber, ds.Name(), year, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			written++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit archive tx: %w", err)
	}

	if s.metrics != nil {
		s.metrics.PagesWritten.WithLabelValues(ds.Name()).Add(float64(written))
		s.metrics.PagesSkipped.WithLabelValues(ds.Name()).Add(float64(len(chunks) - written))
	}
	s.log.Printf("archived %d page(s) for %s year %d (%d unchanged)", len(chunks), ds.Name(), year, len(chunks)-written)
	return len(chunks), nil
}

// ForEachPage streams archived pages in (year, page_number) order. A payload
// that does not decode as an object array is skipped without signaling; the
// check constraint makes that unreachable for rows this store wrote.
func (s *PostgresStore) ForEachPage(ctx context.Context, ds registry.Dataset, years []int, fn func(Page) error) error {
	table, err := rawTable(ds)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`SELECT year, page_number, payload FROM %s`, table)
	var args []any
	if len(years) > 0 {
		query += ` WHERE year = ANY($1)`
		args = append(args, pq.Array(years))
	}
	query += ` ORDER BY year, page_number`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("read raw pages from %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			page    Page
			payload []byte
		)
		if err := rows.Scan(&page.Year, &page.PageNumber, &payload); err != nil {
			return fmt.Errorf("scan raw page: %w", err)
		}
		if err := json.Unmarshal(payload, &page.Records); err != nil {
			continue
		}
		if err := fn(page); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate raw pages from %s: %w", table, err)
	}
	return nil
}

// pageSourceURL reconstructs the page's source location for auditing.
func pageSourceURL(base, pathTemplate string, year, page int) string {
	path := pathTemplate
	if strings.Contains(path, "{year}") {
		path = strings.ReplaceAll(path, "{year}", fmt.Sprintf("%d", year))
	}
	return fmt.Sprintf("%s/%s/?year=%d&page=%d",
		strings.TrimRight(base, "/"), strings.Trim(path, "/"), year, page)
}
