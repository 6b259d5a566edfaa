// Package corestore owns the typed ipeds_core tables and the loader that
// rebuilds them from the raw archive.
package corestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"ipedsetl/internal/registry"
)

// Store upserts mapped rows into a dataset's core table. Core rows are cheap
// to recompute, so conflicts always take the new values; there is no hash
// gating here.
type Store interface {
	EnsureTable(ctx context.Context, ds registry.Dataset) error
	UpsertBatch(ctx context.Context, ds registry.Dataset, rows []map[string]any) error
}

// PostgresStore persists core rows in the ipeds_core schema.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a Postgres-backed core store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureTable creates ipeds_core.{dataset} from the descriptor if missing.
// Column order follows descriptor declaration order.
func (s *PostgresStore) EnsureTable(ctx context.Context, ds registry.Dataset) error {
	desc := ds.Descriptor()
	defs := make([]string, 0, len(desc.Columns)+1)
	for _, col := range desc.Columns {
		defs = append(defs, fmt.Sprintf("%s %s", col.Name, col.SQLType))
	}
	if len(desc.PrimaryKey) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(desc.PrimaryKey, ", ")))
	}

	// One statement per Exec: the extended protocol rejects multi-command
	// strings.
	if _, err := s.db.ExecContext(ctx, `CREATE SCHEMA IF NOT EXISTS ipeds_core`); err != nil {
		return fmt.Errorf("ensure core schema: %w", err)
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS ipeds_core.%s (\n\t%s\n)",
		ds.Name(), strings.Join(defs, ",\n\t"))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure core table ipeds_core.%s: %w", ds.Name(), err)
	}
	return nil
}

// UpsertBatch writes one buffer of mapped rows inside a single transaction,
// keyed on the descriptor's primary key with last-write-wins on conflict.
func (s *PostgresStore) UpsertBatch(ctx context.Context, ds registry.Dataset, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	desc := ds.Descriptor()
	query := buildUpsert(ds.Name(), desc)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin core tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare core upsert for %s: %w", ds.Name(), err)
	}
	defer stmt.Close()

	args := make([]any, len(desc.Columns))
	for _, row := range rows {
		for i, col := range desc.Columns {
			args[i] = row[col.Name]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("upsert core row for %s: %w", ds.Name(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit core tx: %w", err)
	}
	return nil
}

// buildUpsert renders the parameterized INSERT ... ON CONFLICT statement from
// the descriptor.
func buildUpsert(dataset string, desc registry.Descriptor) string {
	cols := desc.ColumnNames()
	params := make([]string, len(cols))
	for i := range cols {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	sets := make([]string, 0, len(cols))
	for _, col := range desc.NonKeyColumns() {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	return fmt.Sprintf(
		"INSERT INTO ipeds_core.%s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		dataset,
		strings.Join(cols, ", "),
		strings.Join(params, ", "),
		strings.Join(desc.PrimaryKey, ", "),
		strings.Join(sets, ", "),
	)
}

// MemoryStore keeps core rows in a map keyed by the primary-key tuple. Unit
// tests use it to observe loader output without a database.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]map[string]map[string]any
}

// NewMemory constructs an in-memory core store.
func NewMemory() *MemoryStore {
	return &MemoryStore{rows: make(map[string]map[string]map[string]any)}
}

func (s *MemoryStore) EnsureTable(_ context.Context, ds registry.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[ds.Name()]; !ok {
		s.rows[ds.Name()] = make(map[string]map[string]any)
	}
	return nil
}

func (s *MemoryStore) UpsertBatch(_ context.Context, ds registry.Dataset, rows []map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.rows[ds.Name()]
	if table == nil {
		table = make(map[string]map[string]any)
		s.rows[ds.Name()] = table
	}
	for _, row := range rows {
		keyParts := make([]string, len(ds.Descriptor().PrimaryKey))
		for i, pk := range ds.Descriptor().PrimaryKey {
			keyParts[i] = fmt.Sprint(row[pk])
		}
		table[strings.Join(keyParts, "|")] = row
	}
	return nil
}

// Rows returns all stored rows for a dataset. Test helper.
func (s *MemoryStore) Rows(dataset string) []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []map[string]any
	for _, row := range s.rows[dataset] {
		out = append(out, row)
	}
	return out
}
