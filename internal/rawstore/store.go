// Package rawstore is the raw archive: verbatim API payloads chunked into
// pages and upserted under (year, page_number). The archive is the pipeline's
// source of truth; core tables are rebuilt from it.
package rawstore

import (
	"context"
	"errors"
	"time"

	"ipedsetl/internal/registry"
)

// ErrSchemaMissing means the ipeds_raw namespace has not been provisioned.
// Creating it is an administrative step, not something the loader role does.
var ErrSchemaMissing = errors.New("ipeds_raw schema does not exist; run the provisioning SQL first")

// Page is one archived chunk of records, as handed to the loader.
type Page struct {
	Year       int
	PageNumber int
	Records    []map[string]any
}

// StoredPage exposes archive metadata for inspection and tests.
type StoredPage struct {
	Year        int
	PageNumber  int
	SourceURL   string
	SourceHash  string
	IngestedAt  time.Time
	RecordCount int
	Records     []map[string]any
}

// Store archives fetched pages and serves them back to the loader.
type Store interface {
	// EnsureTable idempotently creates the dataset's raw table.
	EnsureTable(ctx context.Context, ds registry.Dataset) error

	// UpsertPages chunks the flattened record sequence for one year into
	// pages and upserts each, skipping the write when the content hash is
	// unchanged. It returns the number of pages considered. An empty record
	// sequence is valid and yields zero pages.
	UpsertPages(ctx context.Context, ds registry.Dataset, year int, records []map[string]any) (int, error)

	// ForEachPage streams archived pages ordered by (year, page_number),
	// optionally restricted to the given years (nil or empty means all).
	ForEachPage(ctx context.Context, ds registry.Dataset, years []int, fn func(Page) error) error
}

// chunk splits records into pageSize-sized runs in original order.
func chunk(records []map[string]any, pageSize int) [][]map[string]any {
	var chunks [][]map[string]any
	for start := 0; start < len(records); start += pageSize {
		end := start + pageSize
		if end > len(records) {
			end = len(records)
		}
		chunks = append(chunks, records[start:end])
	}
	return chunks
}
