package rawstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"ipedsetl/internal/registry"
)

// MemoryStore is an in-memory archive with the same hash-gating semantics as
// the Postgres store. It backs unit tests for the loader and harvest service.
type MemoryStore struct {
	mu       sync.RWMutex
	pages    map[string]map[[2]int]*StoredPage
	baseURL  string
	pageSize int
	clock    Clock
}

// MemoryOption configures a MemoryStore instance.
type MemoryOption func(*MemoryStore)

// WithMemoryClock sets the clock function for testability.
func WithMemoryClock(clock Clock) MemoryOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewMemory constructs an in-memory raw archive with the given page size.
func NewMemory(baseURL string, pageSize int, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		pages:    make(map[string]map[[2]int]*StoredPage),
		baseURL:  baseURL,
		pageSize: pageSize,
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) EnsureTable(_ context.Context, ds registry.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[ds.Name()]; !ok {
		s.pages[ds.Name()] = make(map[[2]int]*StoredPage)
	}
	return nil
}

func (s *MemoryStore) UpsertPages(_ context.Context, ds registry.Dataset, year int, records []map[string]any) (int, error) {
	chunks := chunk(records, s.pageSize)
	if len(chunks) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.pages[ds.Name()]
	if table == nil {
		table = make(map[[2]int]*StoredPage)
		s.pages[ds.Name()] = table
	}

	for i, pageRecords := range chunks {
		pageNumber := i + 1
		canonical, err := canonicalJSON(pageRecords)
		if err != nil {
			return 0, err
		}
		hash := contentHash(canonical)

		key := [2]int{year, pageNumber}
		if existing, ok := table[key]; ok && existing.SourceHash == hash {
			continue
		}
		table[key] = &StoredPage{
			Year:        year,
			PageNumber:  pageNumber,
			SourceURL:   pageSourceURL(s.baseURL, ds.Descriptor().Path, year, pageNumber),
			SourceHash:  hash,
			IngestedAt:  s.clock().UTC(),
			RecordCount: len(pageRecords),
			Records:     pageRecords,
		}
	}
	return len(chunks), nil
}

func (s *MemoryStore) ForEachPage(_ context.Context, ds registry.Dataset, years []int, fn func(Page) error) error {
	wanted := make(map[int]struct{}, len(years))
	for _, y := range years {
		wanted[y] = struct{}{}
	}

	s.mu.RLock()
	var stored []*StoredPage
	for _, p := range s.pages[ds.Name()] {
		if len(wanted) > 0 {
			if _, ok := wanted[p.Year]; !ok {
				continue
			}
		}
		stored = append(stored, p)
	}
	s.mu.RUnlock()

	sort.Slice(stored, func(i, j int) bool {
		if stored[i].Year != stored[j].Year {
			return stored[i].Year < stored[j].Year
		}
		return stored[i].PageNumber < stored[j].PageNumber
	})

	for _, p := range stored {
		if err := fn(Page{Year: p.Year, PageNumber: p.PageNumber, Records: p.Records}); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns the archived pages for a dataset ordered by
// (year, page_number). Test helper.
func (s *MemoryStore) Snapshot(dataset string) []StoredPage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []StoredPage
	for _, p := range s.pages[dataset] {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].PageNumber < out[j].PageNumber
	})
	return out
}
