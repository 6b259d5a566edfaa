package corestore_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/suite"

	"ipedsetl/internal/corestore"
	"ipedsetl/internal/rawstore"
	"ipedsetl/internal/registry"
)

type LoaderSuite struct {
	suite.Suite
	ds   registry.Dataset
	raw  *rawstore.MemoryStore
	core *corestore.MemoryStore
}

func TestLoaderSuite(t *testing.T) {
	suite.Run(t, new(LoaderSuite))
}

func (s *LoaderSuite) SetupTest() {
	ds, err := registry.Lookup("directory")
	s.Require().NoError(err)
	s.ds = ds
	s.raw = rawstore.NewMemory("https://example.test", 500)
	s.core = corestore.NewMemory()
}

func (s *LoaderSuite) newLoader(batchSize int) *corestore.Loader {
	loader, err := corestore.NewLoader(s.raw, s.core, batchSize, log.New(io.Discard, "", 0), nil)
	s.Require().NoError(err)
	return loader
}

func (s *LoaderSuite) archive(year, n int) {
	records := make([]map[string]any, n)
	for i := range records {
		records[i] = map[string]any{
			"unitid":    float64(i + 1),
			"year":      float64(year),
			"inst_name": fmt.Sprintf("Inst %d", i+1),
		}
	}
	_, err := s.raw.UpsertPages(context.Background(), s.ds, year, records)
	s.Require().NoError(err)
}

func (s *LoaderSuite) TestLoadMapsAllArchivedRecords() {
	s.archive(2022, 1250)

	count, err := s.newLoader(1000).LoadYears(context.Background(), s.ds, nil)
	s.Require().NoError(err)
	s.Equal(1250, count, "returns mapped records, not pages")

	rows := s.core.Rows("directory")
	s.Require().Len(rows, 1250)
	for _, row := range rows {
		s.Len(row, len(s.ds.Descriptor().Columns), "row shape matches the descriptor")
		s.Equal(2022, row["year"])
	}
}

func (s *LoaderSuite) TestLoadStampsMissingYearFromPage() {
	_, err := s.raw.UpsertPages(context.Background(), s.ds, 2019, []map[string]any{
		{"unitid": float64(7), "inst_name": "No Year U"},
	})
	s.Require().NoError(err)

	count, err := s.newLoader(10).LoadYears(context.Background(), s.ds, nil)
	s.Require().NoError(err)
	s.Equal(1, count)

	rows := s.core.Rows("directory")
	s.Require().Len(rows, 1)
	s.Equal(2019, rows[0]["year"], "archive year is authoritative when the payload omits it")
	s.Equal(7, rows[0]["unitid"])

	// Stamping happens on a copy; the archived record stays as fetched.
	stored := s.raw.Snapshot("directory")
	s.Require().Len(stored, 1)
	s.NotContains(stored[0].Records[0], "year", "loading must not mutate the archive")
}

func (s *LoaderSuite) TestLoadFiltersYears() {
	s.archive(2021, 10)
	s.archive(2022, 20)

	count, err := s.newLoader(100).LoadYears(context.Background(), s.ds, []int{2022})
	s.Require().NoError(err)
	s.Equal(20, count)
}

func (s *LoaderSuite) TestLoadReloadConverges() {
	s.archive(2022, 30)
	loader := s.newLoader(7)

	_, err := loader.LoadYears(context.Background(), s.ds, nil)
	s.Require().NoError(err)
	count, err := loader.LoadYears(context.Background(), s.ds, nil)
	s.Require().NoError(err)

	s.Equal(30, count)
	s.Len(s.core.Rows("directory"), 30, "upsert keyed on (unitid, year) does not duplicate")
}

func (s *LoaderSuite) TestLoadEmptyArchive() {
	count, err := s.newLoader(10).LoadYears(context.Background(), s.ds, nil)
	s.Require().NoError(err)
	s.Equal(0, count)
}

func TestNewLoaderValidation(t *testing.T) {
	raw := rawstore.NewMemory("https://example.test", 500)
	core := corestore.NewMemory()
	logg := log.New(io.Discard, "", 0)

	if _, err := corestore.NewLoader(nil, core, 10, logg, nil); err == nil {
		t.Fatal("expected error for nil raw store")
	}
	if _, err := corestore.NewLoader(raw, nil, 10, logg, nil); err == nil {
		t.Fatal("expected error for nil core store")
	}
	if _, err := corestore.NewLoader(raw, core, 0, logg, nil); err == nil {
		t.Fatal("expected error for zero batch size")
	}
	if _, err := corestore.NewLoader(raw, core, 10, nil, nil); err == nil {
		t.Fatal("expected error for nil logger")
	}
}
