package harvest_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/suite"

	"ipedsetl/internal/corestore"
	"ipedsetl/internal/harvest"
	"ipedsetl/internal/rawstore"
	"ipedsetl/internal/registry"
)

// fakeFetcher serves canned records per year and records the paths it saw.
type fakeFetcher struct {
	byYear map[int][]map[string]any
	err    error
	paths  []string
	calls  int
}

func (f *fakeFetcher) FetchYear(_ context.Context, pathTemplate string, year int) ([]map[string]any, error) {
	f.calls++
	f.paths = append(f.paths, pathTemplate)
	if f.err != nil {
		return nil, f.err
	}
	return f.byYear[year], nil
}

type ServiceSuite struct {
	suite.Suite
	fetcher *fakeFetcher
	raw     *rawstore.MemoryStore
	core    *corestore.MemoryStore
	service *harvest.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.fetcher = &fakeFetcher{byYear: make(map[int][]map[string]any)}
	s.raw = rawstore.NewMemory("https://example.test", 500)
	s.core = corestore.NewMemory()

	logg := log.New(io.Discard, "", 0)
	loader, err := corestore.NewLoader(s.raw, s.core, 1000, logg, nil)
	s.Require().NoError(err)
	s.service, err = harvest.New(s.fetcher, s.raw, loader, logg, nil)
	s.Require().NoError(err)
}

func (s *ServiceSuite) seedYear(year, n int) {
	records := make([]map[string]any, n)
	for i := range records {
		records[i] = map[string]any{"unitid": float64(i + 1), "year": float64(year)}
	}
	s.fetcher.byYear[year] = records
}

func (s *ServiceSuite) TestHarvestArchivesFetchedRecords() {
	s.seedYear(2022, 1250)

	pages, err := s.service.Harvest(context.Background(), "directory", 2022)
	s.Require().NoError(err)
	s.Equal(3, pages)

	// The fetcher received the dataset's path template.
	s.Equal([]string{"ipeds/directory/{year}/"}, s.fetcher.paths)
	s.Len(s.raw.Snapshot("directory"), 3)
}

func (s *ServiceSuite) TestHarvestUnknownDataset() {
	_, err := s.service.Harvest(context.Background(), "admissions", 2022)
	s.Require().Error(err)
	s.True(errors.Is(err, registry.ErrUnknownDataset))
	s.Zero(s.fetcher.calls, "no fetch is attempted for an unknown dataset")
}

func (s *ServiceSuite) TestHarvestFetchFailurePropagates() {
	s.fetcher.err = fmt.Errorf("http 503")

	_, err := s.service.Harvest(context.Background(), "directory", 2022)
	s.Require().Error(err)
	s.Contains(err.Error(), "harvest directory year 2022")
	s.Empty(s.raw.Snapshot("directory"), "failed fetch archives nothing")
}

func (s *ServiceSuite) TestHarvestEmptyYear() {
	s.seedYear(2022, 0)
	pages, err := s.service.Harvest(context.Background(), "directory", 2022)
	s.Require().NoError(err)
	s.Zero(pages)
}

func (s *ServiceSuite) TestLoadAfterHarvest() {
	s.seedYear(2022, 42)
	_, err := s.service.Harvest(context.Background(), "directory", 2022)
	s.Require().NoError(err)

	count, err := s.service.Load(context.Background(), "directory", []int{2022})
	s.Require().NoError(err)
	s.Equal(42, count)
	s.Len(s.core.Rows("directory"), 42)
}

func (s *ServiceSuite) TestLoadUnknownDataset() {
	_, err := s.service.Load(context.Background(), "nope", nil)
	s.Require().Error(err)
	s.True(errors.Is(err, registry.ErrUnknownDataset))
}

func (s *ServiceSuite) TestRunExecutesJobEntries() {
	s.seedYear(2021, 10)
	s.seedYear(2022, 20)

	job := harvest.Job{Entries: []harvest.JobEntry{
		{Dataset: "directory", Years: []int{2021, 2022}},
	}}
	s.Require().NoError(s.service.Run(context.Background(), job))

	s.Equal(2, s.fetcher.calls)
	s.Len(s.core.Rows("directory"), 30)
}
