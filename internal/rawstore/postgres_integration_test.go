//go:build integration

package rawstore_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ipedsetl/internal/platform/config"
	"ipedsetl/internal/rawstore"
	"ipedsetl/internal/registry"
	"ipedsetl/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	ds       registry.Dataset
	now      time.Time
	store    *rawstore.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	ds, err := registry.Lookup("directory")
	s.Require().NoError(err)
	s.ds = ds
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.ResetSchema(context.Background(), "ipeds_raw"))
	s.now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cfg := config.Settings{BaseURL: "https://educationdata.urban.org/api/v1/college-university", RawPageSize: 500}
	s.store = rawstore.NewPostgres(s.postgres.DB, cfg, log.New(io.Discard, "", 0), nil,
		rawstore.WithClock(func() time.Time { return s.now }))
}

func pageRecords(n, year int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{"unitid": float64(i + 1), "year": float64(year)}
	}
	return out
}

func (s *PostgresStoreSuite) ingestedAt() map[int]time.Time {
	rows, err := s.postgres.DB.Query(`SELECT page_number, ingested_at FROM ipeds_raw.directory_raw ORDER BY page_number`)
	s.Require().NoError(err)
	defer rows.Close()

	out := make(map[int]time.Time)
	for rows.Next() {
		var page int
		var at time.Time
		s.Require().NoError(rows.Scan(&page, &at))
		out[page] = at.UTC()
	}
	s.Require().NoError(rows.Err())
	return out
}

func (s *PostgresStoreSuite) TestEnsureTableRequiresSchema() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.DropSchema(ctx, "ipeds_raw"))

	err := s.store.EnsureTable(ctx, s.ds)
	s.Require().Error(err)
	s.True(errors.Is(err, rawstore.ErrSchemaMissing))
}

func (s *PostgresStoreSuite) TestEnsureTableIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.store.EnsureTable(ctx, s.ds))
	s.Require().NoError(s.store.EnsureTable(ctx, s.ds))
}

func (s *PostgresStoreSuite) TestUpsertPagesChunksAndCounts() {
	ctx := context.Background()
	s.Require().NoError(s.store.EnsureTable(ctx, s.ds))

	pages, err := s.store.UpsertPages(ctx, s.ds, 2022, pageRecords(1250, 2022))
	s.Require().NoError(err)
	s.Equal(3, pages)

	rows, err := s.postgres.DB.Query(
		`SELECT page_number, record_count, jsonb_array_length(payload) FROM ipeds_raw.directory_raw ORDER BY page_number`)
	s.Require().NoError(err)
	defer rows.Close()

	var got [][3]int
	for rows.Next() {
		var page, count, arrayLen int
		s.Require().NoError(rows.Scan(&page, &count, &arrayLen))
		got = append(got, [3]int{page, count, arrayLen})
	}
	s.Require().NoError(rows.Err())
	s.Equal([][3]int{{1, 500, 500}, {2, 500, 500}, {3, 250, 250}}, got)
}

func (s *PostgresStoreSuite) TestUpsertPagesIdempotence() {
	ctx := context.Background()
	s.Require().NoError(s.store.EnsureTable(ctx, s.ds))
	data := pageRecords(700, 2022)

	_, err := s.store.UpsertPages(ctx, s.ds, 2022, data)
	s.Require().NoError(err)
	first := s.ingestedAt()

	s.now = s.now.Add(24 * time.Hour)
	pages, err := s.store.UpsertPages(ctx, s.ds, 2022, data)
	s.Require().NoError(err)
	s.Equal(2, pages)

	second := s.ingestedAt()
	s.Equal(first, second, "unchanged pages must keep ingested_at")
}

func (s *PostgresStoreSuite) TestUpsertPagesRewritesChangedPageOnly() {
	ctx := context.Background()
	s.Require().NoError(s.store.EnsureTable(ctx, s.ds))
	data := pageRecords(700, 2022)

	_, err := s.store.UpsertPages(ctx, s.ds, 2022, data)
	s.Require().NoError(err)
	first := s.ingestedAt()

	s.now = s.now.Add(time.Hour)
	data[600]["inst_name"] = "Renamed"
	_, err = s.store.UpsertPages(ctx, s.ds, 2022, data)
	s.Require().NoError(err)

	second := s.ingestedAt()
	s.Equal(first[1], second[1])
	s.Equal(s.now, second[2])
}

func (s *PostgresStoreSuite) TestUpsertPagesEmpty() {
	ctx := context.Background()
	s.Require().NoError(s.store.EnsureTable(ctx, s.ds))

	pages, err := s.store.UpsertPages(ctx, s.ds, 2022, nil)
	s.Require().NoError(err)
	s.Zero(pages)
}

func (s *PostgresStoreSuite) TestForEachPageOrderAndFilter() {
	ctx := context.Background()
	s.Require().NoError(s.store.EnsureTable(ctx, s.ds))

	_, err := s.store.UpsertPages(ctx, s.ds, 2023, pageRecords(600, 2023))
	s.Require().NoError(err)
	_, err = s.store.UpsertPages(ctx, s.ds, 2021, pageRecords(600, 2021))
	s.Require().NoError(err)

	var seen [][2]int
	err = s.store.ForEachPage(ctx, s.ds, nil, func(p rawstore.Page) error {
		seen = append(seen, [2]int{p.Year, p.PageNumber})
		return nil
	})
	s.Require().NoError(err)
	s.Equal([][2]int{{2021, 1}, {2021, 2}, {2023, 1}, {2023, 2}}, seen)

	seen = nil
	err = s.store.ForEachPage(ctx, s.ds, []int{2021}, func(p rawstore.Page) error {
		seen = append(seen, [2]int{p.Year, p.PageNumber})
		return nil
	})
	s.Require().NoError(err)
	s.Equal([][2]int{{2021, 1}, {2021, 2}}, seen)
}

func (s *PostgresStoreSuite) TestPayloadMustBeArray() {
	ctx := context.Background()
	s.Require().NoError(s.store.EnsureTable(ctx, s.ds))

	_, err := s.postgres.DB.ExecContext(ctx, `
		INSERT INTO ipeds_raw.directory_raw
			(year, page_number, source_url, source_hash, record_count, payload)
		VALUES (2022, 1, 'u', 'h', 1, '{"not": "an array"}'::jsonb)`)
	s.Require().Error(err, "check constraint rejects non-array payloads")
}
