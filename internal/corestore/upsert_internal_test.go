package corestore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ipedsetl/internal/registry"
)

func TestBuildUpsert(t *testing.T) {
	desc := registry.Descriptor{
		Columns: []registry.Column{
			{Name: "unitid", SQLType: "INTEGER NOT NULL"},
			{Name: "year", SQLType: "INTEGER NOT NULL"},
			{Name: "inst_name", SQLType: "TEXT"},
			{Name: "latitude", SQLType: "DOUBLE PRECISION"},
		},
		PrimaryKey: []string{"unitid", "year"},
	}

	got := buildUpsert("directory", desc)
	want := "INSERT INTO ipeds_core.directory (unitid, year, inst_name, latitude) " +
		"VALUES ($1, $2, $3, $4) " +
		"ON CONFLICT (unitid, year) DO UPDATE SET inst_name = EXCLUDED.inst_name, latitude = EXCLUDED.latitude"
	assert.Equal(t, want, got)
}
