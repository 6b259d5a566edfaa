// Package registry is the in-code catalog of datasets the pipeline knows
// about. Each dataset declares its core table layout, primary key, API path
// template, and the mapping from raw API records to typed rows. The catalog is
// static; asking for an unregistered dataset is a programming error surfaced
// as ErrUnknownDataset, never a silent no-op.
package registry

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownDataset is returned by Lookup for dataset names that are not
// registered.
var ErrUnknownDataset = errors.New("unknown dataset")

// Column is one core-table column with its Postgres type (including NOT NULL
// where the descriptor requires it).
type Column struct {
	Name    string
	SQLType string
}

// Descriptor is the static contract for one dataset: column list in
// declaration order, primary-key columns, and the API path template (the year
// is a path segment, either via {year} or appended).
type Descriptor struct {
	Columns    []Column
	PrimaryKey []string
	Path       string
}

// ColumnNames returns the declared column names in declaration order.
func (d Descriptor) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// NonKeyColumns returns declared columns that are not part of the primary key,
// preserving declaration order.
func (d Descriptor) NonKeyColumns() []string {
	key := make(map[string]struct{}, len(d.PrimaryKey))
	for _, k := range d.PrimaryKey {
		key[k] = struct{}{}
	}
	var names []string
	for _, c := range d.Columns {
		if _, ok := key[c.Name]; !ok {
			names = append(names, c.Name)
		}
	}
	return names
}

// Dataset is one registered dataset. MapRecord turns a raw API record into a
// flat row whose keys exactly match the descriptor's columns; missing or
// malformed fields map to nil, never an error.
type Dataset interface {
	Name() string
	Descriptor() Descriptor
	MapRecord(raw map[string]any) map[string]any
}

var datasets = map[string]Dataset{
	"directory": directory{},
}

// Lookup returns the dataset registered under name.
func Lookup(name string) (Dataset, error) {
	ds, ok := datasets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	return ds, nil
}

// Names lists the registered dataset names in sorted order.
func Names() []string {
	names := make([]string, 0, len(datasets))
	for name := range datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
