// Package store provides the tabular data-access port used by the enrichment
// engine. Rows are flat maps from logical field name to string value; the
// backing implementation translates logical table and field names to whatever
// physical naming the store uses.
package store

import (
	"context"
	"errors"
)

// PrimaryKey is the logical primary-key field present on every row.
const PrimaryKey = "id"

// Row is a single record keyed by logical field name.
type Row map[string]string

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ErrUnknownTable is returned when a logical table name has no descriptor.
var ErrUnknownTable = errors.New("unknown logical table")

// Store is the data-access adapter. Find takes a logical where clause of the
// form "field op ? AND field op ?" with positional params; an empty clause
// returns all rows. Load returns (nil, nil) when no row has the given key.
type Store interface {
	Find(ctx context.Context, table, where string, params []any, sort string, desc bool, offset, limit int) ([]Row, error)
	Load(ctx context.Context, table, pk string) (Row, error)
	SaveOrUpdate(ctx context.Context, table string, rows ...Row) error
	Delete(ctx context.Context, table, pk string) error
}
