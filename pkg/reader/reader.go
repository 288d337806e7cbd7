// Package reader abstracts SQL execution behind a small capability: run a
// statement, get back an ordered schema with storage-type hints and the
// materialized rows. The visualization pipeline depends only on this
// contract; the production implementation sits on database/sql.
package reader

import "context"

// ColumnType is a coarse storage-type hint used for field-type inference.
type ColumnType int

const (
	TypeUnknown ColumnType = iota
	TypeNumber
	TypeBool
	TypeText
	TypeDate
	TypeTimestamp
	TypeTime
)

func (t ColumnType) String() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeBool:
		return "bool"
	case TypeText:
		return "text"
	case TypeDate:
		return "date"
	case TypeTimestamp:
		return "timestamp"
	case TypeTime:
		return "time"
	}
	return "unknown"
}

// Temporal reports whether values of this type map to the temporal field
// type in the output document.
func (t ColumnType) Temporal() bool {
	return t == TypeDate || t == TypeTimestamp || t == TypeTime
}

// Column is one result column.
type Column struct {
	Name string
	Type ColumnType
}

// Schema is the ordered column list of a result.
type Schema []Column

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Lookup finds a column by name.
func (s Schema) Lookup(name string) (Column, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Result is a fully materialized query result. Row cells are normalized Go
// values: float64/int64, bool, string, or nil; temporal cells are ISO
// strings (see sql.go).
type Result struct {
	Columns Schema
	Rows    [][]any
}

// Records converts rows into name-keyed maps, the shape inlined into the
// output document.
func (r *Result) Records() []map[string]any {
	records := make([]map[string]any, len(r.Rows))
	for i, row := range r.Rows {
		rec := make(map[string]any, len(r.Columns))
		for j, col := range r.Columns {
			if j < len(row) {
				rec[col.Name] = row[j]
			}
		}
		records[i] = rec
	}
	return records
}

// Reader executes SQL against some relational engine. Implementations must
// honor ctx cancellation on the blocking call.
type Reader interface {
	Execute(ctx context.Context, query string) (*Result, error)
	Close() error
}
