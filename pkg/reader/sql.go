package reader

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// SQLReader executes queries through database/sql. Drivers are registered by
// the importing binary (sqlite3, mysql, postgres in cmd).
type SQLReader struct {
	db *sql.DB
}

// Open connects using a connection string of the form scheme://rest:
//
//	sqlite://memory          in-memory SQLite database
//	sqlite:///path/to/db     SQLite file
//	mysql://user:pw@tcp(host)/db
//	postgres://user:pw@host/db
func Open(connString string) (*SQLReader, error) {
	driver, dsn, err := ParseConnString(connString)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s reader", driver)
	}
	if driver == "sqlite3" && dsn == ":memory:" {
		// Every sqlite connection gets its own in-memory database; a
		// single shared connection keeps loaded tables visible.
		db.SetMaxOpenConns(1)
	}
	return &SQLReader{db: db}, nil
}

// ParseConnString splits a connection string into a database/sql driver name
// and DSN.
func ParseConnString(connString string) (driver, dsn string, err error) {
	scheme, rest, found := strings.Cut(connString, "://")
	if !found {
		return "", "", errors.Errorf("invalid connection string %q: missing scheme", connString)
	}
	switch strings.ToLower(scheme) {
	case "sqlite", "sqlite3":
		if rest == "memory" || rest == ":memory:" {
			return "sqlite3", ":memory:", nil
		}
		return "sqlite3", rest, nil
	case "mysql":
		return "mysql", withParseTime(rest), nil
	case "postgres", "postgresql":
		// lib/pq accepts the full URL form.
		return "postgres", connString, nil
	}
	return "", "", errors.Errorf("unsupported reader scheme %q", scheme)
}

// withParseTime makes the mysql driver scan temporal columns as time.Time
// instead of raw bytes.
func withParseTime(dsn string) string {
	if strings.Contains(dsn, "parseTime=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}

// Execute runs a query and materializes the result with normalized cells.
func (r *SQLReader) Execute(ctx context.Context, query string) (*Result, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "execute query")
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, errors.Wrap(err, "read column types")
	}

	schema := make(Schema, len(types))
	for i, ct := range types {
		schema[i] = Column{Name: ct.Name(), Type: columnTypeFor(ct.DatabaseTypeName())}
	}

	var data [][]any
	for rows.Next() {
		cells := make([]any, len(schema))
		ptrs := make([]any, len(schema))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, "scan row")
		}
		for i := range cells {
			cells[i] = normalizeCell(cells[i], schema[i].Type)
		}
		data = append(data, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rows")
	}

	refineSchema(schema, data)
	return &Result{Columns: schema, Rows: data}, nil
}

// Exec runs a statement that returns no rows (DDL, INSERT).
func (r *SQLReader) Exec(ctx context.Context, stmt string) error {
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return errors.Wrap(err, "exec statement")
	}
	return nil
}

func (r *SQLReader) Close() error {
	return r.db.Close()
}

// columnTypeFor maps a driver's type name onto the hint enum. Names vary per
// driver, so matching is by substring on the upper-cased name.
func columnTypeFor(dbType string) ColumnType {
	name := strings.ToUpper(dbType)
	switch {
	case name == "":
		return TypeUnknown
	case name == "DATE":
		return TypeDate
	case strings.Contains(name, "TIMESTAMP") || strings.Contains(name, "DATETIME"):
		return TypeTimestamp
	case strings.Contains(name, "TIME"):
		return TypeTime
	case strings.Contains(name, "INT"),
		strings.Contains(name, "FLOAT"),
		strings.Contains(name, "DOUBLE"),
		strings.Contains(name, "REAL"),
		strings.Contains(name, "NUMERIC"),
		strings.Contains(name, "DECIMAL"):
		return TypeNumber
	case strings.Contains(name, "BOOL"):
		return TypeBool
	case strings.Contains(name, "CHAR"),
		strings.Contains(name, "TEXT"),
		strings.Contains(name, "STRING"),
		strings.Contains(name, "UUID"):
		return TypeText
	}
	return TypeUnknown
}

// normalizeCell converts driver values into the normalized cell forms.
// Temporal values become canonical ISO strings so downstream classification
// and axis rendering behave the same regardless of the storage encoding.
func normalizeCell(v any, t ColumnType) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		if t == TypeDate {
			return val.Format("2006-01-02")
		}
		return val.Format(time.RFC3339)
	default:
		return v
	}
}

// refineSchema fills in Unknown column hints from observed values. SQLite
// reports no declared type for computed columns, so the first non-nil cell
// decides.
func refineSchema(schema Schema, rows [][]any) {
	for i := range schema {
		if schema[i].Type != TypeUnknown {
			continue
		}
		for _, row := range rows {
			if i >= len(row) || row[i] == nil {
				continue
			}
			switch row[i].(type) {
			case int64, float64:
				schema[i].Type = TypeNumber
			case bool:
				schema[i].Type = TypeBool
			default:
				schema[i].Type = TypeText
			}
			break
		}
	}
}
