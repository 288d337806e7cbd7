// Package load ingests CSV, JSON and JSONL files into reader-backed tables,
// so interactive sessions can visualize ad-hoc data.
package load

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Record is one parsed row keyed by column name.
type Record map[string]any

// Execer runs DDL and DML statements. *reader.SQLReader satisfies it.
type Execer interface {
	Exec(ctx context.Context, stmt string) error
}

// Format identifies a supported input encoding.
type Format int

const (
	FormatCSV Format = iota
	FormatJSON
	FormatJSONL
)

// DetectFormat picks the format from a file name's extension.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	}
	return 0, fmt.Errorf("unsupported file extension %q", filepath.Ext(filename))
}

// File reads filename, creates table on exec and inserts every record.
// Returns the number of rows loaded.
func File(ctx context.Context, exec Execer, filename, table string) (int, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return 0, err
	}
	f, err := os.Open(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	records, err := Parse(f, format)
	if err != nil {
		return 0, err
	}
	return Table(ctx, exec, table, records)
}

// Parse decodes every record in r according to format.
func Parse(r io.Reader, format Format) ([]Record, error) {
	switch format {
	case FormatCSV:
		return parseCSV(r)
	case FormatJSON:
		return parseJSON(r)
	case FormatJSONL:
		return parseJSONL(r)
	}
	return nil, fmt.Errorf("unknown format %d", format)
}

// Table creates table from the records' merged column set and inserts every
// record. Returns the number of rows inserted.
func Table(ctx context.Context, exec Execer, table string, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, fmt.Errorf("no records to load into %q", table)
	}

	columns := mergedColumns(records)
	ddl := createStatement(table, columns, records)
	if err := exec.Exec(ctx, ddl); err != nil {
		return 0, fmt.Errorf("failed to create table %q: %w", table, err)
	}

	for i, record := range records {
		stmt := insertStatement(table, columns, record)
		if err := exec.Exec(ctx, stmt); err != nil {
			return i, fmt.Errorf("failed to insert row %d into %q: %w", i+1, table, err)
		}
	}
	return len(records), nil
}

// parseCSV reads a headered CSV. Cells that parse as numbers or booleans
// are typed accordingly; empty cells become NULL.
func parseCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("CSV input is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		record := make(Record, len(header))
		for i, name := range header {
			if i >= len(row) {
				break
			}
			record[name] = csvCell(row[i])
		}
		records = append(records, record)
	}
	return records, nil
}

func csvCell(cell string) any {
	if cell == "" {
		return nil
	}
	if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	switch strings.ToLower(cell) {
	case "true":
		return true
	case "false":
		return false
	}
	return cell
}

// parseJSON accepts a single object or an array of objects.
func parseJSON(r io.Reader) ([]Record, error) {
	var data any
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	switch v := data.(type) {
	case map[string]any:
		return []Record{v}, nil
	case []any:
		records := make([]Record, 0, len(v))
		for i, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("array element %d is not an object", i)
			}
			records = append(records, obj)
		}
		return records, nil
	}
	return nil, fmt.Errorf("unexpected JSON type: %T", data)
}

// parseJSONL reads one object per line, skipping blank lines.
func parseJSONL(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var records []Record
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, fmt.Errorf("failed to parse JSONL record: %w", err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading JSONL input: %w", err)
	}
	return records, nil
}

// mergedColumns is the union of every record's keys, sorted for stable DDL.
func mergedColumns(records []Record) []string {
	seen := make(map[string]bool)
	var columns []string
	for _, record := range records {
		for name := range record {
			if !seen[name] {
				seen[name] = true
				columns = append(columns, name)
			}
		}
	}
	sort.Strings(columns)
	return columns
}

// createStatement derives column affinities from the first non-nil value
// observed per column.
func createStatement(table string, columns []string, records []Record) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(quoteIdent(table))
	b.WriteString(" (")
	for i, name := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(name))
		b.WriteString(" ")
		b.WriteString(columnAffinity(name, records))
	}
	b.WriteString(")")
	return b.String()
}

func columnAffinity(name string, records []Record) string {
	for _, record := range records {
		switch record[name].(type) {
		case nil:
			continue
		case int64:
			return "INTEGER"
		case float64:
			return "REAL"
		case bool:
			return "BOOLEAN"
		default:
			return "TEXT"
		}
	}
	return "TEXT"
}

func insertStatement(table string, columns []string, record Record) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(quoteIdent(table))
	b.WriteString(" (")
	for i, name := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(name))
	}
	b.WriteString(") VALUES (")
	for i, name := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlLiteral(record[name]))
	}
	b.WriteString(")")
	return b.String()
}

func sqlLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	default:
		// Nested objects and arrays are stored as JSON text.
		encoded, err := json.Marshal(x)
		if err != nil {
			return "NULL"
		}
		return "'" + strings.ReplaceAll(string(encoded), "'", "''") + "'"
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
