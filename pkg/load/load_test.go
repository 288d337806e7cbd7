package load

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureExec struct {
	stmts []string
}

func (c *captureExec) Exec(_ context.Context, stmt string) error {
	c.stmts = append(c.stmts, stmt)
	return nil
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		filename string
		want     Format
		wantErr  bool
	}{
		{"sales.csv", FormatCSV, false},
		{"sales.CSV", FormatCSV, false},
		{"sales.json", FormatJSON, false},
		{"events.jsonl", FormatJSONL, false},
		{"events.ndjson", FormatJSONL, false},
		{"sales.parquet", 0, true},
		{"noext", 0, true},
	}
	for _, tc := range cases {
		got, err := DetectFormat(tc.filename)
		if tc.wantErr {
			assert.Error(t, err, tc.filename)
			continue
		}
		require.NoError(t, err, tc.filename)
		assert.Equal(t, tc.want, got, tc.filename)
	}
}

func TestParseCSVTyping(t *testing.T) {
	input := "name,qty,price,active\nwidget,3,1.5,true\ngadget,,2.25,false\n"
	records, err := Parse(strings.NewReader(input), FormatCSV)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "widget", records[0]["name"])
	assert.Equal(t, int64(3), records[0]["qty"])
	assert.Equal(t, 1.5, records[0]["price"])
	assert.Equal(t, true, records[0]["active"])
	assert.Nil(t, records[1]["qty"])
}

func TestParseJSONForms(t *testing.T) {
	records, err := Parse(strings.NewReader(`{"a": 1}`), FormatJSON)
	require.NoError(t, err)
	require.Len(t, records, 1)

	records, err = Parse(strings.NewReader(`[{"a": 1}, {"a": 2}]`), FormatJSON)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = Parse(strings.NewReader(`[1, 2]`), FormatJSON)
	assert.Error(t, err)

	_, err = Parse(strings.NewReader(`42`), FormatJSON)
	assert.Error(t, err)
}

func TestParseJSONL(t *testing.T) {
	input := "{\"a\": 1}\n\n{\"a\": 2, \"b\": \"x\"}\n"
	records, err := Parse(strings.NewReader(input), FormatJSONL)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "x", records[1]["b"])

	_, err = Parse(strings.NewReader("not json\n"), FormatJSONL)
	assert.Error(t, err)
}

func TestTableStatements(t *testing.T) {
	exec := &captureExec{}
	records := []Record{
		{"name": "widget", "qty": int64(3)},
		{"name": "o'brien", "qty": nil, "note": "late"},
	}

	n, err := Table(context.Background(), exec, "items", records)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, exec.stmts, 3)

	ddl := exec.stmts[0]
	assert.Contains(t, ddl, `CREATE TABLE "items"`)
	assert.Contains(t, ddl, `"name" TEXT`)
	assert.Contains(t, ddl, `"qty" INTEGER`)
	assert.Contains(t, ddl, `"note" TEXT`)

	assert.Contains(t, exec.stmts[1], `'widget'`)
	assert.Contains(t, exec.stmts[1], "NULL") // missing "note"
	assert.Contains(t, exec.stmts[2], `'o''brien'`)
}

func TestTableEmpty(t *testing.T) {
	_, err := Table(context.Background(), &captureExec{}, "items", nil)
	assert.Error(t, err)
}
