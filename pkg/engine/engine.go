// Package engine drives the full pipeline: split the input, parse each
// visualization clause, rewrite and execute the query, partition the result
// into datasets, resolve mappings and synthesize the output document.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/ggsql/ggsql/pkg/clause"
	"github.com/ggsql/ggsql/pkg/naming"
	"github.com/ggsql/ggsql/pkg/plot"
	"github.com/ggsql/ggsql/pkg/reader"
	"github.com/ggsql/ggsql/pkg/resolve"
	"github.com/ggsql/ggsql/pkg/splitter"
	"github.com/ggsql/ggsql/pkg/stat"
	"github.com/ggsql/ggsql/pkg/writer"
)

// Document is the fully rendered outcome of one visualization clause.
type Document struct {
	// Plot is the parsed, unresolved specification.
	Plot *plot.Spec
	// Visual is the resolved specification the document was built from.
	Visual *resolve.Spec
	// SQL is the statement that was executed, after any stat rewrite.
	SQL string
	// Datasets holds the realized data keyed by dataset name.
	Datasets map[string]*reader.Result
	// Doc is the synthesized chart document.
	Doc map[string]any
}

// Engine renders visualization queries against one reader.
type Engine struct {
	reader reader.Reader
	writer *writer.VegaLite
}

func New(r reader.Reader) *Engine {
	return &Engine{reader: r, writer: writer.NewVegaLite()}
}

// Render processes input end to end. Input carrying several visualization
// clauses yields one document per clause; each clause renders or fails
// independently, and the error joins every failed clause.
func (e *Engine) Render(ctx context.Context, input string) ([]*Document, error) {
	_, fragments := splitter.Split(input)
	if len(fragments) == 0 {
		return nil, errors.New("input has no visualization clause")
	}

	var docs []*Document
	var errs []error
	prefix := ""
	for i, frag := range fragments {
		// A clause directly following another shares its statement.
		if strings.TrimSpace(frag.Prefix) != "" {
			prefix = frag.Prefix
		}
		doc, err := e.renderOne(ctx, prefix, frag.Text)
		if err != nil {
			if len(fragments) > 1 {
				err = fmt.Errorf("clause %d: %w", i+1, err)
			}
			errs = append(errs, err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, errors.Join(errs...)
}

func (e *Engine) renderOne(ctx context.Context, prefix, fragment string) (*Document, error) {
	spec, err := clause.Parse(fragment)
	if err != nil {
		return nil, err
	}

	baseSQL, err := baseQuery(prefix, spec)
	if err != nil {
		return nil, err
	}

	base, err := e.probeSchema(ctx, baseSQL)
	if err != nil {
		return nil, err
	}

	rw, err := stat.Plan(spec, baseSQL, base)
	if err != nil {
		return nil, err
	}

	result, err := e.reader.Execute(ctx, rw.SQL)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "executing rewritten query")
	}

	datasets, err := partition(result, rw)
	if err != nil {
		return nil, err
	}
	// The probe's schema can be less precise than the executed result's.
	base = datasets[naming.BaseDataset].Columns

	visual, err := resolve.Resolve(spec, base, rw.Stats, rw.Datasets)
	if err != nil {
		return nil, err
	}

	doc, err := e.writer.Write(visual, datasets)
	if err != nil {
		return nil, err
	}

	return &Document{
		Plot:     spec,
		Visual:   visual,
		SQL:      rw.SQL,
		Datasets: datasets,
		Doc:      doc,
	}, nil
}

// Validate parses every clause in input without touching the reader. It
// reports the clauses found and joins every parse failure.
func Validate(input string) (int, error) {
	_, fragments := splitter.Split(input)
	if len(fragments) == 0 {
		return 0, errors.New("input has no visualization clause")
	}
	var errs []error
	for i, frag := range fragments {
		if _, err := clause.Parse(frag.Text); err != nil {
			if len(fragments) > 1 {
				err = fmt.Errorf("clause %d: %w", i+1, err)
			}
			errs = append(errs, err)
		}
	}
	return len(fragments), errors.Join(errs...)
}

// baseQuery picks the relational query a clause draws from: the statement
// preceding the clause, or the FROM source when the clause names one.
func baseQuery(prefix string, spec *plot.Spec) (string, error) {
	if spec.Source != "" {
		return "SELECT * FROM " + quoteIdent(spec.Source), nil
	}
	trimmed := strings.TrimSpace(prefix)
	trimmed = strings.TrimSuffix(trimmed, ";")
	if strings.TrimSpace(trimmed) == "" {
		return "", errors.New("visualization clause has no query: no preceding statement and no FROM source")
	}
	return trimmed, nil
}

// probeSchema learns the base query's column layout without materializing
// rows, by wrapping it in a zero-row subquery.
func (e *Engine) probeSchema(ctx context.Context, baseSQL string) (reader.Schema, error) {
	probe := fmt.Sprintf("SELECT * FROM (%s) AS __ggsql_probe__ WHERE 1=0", baseSQL)
	result, err := e.reader.Execute(ctx, probe)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "probing base query schema")
	}
	return result.Columns, nil
}

// partition splits an executed result into per-dataset results. Untagged
// results are the base dataset whole; tagged results are fanned out on the
// source column, each dataset keeping only its own schema's columns.
func partition(result *reader.Result, rw *stat.Rewrite) (map[string]*reader.Result, error) {
	if !rw.Tagged {
		return map[string]*reader.Result{naming.BaseDataset: result}, nil
	}

	pos := make(map[string]int, len(result.Columns))
	for i, col := range result.Columns {
		pos[col.Name] = i
	}
	tagPos, ok := pos[naming.SourceColumn]
	if !ok {
		return nil, fmt.Errorf("tagged result is missing the %s column", naming.SourceColumn)
	}

	datasets := make(map[string]*reader.Result, len(rw.Schemas))
	for name, schema := range rw.Schemas {
		datasets[name] = &reader.Result{Columns: refine(schema, result.Columns)}
	}

	for _, row := range result.Rows {
		tag, _ := row[tagPos].(string)
		ds, ok := datasets[tag]
		if !ok {
			return nil, fmt.Errorf("tagged row names unknown dataset %q", tag)
		}
		cells := make([]any, len(ds.Columns))
		for i, col := range ds.Columns {
			if p, ok := pos[col.Name]; ok {
				cells[i] = row[p]
			}
		}
		ds.Rows = append(ds.Rows, cells)
	}
	return datasets, nil
}

// refine fills unknown column types in a planned schema from the executed
// result's type hints.
func refine(planned reader.Schema, executed reader.Schema) reader.Schema {
	refined := make(reader.Schema, len(planned))
	copy(refined, planned)
	for i, col := range refined {
		if col.Type != reader.TypeUnknown {
			continue
		}
		if hint, ok := executed.Lookup(col.Name); ok {
			refined[i].Type = hint.Type
		}
	}
	return refined
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
