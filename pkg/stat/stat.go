// Package stat decides, per layer, whether raw rows or an aggregate must be
// read, and rewrites the relational query to compute the aggregates.
//
// Each aggregating layer becomes a named common-table-expression over the
// base result; all fragments plus the base query are combined into a single
// statement whose rows are tagged with their dataset of origin, so the
// executed result can be partitioned back into named datasets.
package stat

import (
	"fmt"
	"strings"

	"github.com/ggsql/ggsql/pkg/naming"
	"github.com/ggsql/ggsql/pkg/plot"
	"github.com/ggsql/ggsql/pkg/reader"
	"github.com/ggsql/ggsql/pkg/resolve"
)

// binBuckets is the fixed bucket count for the bin stat.
const binBuckets = 30

// RewriteError reports that stat SQL generation cannot proceed, e.g. a
// count stat whose x is a literal rather than a column.
type RewriteError struct {
	LayerIndex int
	Stat       plot.Stat
	Message    string
}

func (e *RewriteError) Error() string {
	return fmt.Sprintf("layer %d (%s stat): %s", e.LayerIndex+1, e.Stat, e.Message)
}

// Rewrite is the outcome of stat resolution for one spec.
type Rewrite struct {
	// Stats is the effective stat per layer, after override degradation.
	Stats []plot.Stat
	// SQL is the executable statement. When no layer needs an aggregate it
	// is the base query unchanged; otherwise it is the combined tagged
	// statement.
	SQL string
	// Tagged reports whether SQL is the combined multi-dataset form.
	Tagged bool
	// Datasets maps layer indexes to the dataset they read; layers absent
	// read the base dataset.
	Datasets map[int]string
	// Schemas holds the schema of every dataset in the combined result,
	// the base dataset included.
	Schemas map[string]reader.Schema
}

// Plan computes effective stats for every layer of spec and rewrites baseSQL
// accordingly. base is the realized schema of the base query, needed both
// for wildcard expansion and to pad the combined statement's projections.
func Plan(spec *plot.Spec, baseSQL string, base reader.Schema) (*Rewrite, error) {
	global := resolve.GlobalTable(spec.Global, base.Names())

	rw := &Rewrite{
		Datasets: make(map[int]string),
		Schemas:  map[string]reader.Schema{naming.BaseDataset: base},
	}

	type fragment struct {
		name   string
		sql    string
		schema reader.Schema
	}
	var fragments []fragment

	for i, layer := range spec.Layers {
		table := resolve.Overlay(global, layer)
		stat := effectiveStat(layer, table)
		rw.Stats = append(rw.Stats, stat)

		if !stat.NeedsSQL() {
			continue
		}

		frag, schema, err := generateFragment(i, layer.Geom, stat, table, base)
		if err != nil {
			return nil, err
		}
		name := naming.LayerDataset(i)
		fragments = append(fragments, fragment{name: name, sql: frag, schema: schema})
		rw.Datasets[i] = name
		rw.Schemas[name] = schema
	}

	baseSQL = strings.TrimRight(strings.TrimSpace(baseSQL), ";")
	if len(fragments) == 0 {
		rw.SQL = baseSQL
		return rw, nil
	}

	// Union all datasets over the merged column list, tagging each row with
	// its origin so the result can be partitioned after execution.
	merged := base.Names()
	seen := make(map[string]bool, len(merged))
	for _, n := range merged {
		seen[n] = true
	}
	for _, f := range fragments {
		for _, c := range f.schema {
			if !seen[c.Name] {
				seen[c.Name] = true
				merged = append(merged, c.Name)
			}
		}
	}

	var b strings.Builder
	b.WriteString("WITH ")
	b.WriteString(naming.BaseDataset)
	b.WriteString(" AS (\n")
	b.WriteString(baseSQL)
	b.WriteString("\n)")
	for _, f := range fragments {
		b.WriteString(",\n")
		b.WriteString(f.name)
		b.WriteString(" AS (\n")
		b.WriteString(f.sql)
		b.WriteString("\n)")
	}
	b.WriteString("\n")
	b.WriteString(datasetSelect(naming.BaseDataset, base, merged))
	for _, f := range fragments {
		b.WriteString("\nUNION ALL\n")
		b.WriteString(datasetSelect(f.name, f.schema, merged))
	}

	rw.SQL = b.String()
	rw.Tagged = true
	return rw, nil
}

// effectiveStat applies the default-stat table and the override rule: a
// mapping that already supplies a stat-computed aesthetic degrades the stat
// to identity, because the user's value is authoritative.
func effectiveStat(layer plot.Layer, table map[string]plot.AestheticValue) plot.Stat {
	stat := layer.Geom.DefaultStat()
	for _, computed := range stat.ComputedAesthetics() {
		if _, ok := table[computed]; ok {
			return plot.StatIdentity
		}
	}
	return stat
}

// generateFragment emits the CTE body for one aggregating layer.
func generateFragment(idx int, geom plot.Geom, stat plot.Stat, table map[string]plot.AestheticValue, base reader.Schema) (string, reader.Schema, error) {
	xCol, err := statInput(idx, geom, stat, table, base, "x")
	if err != nil {
		return "", nil, err
	}
	xType, _ := base.Lookup(xCol)

	switch stat {
	case plot.StatCount:
		sql := fmt.Sprintf(
			"SELECT %s AS %s, COUNT(*) AS %s FROM %s GROUP BY %s",
			quoteIdent(xCol), quoteIdent("x"), quoteIdent("y"),
			naming.BaseDataset, quoteIdent(xCol))
		return sql, reader.Schema{
			{Name: "x", Type: xType.Type},
			{Name: "y", Type: reader.TypeNumber},
		}, nil

	case plot.StatBin:
		if xType.Type != reader.TypeNumber {
			return "", nil, &RewriteError{LayerIndex: idx, Stat: stat,
				Message: fmt.Sprintf("bin stat requires a numeric x column, %q is %s", xCol, xType.Type)}
		}
		x := quoteIdent(xCol)
		// The maximum value indexes one past the last bucket; clamp it so
		// it joins the top bucket instead of opening a 31st.
		idx := fmt.Sprintf("CAST((t.%s - b.lo) / NULLIF(b.step, 0) AS INTEGER)", x)
		clamped := fmt.Sprintf("CASE WHEN %s >= %d THEN %d ELSE %s END", idx, binBuckets, binBuckets-1, idx)
		sql := fmt.Sprintf(
			"SELECT b.lo + (%s + 0.5) * b.step AS %s, COUNT(*) AS %s\n"+
				"FROM %s t\n"+
				"CROSS JOIN (SELECT MIN(%s) AS lo, (MAX(%s) - MIN(%s)) / %d.0 AS step FROM %s) b\n"+
				"GROUP BY 1",
			clamped, quoteIdent("x"), quoteIdent("y"),
			naming.BaseDataset,
			x, x, x, binBuckets, naming.BaseDataset)
		return sql, reader.Schema{
			{Name: "x", Type: reader.TypeNumber},
			{Name: "y", Type: reader.TypeNumber},
		}, nil

	case plot.StatBoxplot:
		yCol, err := statInput(idx, geom, stat, table, base, "y")
		if err != nil {
			return "", nil, err
		}
		x, y := quoteIdent(xCol), quoteIdent(yCol)
		// Linear-interpolation quantiles over ranked rows. PERCENTILE_CONT
		// only exists on Postgres; ROW_NUMBER/COUNT window functions run on
		// every supported reader.
		sql := fmt.Sprintf(
			"SELECT x AS %s,\n"+
				"  MIN(y) AS %s,\n"+
				"  %s AS %s,\n"+
				"  %s AS %s,\n"+
				"  %s AS %s,\n"+
				"  MAX(y) AS %s\n"+
				"FROM (SELECT %s AS x, %s AS y,\n"+
				"        ROW_NUMBER() OVER (PARTITION BY %s ORDER BY %s) - 1 AS rn,\n"+
				"        COUNT(*) OVER (PARTITION BY %s) AS cnt\n"+
				"      FROM %s) q\n"+
				"GROUP BY x",
			quoteIdent("x"),
			quoteIdent("ymin"),
			quantileExpr("0.25"), quoteIdent("lower"),
			quantileExpr("0.5"), quoteIdent("middle"),
			quantileExpr("0.75"), quoteIdent("upper"),
			quoteIdent("ymax"),
			x, y,
			x, y,
			x,
			naming.BaseDataset)
		schema := reader.Schema{
			{Name: "x", Type: xType.Type},
			{Name: "ymin", Type: reader.TypeNumber},
			{Name: "lower", Type: reader.TypeNumber},
			{Name: "middle", Type: reader.TypeNumber},
			{Name: "upper", Type: reader.TypeNumber},
			{Name: "ymax", Type: reader.TypeNumber},
		}
		return sql, schema, nil
	}
	return "", nil, &RewriteError{LayerIndex: idx, Stat: stat, Message: "stat does not generate SQL"}
}

// quantileExpr interpolates the p-th quantile from 0-based ranked rows (rn)
// and the group size (cnt): the value at position (cnt-1)*p, linearly
// blended between the two neighboring ranks when the position is
// fractional. Matches PERCENTILE_CONT semantics using only arithmetic and
// comparisons, which every supported reader evaluates identically.
func quantileExpr(p string) string {
	pos := fmt.Sprintf("((cnt - 1) * %s)", p)
	return fmt.Sprintf(
		"SUM(CASE WHEN %s >= rn AND %s < rn + 1 THEN y * (1 - (%s - rn)) "+
			"WHEN %s >= rn - 1 AND %s < rn THEN y * (%s - rn + 1) ELSE 0 END)",
		pos, pos, pos, pos, pos, pos)
}

// statInput fetches a stat's required input column from the overlaid table
// and checks it against the base schema.
func statInput(idx int, geom plot.Geom, stat plot.Stat, table map[string]plot.AestheticValue, base reader.Schema, aesthetic string) (string, error) {
	value, ok := table[aesthetic]
	if !ok {
		return "", &resolve.ResolutionError{LayerIndex: idx, Geom: geom, Missing: []string{aesthetic}}
	}
	if value.IsLiteral() {
		return "", &RewriteError{LayerIndex: idx, Stat: stat,
			Message: fmt.Sprintf("%s stat requires a column-valued %s", stat, aesthetic)}
	}
	if _, ok := base.Lookup(value.Column); !ok {
		return "", &resolve.ResolutionError{LayerIndex: idx, Geom: geom, Missing: []string{aesthetic}}
	}
	return value.Column, nil
}

// datasetSelect projects one dataset onto the merged column list, padding
// columns it does not have with NULL.
func datasetSelect(name string, schema reader.Schema, merged []string) string {
	parts := make([]string, 0, len(merged)+1)
	parts = append(parts, fmt.Sprintf("'%s' AS %s", name, quoteIdent(naming.SourceColumn)))
	for _, col := range merged {
		if _, ok := schema.Lookup(col); ok {
			parts = append(parts, quoteIdent(col))
		} else {
			parts = append(parts, "NULL AS "+quoteIdent(col))
		}
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(parts, ", "), name)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
