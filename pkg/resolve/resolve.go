// Package resolve turns an unresolved plot.Spec into a concrete per-layer
// aesthetic table once the executed result schema is known.
//
// The two phases are separate types on purpose: plot.Spec has no aesthetic
// table, resolve.Spec has nothing else. Wildcard and implicit global
// mappings only acquire meaning here, never during parsing.
package resolve

import (
	"fmt"
	"sort"

	"github.com/ggsql/ggsql/pkg/naming"
	"github.com/ggsql/ggsql/pkg/plot"
	"github.com/ggsql/ggsql/pkg/reader"
)

// Spec is a fully resolved visualization specification: every layer carries
// its concrete aesthetic table and the dataset it reads from.
type Spec struct {
	Source string
	Layers []Layer
	Scales []plot.Scale
	Facet  *plot.Facet
	Labels *plot.Labels
	Theme  *plot.Theme
	Guides []plot.Guide
}

// Layer is one resolved layer.
type Layer struct {
	Geom       plot.Geom
	Name       string
	Stat       plot.Stat
	Dataset    string
	Aesthetics map[string]plot.AestheticValue
	Settings   map[string]any
}

// ResolutionError reports a required aesthetic missing after global+layer
// overlay, naming the layer and geom.
type ResolutionError struct {
	LayerIndex int
	Geom       plot.Geom
	Missing    []string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("layer %d (%s): missing required aesthetics %v",
		e.LayerIndex+1, e.Geom, e.Missing)
}

// GlobalTable expands the global mapping against the base schema columns.
// Empty yields an empty table; wildcard binds every column to the aesthetic
// of the same name; an item list applies items in order, later writer wins.
func GlobalTable(g plot.GlobalMapping, columns []string) map[string]plot.AestheticValue {
	table := make(map[string]plot.AestheticValue)
	switch g.Kind {
	case plot.GlobalEmpty:
	case plot.GlobalWildcard:
		for _, c := range columns {
			table[c] = plot.ColumnValue(c)
		}
	case plot.GlobalList:
		for _, item := range g.Items {
			table[item.Aesthetic] = item.Value
		}
	}
	return table
}

// Overlay copies the global table and overwrites it with the layer's own
// aesthetics. The layer always wins on a name collision.
func Overlay(global map[string]plot.AestheticValue, layer plot.Layer) map[string]plot.AestheticValue {
	table := make(map[string]plot.AestheticValue, len(global)+len(layer.Aesthetics))
	for k, v := range global {
		table[k] = v
	}
	for k, v := range layer.Aesthetics {
		table[k] = v
	}
	return table
}

// statColumns is the canonical aesthetic table of a SQL-computed stat
// dataset, keyed by stat kind. Aggregated layers read these instead of base
// columns.
func statColumns(s plot.Stat) []string {
	switch s {
	case plot.StatCount, plot.StatBin:
		return []string{"x", "y"}
	case plot.StatBoxplot:
		return []string{"x", "ymin", "lower", "middle", "upper", "ymax"}
	}
	return nil
}

// Resolve produces the resolved specification for one parsed spec.
//
// base is the realized schema of the relational result. stats holds the
// effective per-layer stat and datasets maps each layer index to the dataset
// it must read (both produced by the stat resolver); layers absent from
// datasets read the base dataset. Resolve never mutates spec, so resolving
// twice yields identical tables.
func Resolve(spec *plot.Spec, base reader.Schema, stats []plot.Stat, datasets map[int]string) (*Spec, error) {
	if len(stats) != len(spec.Layers) {
		return nil, fmt.Errorf("resolve: %d stats for %d layers", len(stats), len(spec.Layers))
	}

	global := GlobalTable(spec.Global, base.Names())

	resolved := &Spec{
		Source: spec.Source,
		Scales: spec.Scales,
		Facet:  spec.Facet,
		Labels: spec.Labels,
		Theme:  spec.Theme,
		Guides: spec.Guides,
	}

	for i, layer := range spec.Layers {
		table := Overlay(global, layer)

		dataset := naming.BaseDataset
		if name, ok := datasets[i]; ok {
			dataset = name
		}

		stat := stats[i]
		aggregated := stat.NeedsSQL() && dataset != naming.BaseDataset
		if aggregated {
			// The stat resolver validated the stat's inputs when it
			// generated the fragment; the table now reads the canonical
			// aggregate columns.
			table = statTable(table, stat)
		} else if missing := missingAesthetics(layer.Geom, stat, table); len(missing) > 0 {
			return nil, &ResolutionError{LayerIndex: i, Geom: layer.Geom, Missing: missing}
		}

		resolved.Layers = append(resolved.Layers, Layer{
			Geom:       layer.Geom,
			Name:       layer.Name,
			Stat:       stat,
			Dataset:    dataset,
			Aesthetics: table,
			Settings:   layer.Settings,
		})
	}
	return resolved, nil
}

// statTable rebinds an aggregated layer's table onto the stat dataset's
// canonical columns. Literals survive; column references into the base
// result do not exist in the aggregate and are dropped.
func statTable(overlay map[string]plot.AestheticValue, stat plot.Stat) map[string]plot.AestheticValue {
	table := make(map[string]plot.AestheticValue)
	for k, v := range overlay {
		if v.IsLiteral() {
			table[k] = v
		}
	}
	for _, col := range statColumns(stat) {
		table[col] = plot.ColumnValue(col)
	}
	return table
}

// missingAesthetics checks the geom's requirements against the resolved
// table. Aesthetics the stat computes are produced downstream and are not
// required as inputs.
func missingAesthetics(geom plot.Geom, stat plot.Stat, table map[string]plot.AestheticValue) []string {
	computed := make(map[string]bool)
	if stat != plot.StatIdentity {
		for _, a := range stat.ComputedAesthetics() {
			computed[a] = true
		}
	}

	var missing []string
	for _, req := range geom.RequiredAesthetics() {
		if computed[req] {
			continue
		}
		if _, ok := table[req]; !ok {
			missing = append(missing, req)
		}
	}
	sort.Strings(missing)
	return missing
}
