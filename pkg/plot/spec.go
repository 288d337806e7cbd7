// Package plot defines the typed intermediate representation of a
// visualization clause: the Spec built by the clause parser, its layers,
// mappings, scales and auxiliary declarations.
//
// A Spec is unresolved: global wildcard and implicit mappings reference the
// query's result schema, which only exists after execution. Schema-time
// resolution lives in pkg/resolve and produces a separate type.
package plot

// Spec is one parsed visualization clause. A query may contain several
// clauses; each builds an independent Spec.
type Spec struct {
	// Source is the optional FROM shorthand (table or CTE name).
	Source string

	Global GlobalMapping
	Layers []Layer

	Scales []Scale
	Facet  *Facet
	Labels *Labels
	Theme  *Theme
	Guides []Guide
}

// GlobalKind discriminates the three global-mapping forms.
type GlobalKind int

const (
	// GlobalEmpty declares no defaults; every layer self-supplies.
	GlobalEmpty GlobalKind = iota
	// GlobalWildcard expands to every column of the realized schema.
	GlobalWildcard
	// GlobalList is an explicit/implicit item list.
	GlobalList
)

// GlobalMapping is the clause-level aesthetic declaration inherited by all
// layers unless overridden.
type GlobalMapping struct {
	Kind  GlobalKind
	Items []MappingItem
}

// MappingItem binds one aesthetic. The implicit form `name` is stored as
// {Aesthetic: name, Value: Column(name)} so resolution treats both forms
// uniformly.
type MappingItem struct {
	Aesthetic string
	Value     AestheticValue
}

// AestheticValue is either a column reference (resolved against data) or a
// literal constant (emitted as-is). Literal is nil for column references.
type AestheticValue struct {
	Column  string
	Literal any
}

// ColumnValue returns a column-reference value.
func ColumnValue(name string) AestheticValue {
	return AestheticValue{Column: name}
}

// LiteralValue returns a constant value.
func LiteralValue(v any) AestheticValue {
	return AestheticValue{Literal: v}
}

// IsLiteral reports whether the value is a constant rather than a column
// reference.
func (v AestheticValue) IsLiteral() bool {
	return v.Literal != nil
}

// Layer is one geom plus its own aesthetic bindings and settings. Stat is
// derived by the stat resolver, never declared.
type Layer struct {
	Geom       Geom
	Name       string
	Aesthetics map[string]AestheticValue
	Settings   map[string]any
}

// Facet declares small multiples. One field wraps, two form a row/column
// grid.
type Facet struct {
	Fields []string
}

// Labels overrides titles: the "title" key is the chart title, any other key
// is the title for that aesthetic's axis or legend.
type Labels struct {
	Items map[string]string
}

// Theme names a styling preset applied spec-wide.
type Theme struct {
	Name string
}

// Guide customizes the legend or axis guide of one aesthetic.
type Guide struct {
	Aesthetic  string
	Properties map[string]any
}

// aestheticNames is the closed set of channel names a mapping may bind.
var aestheticNames = map[string]bool{
	"x": true, "y": true,
	"xmin": true, "xmax": true, "ymin": true, "ymax": true,
	"color": true, "fill": true, "stroke": true,
	"size": true, "shape": true, "opacity": true,
	"linetype": true, "linewidth": true,
	"label": true, "detail": true,
}

// IsAesthetic reports whether name is a recognized aesthetic.
func IsAesthetic(name string) bool {
	return aestheticNames[name]
}
