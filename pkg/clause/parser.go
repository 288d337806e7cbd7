// Package clause parses visualization-clause text into the typed plot.Spec
// representation.
//
// Parsing is purely lexical/grammatical: wildcard and implicit mappings stay
// unresolved because their meaning depends on the executed result schema.
package clause

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/ggsql/ggsql/pkg/plot"
)

// Parse parses one clause fragment (keyword included) and builds its Spec.
func Parse(input string) (*plot.Spec, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, &SyntaxError{Message: "empty visualization clause"}
	}

	ast, err := clauseParser.ParseString("", input)
	if err != nil {
		return nil, wrapParseError(err)
	}
	return buildSpec(ast)
}

// wrapParseError converts a participle failure into a SyntaxError carrying
// the token position and the parser's expectation context.
func wrapParseError(err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		pos := perr.Position()
		return &SyntaxError{
			Line:    pos.Line,
			Column:  pos.Column,
			Context: perr.Message(),
			Message: perr.Message(),
		}
	}
	return &SyntaxError{Message: err.Error()}
}

func buildSpec(ast *astClause) (*plot.Spec, error) {
	spec := &plot.Spec{}

	global, err := buildGlobal(ast)
	if err != nil {
		return nil, err
	}
	spec.Global = global

	if ast.From != nil {
		spec.Source = *ast.From
	}

	for _, draw := range ast.Draws {
		layer, err := buildLayer(draw)
		if err != nil {
			return nil, err
		}
		spec.Layers = append(spec.Layers, layer)
	}

	for _, sc := range ast.Scales {
		scale, err := buildScale(sc)
		if err != nil {
			return nil, err
		}
		spec.Scales = append(spec.Scales, scale)
	}

	if ast.Facet != nil {
		spec.Facet = &plot.Facet{Fields: ast.Facet.Fields}
	}

	if len(ast.Labels) > 0 {
		items := make(map[string]string, len(ast.Labels))
		for _, s := range ast.Labels {
			items[s.Name] = valueString(s.Value)
		}
		spec.Labels = &plot.Labels{Items: items}
	}

	if ast.Theme != nil {
		spec.Theme = &plot.Theme{Name: *ast.Theme}
	}

	for _, g := range ast.Guides {
		if err := checkAesthetic(g.Aesthetic, g.Pos.Line, g.Pos.Column, "GUIDE"); err != nil {
			return nil, err
		}
		spec.Guides = append(spec.Guides, plot.Guide{
			Aesthetic:  g.Aesthetic,
			Properties: buildSettings(g.Props),
		})
	}

	return spec, nil
}

func buildGlobal(ast *astClause) (plot.GlobalMapping, error) {
	if ast.Wildcard {
		return plot.GlobalMapping{Kind: plot.GlobalWildcard}, nil
	}
	if len(ast.Items) == 0 {
		return plot.GlobalMapping{Kind: plot.GlobalEmpty}, nil
	}

	items := make([]plot.MappingItem, 0, len(ast.Items))
	for _, item := range ast.Items {
		value := buildValue(item.Value)
		if item.Aesthetic == nil {
			// Implicit form: a bare identifier, never a literal.
			if value.IsLiteral() {
				return plot.GlobalMapping{}, syntaxErrorf(item.Pos.Line, item.Pos.Column,
					"global mapping", "literal value requires an AS aesthetic")
			}
			items = append(items, plot.MappingItem{Aesthetic: value.Column, Value: value})
			continue
		}
		// Global aesthetics are an open set: implicit items and wildcard
		// admit arbitrary column names, so `col AS col` must be admissible
		// for any col to keep the two spellings equivalent.
		items = append(items, plot.MappingItem{Aesthetic: *item.Aesthetic, Value: value})
	}
	return plot.GlobalMapping{Kind: plot.GlobalList, Items: items}, nil
}

func buildLayer(draw *astDraw) (plot.Layer, error) {
	geom, ok := plot.ParseGeom(strings.ToLower(draw.Geom))
	if !ok {
		return plot.Layer{}, syntaxErrorf(draw.Pos.Line, draw.Pos.Column,
			"DRAW", "unknown geom %q", draw.Geom)
	}

	layer := plot.Layer{Geom: geom}
	if draw.Name != nil {
		layer.Name = *draw.Name
	}

	if len(draw.Mappings) > 0 {
		layer.Aesthetics = make(map[string]plot.AestheticValue, len(draw.Mappings))
		for _, m := range draw.Mappings {
			if err := checkAesthetic(m.Aesthetic, m.Pos.Line, m.Pos.Column, "MAPPING"); err != nil {
				return plot.Layer{}, err
			}
			layer.Aesthetics[m.Aesthetic] = buildValue(m.Value)
		}
	}

	if len(draw.Settings) > 0 {
		layer.Settings = buildSettings(draw.Settings)
	}
	return layer, nil
}

func buildScale(sc *astScale) (plot.Scale, error) {
	if err := checkAesthetic(sc.Aesthetic, sc.Pos.Line, sc.Pos.Column, "SCALE"); err != nil {
		return plot.Scale{}, err
	}
	scale := plot.Scale{Aesthetic: sc.Aesthetic}
	if sc.Type != nil {
		t, palette, ok := plot.ParseScaleType(strings.ToLower(*sc.Type))
		if !ok {
			return plot.Scale{}, syntaxErrorf(sc.Pos.Line, sc.Pos.Column,
				"SCALE", "unknown scale type %q", *sc.Type)
		}
		scale.Type = t
		scale.HasType = true
		scale.Palette = palette
	}
	if len(sc.Props) > 0 {
		scale.Properties = buildSettings(sc.Props)
	}
	return scale, nil
}

func buildSettings(settings []*astSetting) map[string]any {
	if len(settings) == 0 {
		return nil
	}
	out := make(map[string]any, len(settings))
	for _, s := range settings {
		out[s.Name] = valueAny(s.Value)
	}
	return out
}

// buildValue classifies a grammar value: quoted, numeric and boolean forms
// are literals, a bare identifier is a column reference.
func buildValue(v astValue) plot.AestheticValue {
	switch {
	case v.Number != nil:
		return plot.LiteralValue(*v.Number)
	case v.Str != nil:
		return plot.LiteralValue(*v.Str)
	case v.Bool != nil:
		return plot.LiteralValue(strings.EqualFold(*v.Bool, "true"))
	case v.Column != nil:
		return plot.ColumnValue(*v.Column)
	}
	return plot.AestheticValue{}
}

// valueAny returns a setting value as a plain Go value; bare identifiers
// pass through as strings.
func valueAny(v astValue) any {
	switch {
	case v.Number != nil:
		return *v.Number
	case v.Str != nil:
		return *v.Str
	case v.Bool != nil:
		return strings.EqualFold(*v.Bool, "true")
	case v.Column != nil:
		return *v.Column
	}
	return nil
}

func valueString(v astValue) string {
	switch {
	case v.Str != nil:
		return *v.Str
	case v.Column != nil:
		return *v.Column
	case v.Number != nil:
		return fmt.Sprintf("%v", *v.Number)
	case v.Bool != nil:
		return strings.ToLower(*v.Bool)
	}
	return ""
}

func checkAesthetic(name string, line, column int, context string) error {
	if !plot.IsAesthetic(name) {
		return syntaxErrorf(line, column, context, "unknown aesthetic %q", name)
	}
	return nil
}
