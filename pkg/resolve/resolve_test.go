package resolve

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ggsql/ggsql/pkg/clause"
	"github.com/ggsql/ggsql/pkg/naming"
	"github.com/ggsql/ggsql/pkg/plot"
	"github.com/ggsql/ggsql/pkg/reader"
)

func schemaOf(names ...string) reader.Schema {
	s := make(reader.Schema, len(names))
	for i, n := range names {
		s[i] = reader.Column{Name: n, Type: reader.TypeText}
	}
	return s
}

func identityStats(n int) []plot.Stat {
	stats := make([]plot.Stat, n)
	return stats
}

func mustParse(t *testing.T, input string) *plot.Spec {
	t.Helper()
	spec, err := clause.Parse(input)
	if err != nil {
		t.Fatalf("Parse(%q): %v", input, err)
	}
	return spec
}

func TestGlobalTableWildcard(t *testing.T) {
	g := plot.GlobalMapping{Kind: plot.GlobalWildcard}
	got := GlobalTable(g, []string{"p", "q", "r"})
	want := map[string]plot.AestheticValue{
		"p": plot.ColumnValue("p"),
		"q": plot.ColumnValue("q"),
		"r": plot.ColumnValue("r"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("wildcard table = %v, want %v", got, want)
	}
}

// Bare identifiers expand exactly like their explicit spelling.
func TestGlobalTableImplicitExpansion(t *testing.T) {
	implicit := mustParse(t, "VISUALISE a, b, c")
	explicit := mustParse(t, "VISUALISE a AS a, b AS b, c AS c")

	cols := []string{"a", "b", "c"}
	if !reflect.DeepEqual(GlobalTable(implicit.Global, cols), GlobalTable(explicit.Global, cols)) {
		t.Error("implicit expansion differs from explicit form")
	}
}

func TestOverridePrecedence(t *testing.T) {
	spec := mustParse(t, "VISUALISE date AS x, revenue AS y, region AS color DRAW line MAPPING profit AS y")
	resolved, err := Resolve(spec, schemaOf("date", "revenue", "region", "profit"), identityStats(1), nil)
	if err != nil {
		t.Fatal(err)
	}
	got := resolved.Layers[0].Aesthetics
	want := map[string]plot.AestheticValue{
		"x":     plot.ColumnValue("date"),
		"y":     plot.ColumnValue("profit"),
		"color": plot.ColumnValue("region"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("resolved table = %v, want %v", got, want)
	}
}

func TestEmptyGlobalLayerSelfSupplies(t *testing.T) {
	spec := mustParse(t, "VISUALISE DRAW bar MAPPING category AS x")
	resolved, err := Resolve(spec, schemaOf("category"), identityStats(1), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := resolved.Layers[0].Aesthetics["x"]; got.Column != "category" {
		t.Errorf("x = %+v, want column category", got)
	}
}

func TestEmptyGlobalBareLayerFails(t *testing.T) {
	spec := mustParse(t, "VISUALISE DRAW bar")
	_, err := Resolve(spec, schemaOf("category"), identityStats(1), nil)
	var rerr *ResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
	if rerr.LayerIndex != 0 || rerr.Geom != plot.GeomBar {
		t.Errorf("error = %+v, want layer 0 bar", rerr)
	}
	if len(rerr.Missing) != 1 || rerr.Missing[0] != "x" {
		t.Errorf("missing = %v, want [x]", rerr.Missing)
	}
}

// Resolving the same spec twice must yield identical tables.
func TestResolveIdempotent(t *testing.T) {
	spec := mustParse(t, "VISUALISE * DRAW point MAPPING extra AS color DRAW line")
	schema := schemaOf("x", "y", "extra")

	first, err := Resolve(spec, schema, identityStats(2), nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Resolve(spec, schema, identityStats(2), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("re-resolution changed the result")
	}
}

func TestResolveStatLayerReadsCanonicalColumns(t *testing.T) {
	spec := mustParse(t, "VISUALISE region AS x, 'gray' AS color DRAW bar")
	stats := []plot.Stat{plot.StatCount}
	datasets := map[int]string{0: naming.LayerDataset(0)}

	resolved, err := Resolve(spec, schemaOf("region"), stats, datasets)
	if err != nil {
		t.Fatal(err)
	}
	layer := resolved.Layers[0]
	if layer.Dataset != naming.LayerDataset(0) {
		t.Errorf("dataset = %q", layer.Dataset)
	}
	if got := layer.Aesthetics["x"]; got.Column != "x" {
		t.Errorf("x = %+v, want canonical column x", got)
	}
	if got := layer.Aesthetics["y"]; got.Column != "y" {
		t.Errorf("y = %+v, want canonical column y", got)
	}
	// Literals survive aggregation; base column references do not.
	if got := layer.Aesthetics["color"]; !got.IsLiteral() {
		t.Errorf("color = %+v, want literal", got)
	}
}

func TestResolveMissingAestheticForText(t *testing.T) {
	spec := mustParse(t, "VISUALISE a AS x, b AS y DRAW text")
	_, err := Resolve(spec, schemaOf("a", "b"), identityStats(1), nil)
	var rerr *ResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
	if len(rerr.Missing) != 1 || rerr.Missing[0] != "label" {
		t.Errorf("missing = %v, want [label]", rerr.Missing)
	}
}
