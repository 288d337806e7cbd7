package clause

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ggsql/ggsql/pkg/plot"
)

func TestParseSpellingAndCaseInvariance(t *testing.T) {
	inputs := []string{
		"VISUALISE x AS x",
		"visualize x AS x",
		"VISUALIZE x AS x",
		"Visualise x as x",
	}
	var first *plot.Spec
	for _, input := range inputs {
		spec, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q): %v", input, err)
		}
		if first == nil {
			first = spec
			continue
		}
		if !reflect.DeepEqual(spec, first) {
			t.Errorf("Parse(%q) differs structurally from %q", input, inputs[0])
		}
	}
}

func TestParseGlobalMappingForms(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind plot.GlobalKind
		wantLen  int
	}{
		{"empty", "VISUALISE", plot.GlobalEmpty, 0},
		{"wildcard", "VISUALISE *", plot.GlobalWildcard, 0},
		{"explicit list", "VISUALISE date AS x, revenue AS y", plot.GlobalList, 2},
		{"implicit list", "VISUALISE a, b, c", plot.GlobalList, 3},
		{"mixed list", "VISUALISE date AS x, revenue", plot.GlobalList, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if spec.Global.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", spec.Global.Kind, tt.wantKind)
			}
			if len(spec.Global.Items) != tt.wantLen {
				t.Errorf("items = %d, want %d", len(spec.Global.Items), tt.wantLen)
			}
		})
	}
}

// The implicit form is sugar for `name AS name`, for any column name --
// global aesthetics are an open set, unlike layer MAPPING aesthetics.
func TestParseImplicitEqualsExplicit(t *testing.T) {
	pairs := [][2]string{
		{"VISUALISE a, b, c", "VISUALISE a AS a, b AS b, c AS c"},
		{"VISUALISE revenue", "VISUALISE revenue AS revenue"},
	}
	for _, pair := range pairs {
		implicit, err := Parse(pair[0])
		if err != nil {
			t.Fatal(err)
		}
		explicit, err := Parse(pair[1])
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(implicit.Global, explicit.Global) {
			t.Errorf("implicit %+v != explicit %+v", implicit.Global, explicit.Global)
		}
	}
}

func TestParseLayers(t *testing.T) {
	spec, err := Parse("VISUALISE date AS x, revenue AS y DRAW line DRAW point MAPPING profit AS y SETTING color => 'red', size => 3")
	if err != nil {
		t.Fatal(err)
	}
	if len(spec.Layers) != 2 {
		t.Fatalf("layers = %d, want 2", len(spec.Layers))
	}
	if spec.Layers[0].Geom != plot.GeomLine {
		t.Errorf("layer 0 geom = %v, want line", spec.Layers[0].Geom)
	}
	if len(spec.Layers[0].Aesthetics) != 0 {
		t.Errorf("layer 0 should have no own aesthetics, got %v", spec.Layers[0].Aesthetics)
	}
	second := spec.Layers[1]
	if second.Geom != plot.GeomPoint {
		t.Errorf("layer 1 geom = %v, want point", second.Geom)
	}
	if got := second.Aesthetics["y"]; got.Column != "profit" {
		t.Errorf("layer 1 y = %+v, want column profit", got)
	}
	if got := second.Settings["color"]; got != "red" {
		t.Errorf("setting color = %v, want red", got)
	}
	if got := second.Settings["size"]; got != float64(3) {
		t.Errorf("setting size = %v, want 3", got)
	}
}

func TestParseFromSource(t *testing.T) {
	spec, err := Parse("VISUALISE * FROM sales DRAW bar MAPPING region AS x")
	if err != nil {
		t.Fatal(err)
	}
	if spec.Source != "sales" {
		t.Errorf("source = %q, want sales", spec.Source)
	}
}

func TestParseLiteralVsColumn(t *testing.T) {
	spec, err := Parse("VISUALISE DRAW point MAPPING a AS x, 'steelblue' AS color, 0.5 AS opacity")
	if err != nil {
		t.Fatal(err)
	}
	aes := spec.Layers[0].Aesthetics
	if aes["x"].IsLiteral() || aes["x"].Column != "a" {
		t.Errorf("x = %+v, want column a", aes["x"])
	}
	if !aes["color"].IsLiteral() || aes["color"].Literal != "steelblue" {
		t.Errorf("color = %+v, want literal steelblue", aes["color"])
	}
	if !aes["opacity"].IsLiteral() || aes["opacity"].Literal != 0.5 {
		t.Errorf("opacity = %+v, want literal 0.5", aes["opacity"])
	}
}

func TestParseAuxiliaryClauses(t *testing.T) {
	spec, err := Parse("VISUALISE date AS x, revenue AS y DRAW line SCALE y TYPE log10 SCALE color TYPE viridis FACET BY region LABEL title => 'Revenue', y => 'EUR' THEME dark GUIDE color position => 'bottom'")
	if err != nil {
		t.Fatal(err)
	}
	if len(spec.Scales) != 2 {
		t.Fatalf("scales = %d, want 2", len(spec.Scales))
	}
	if spec.Scales[0].Type != plot.ScaleLog10 {
		t.Errorf("scale 0 type = %v, want log10", spec.Scales[0].Type)
	}
	if spec.Scales[1].Type != plot.ScalePalette || spec.Scales[1].Palette != "viridis" {
		t.Errorf("scale 1 = %+v, want viridis palette", spec.Scales[1])
	}
	if spec.Facet == nil || len(spec.Facet.Fields) != 1 || spec.Facet.Fields[0] != "region" {
		t.Errorf("facet = %+v, want region", spec.Facet)
	}
	if spec.Labels == nil || spec.Labels.Items["title"] != "Revenue" || spec.Labels.Items["y"] != "EUR" {
		t.Errorf("labels = %+v", spec.Labels)
	}
	if spec.Theme == nil || spec.Theme.Name != "dark" {
		t.Errorf("theme = %+v, want dark", spec.Theme)
	}
	if len(spec.Guides) != 1 || spec.Guides[0].Aesthetic != "color" {
		t.Errorf("guides = %+v", spec.Guides)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"dangling AS", "VISUALISE x AS"},
		{"unknown geom", "VISUALISE DRAW sparkline MAPPING a AS x"},
		{"unknown layer aesthetic", "VISUALISE DRAW point MAPPING a AS warp"},
		{"literal implicit global", "VISUALISE 'red'"},
		{"unknown scale type", "VISUALISE a AS x DRAW point MAPPING a AS y SCALE x TYPE cubic"},
		{"layer mapping requires AS", "VISUALISE DRAW point MAPPING a"},
		{"empty input", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.input)
			}
			var serr *SyntaxError
			if !errors.As(err, &serr) {
				t.Errorf("error %T is not a SyntaxError", err)
			}
		})
	}
}

func TestParseErrorCarriesPosition(t *testing.T) {
	_, err := Parse("VISUALISE a AS x,\n  b AS")
	var serr *SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SyntaxError, got %v", err)
	}
	if serr.Line < 2 {
		t.Errorf("line = %d, want the failing second line", serr.Line)
	}
}
