package writer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ggsql/ggsql/pkg/naming"
	"github.com/ggsql/ggsql/pkg/plot"
	"github.com/ggsql/ggsql/pkg/reader"
	"github.com/ggsql/ggsql/pkg/resolve"
)

func baseResult() *reader.Result {
	return &reader.Result{
		Columns: reader.Schema{
			{Name: "date", Type: reader.TypeDate},
			{Name: "price", Type: reader.TypeNumber},
			{Name: "region", Type: reader.TypeText},
		},
		Rows: [][]any{
			{"2024-01-01", 10.5, "north"},
			{"2024-01-02", 11.0, "south"},
		},
	}
}

func pointLayer() resolve.Layer {
	return resolve.Layer{
		Geom:    plot.GeomPoint,
		Stat:    plot.StatIdentity,
		Dataset: naming.BaseDataset,
		Aesthetics: map[string]plot.AestheticValue{
			"x":     plot.ColumnValue("date"),
			"y":     plot.ColumnValue("price"),
			"color": plot.ColumnValue("region"),
		},
	}
}

func TestWriteSingleLayerFlat(t *testing.T) {
	spec := &resolve.Spec{Layers: []resolve.Layer{pointLayer()}}
	data := map[string]*reader.Result{naming.BaseDataset: baseResult()}

	doc, err := NewVegaLite().Write(spec, data)
	require.NoError(t, err)

	assert.Equal(t, schemaURL, doc["$schema"])
	assert.NotContains(t, doc, "layer")

	mark := doc["mark"].(map[string]any)
	assert.Equal(t, "point", mark["type"])

	encoding := doc["encoding"].(map[string]any)
	x := encoding["x"].(map[string]any)
	assert.Equal(t, "date", x["field"])
	assert.Equal(t, "temporal", x["type"])
	y := encoding["y"].(map[string]any)
	assert.Equal(t, "quantitative", y["type"])
	color := encoding["color"].(map[string]any)
	assert.Equal(t, "nominal", color["type"])

	values := doc["data"].(map[string]any)["values"].([]map[string]any)
	require.Len(t, values, 2)
	assert.Equal(t, 10.5, values[0]["price"])
}

func TestWriteLiteralChannel(t *testing.T) {
	layer := pointLayer()
	layer.Aesthetics["color"] = plot.LiteralValue("steelblue")
	spec := &resolve.Spec{Layers: []resolve.Layer{layer}}
	data := map[string]*reader.Result{naming.BaseDataset: baseResult()}

	doc, err := NewVegaLite().Write(spec, data)
	require.NoError(t, err)

	color := doc["encoding"].(map[string]any)["color"].(map[string]any)
	assert.Equal(t, "steelblue", color["value"])
	assert.NotContains(t, color, "field")
}

func TestWriteMultiLayerWithNamedDataset(t *testing.T) {
	counts := &reader.Result{
		Columns: reader.Schema{
			{Name: "x", Type: reader.TypeText},
			{Name: "y", Type: reader.TypeNumber},
		},
		Rows: [][]any{{"north", int64(4)}},
	}
	bar := resolve.Layer{
		Geom:    plot.GeomBar,
		Stat:    plot.StatCount,
		Dataset: naming.LayerDataset(1),
		Aesthetics: map[string]plot.AestheticValue{
			"x": plot.ColumnValue("x"),
			"y": plot.ColumnValue("y"),
		},
	}
	spec := &resolve.Spec{Layers: []resolve.Layer{pointLayer(), bar}}
	data := map[string]*reader.Result{
		naming.BaseDataset:     baseResult(),
		naming.LayerDataset(1): counts,
	}

	doc, err := NewVegaLite().Write(spec, data)
	require.NoError(t, err)

	layers := doc["layer"].([]map[string]any)
	require.Len(t, layers, 2)
	assert.NotContains(t, layers[0], "data")

	ref := layers[1]["data"].(map[string]any)
	assert.Equal(t, naming.LayerDataset(1), ref["name"])
	assert.Equal(t, "bar", layers[1]["mark"].(map[string]any)["type"])

	datasets := doc["datasets"].(map[string]any)
	require.Contains(t, datasets, naming.LayerDataset(1))

	y := layers[1]["encoding"].(map[string]any)["y"].(map[string]any)
	assert.Equal(t, "quantitative", y["type"])
}

func TestWriteMissingDataset(t *testing.T) {
	layer := pointLayer()
	layer.Dataset = naming.LayerDataset(1)
	spec := &resolve.Spec{Layers: []resolve.Layer{layer}}
	data := map[string]*reader.Result{naming.BaseDataset: baseResult()}

	_, err := NewVegaLite().Write(spec, data)
	var synth *SynthesisError
	require.ErrorAs(t, err, &synth)
}

func TestWriteScalesAndGuides(t *testing.T) {
	spec := &resolve.Spec{
		Layers: []resolve.Layer{pointLayer()},
		Scales: []plot.Scale{
			{Aesthetic: "y", Type: plot.ScaleLog10, HasType: true},
			{Aesthetic: "color", Type: plot.ScalePalette, HasType: true, Palette: "viridis"},
		},
		Guides: []plot.Guide{
			{Aesthetic: "color", Properties: map[string]any{"orient": "bottom"}},
		},
	}
	data := map[string]*reader.Result{naming.BaseDataset: baseResult()}

	doc, err := NewVegaLite().Write(spec, data)
	require.NoError(t, err)

	encoding := doc["encoding"].(map[string]any)
	y := encoding["y"].(map[string]any)
	assert.Equal(t, "log", y["scale"].(map[string]any)["type"])

	color := encoding["color"].(map[string]any)
	assert.Equal(t, "viridis", color["scale"].(map[string]any)["scheme"])
	assert.Equal(t, "bottom", color["legend"].(map[string]any)["orient"])
}

func TestWriteLabelsAndTheme(t *testing.T) {
	spec := &resolve.Spec{
		Layers: []resolve.Layer{pointLayer()},
		Labels: &plot.Labels{Items: map[string]string{
			"title": "Quarterly Prices",
			"y":     "Price (USD)",
		}},
		Theme: &plot.Theme{Name: "dark"},
	}
	data := map[string]*reader.Result{naming.BaseDataset: baseResult()}

	doc, err := NewVegaLite().Write(spec, data)
	require.NoError(t, err)

	assert.Equal(t, "Quarterly Prices", doc["title"])
	assert.Contains(t, doc, "config")

	y := doc["encoding"].(map[string]any)["y"].(map[string]any)
	assert.Equal(t, "Price (USD)", y["title"])
}

func TestWriteFacetRestructures(t *testing.T) {
	spec := &resolve.Spec{
		Layers: []resolve.Layer{pointLayer()},
		Facet:  &plot.Facet{Fields: []string{"region"}},
	}
	data := map[string]*reader.Result{naming.BaseDataset: baseResult()}

	doc, err := NewVegaLite().Write(spec, data)
	require.NoError(t, err)

	facet := doc["facet"].(map[string]any)
	assert.Equal(t, "region", facet["field"])
	assert.Equal(t, "nominal", facet["type"])

	inner := doc["spec"].(map[string]any)
	assert.Contains(t, inner, "mark")
	assert.Contains(t, inner, "encoding")
	assert.NotContains(t, doc, "mark")
	assert.NotContains(t, doc, "encoding")
}

func TestWriteDensityTransform(t *testing.T) {
	layer := resolve.Layer{
		Geom:    plot.GeomDensity,
		Stat:    plot.StatDensity,
		Dataset: naming.BaseDataset,
		Aesthetics: map[string]plot.AestheticValue{
			"x": plot.ColumnValue("price"),
		},
	}
	spec := &resolve.Spec{Layers: []resolve.Layer{layer}}
	data := map[string]*reader.Result{naming.BaseDataset: baseResult()}

	doc, err := NewVegaLite().Write(spec, data)
	require.NoError(t, err)

	transforms := doc["transform"].([]any)
	require.Len(t, transforms, 1)
	assert.Equal(t, "price", transforms[0].(map[string]any)["density"])

	y := doc["encoding"].(map[string]any)["y"].(map[string]any)
	assert.Equal(t, "density", y["field"])
	assert.Equal(t, "area", doc["mark"].(map[string]any)["type"])
}

func TestWriteSmoothTransform(t *testing.T) {
	layer := resolve.Layer{
		Geom:    plot.GeomSmooth,
		Stat:    plot.StatSmooth,
		Dataset: naming.BaseDataset,
		Aesthetics: map[string]plot.AestheticValue{
			"x": plot.ColumnValue("date"),
			"y": plot.ColumnValue("price"),
		},
	}
	spec := &resolve.Spec{Layers: []resolve.Layer{layer}}
	data := map[string]*reader.Result{naming.BaseDataset: baseResult()}

	doc, err := NewVegaLite().Write(spec, data)
	require.NoError(t, err)

	transforms := doc["transform"].([]any)
	require.Len(t, transforms, 1)
	tr := transforms[0].(map[string]any)
	assert.Equal(t, "price", tr["regression"])
	assert.Equal(t, "date", tr["on"])
	assert.Equal(t, "line", doc["mark"].(map[string]any)["type"])
}

func TestWriteAggregatedBoxplot(t *testing.T) {
	box := &reader.Result{
		Columns: reader.Schema{
			{Name: "x", Type: reader.TypeText},
			{Name: "ymin", Type: reader.TypeNumber},
			{Name: "lower", Type: reader.TypeNumber},
			{Name: "middle", Type: reader.TypeNumber},
			{Name: "upper", Type: reader.TypeNumber},
			{Name: "ymax", Type: reader.TypeNumber},
		},
		Rows: [][]any{{"north", 1.0, 2.0, 3.0, 4.0, 5.0}},
	}
	aes := map[string]plot.AestheticValue{}
	for _, c := range box.Columns.Names() {
		aes[c] = plot.ColumnValue(c)
	}
	layer := resolve.Layer{
		Geom:       plot.GeomBoxplot,
		Stat:       plot.StatBoxplot,
		Dataset:    naming.LayerDataset(1),
		Aesthetics: aes,
	}
	spec := &resolve.Spec{Layers: []resolve.Layer{layer}}
	data := map[string]*reader.Result{
		naming.BaseDataset:     baseResult(),
		naming.LayerDataset(1): box,
	}

	doc, err := NewVegaLite().Write(spec, data)
	require.NoError(t, err)

	parts := doc["layer"].([]map[string]any)
	require.Len(t, parts, 3)

	whisker := parts[0]
	assert.Equal(t, "rule", whisker["mark"].(map[string]any)["type"])
	wenc := whisker["encoding"].(map[string]any)
	assert.Equal(t, "ymin", wenc["y"].(map[string]any)["field"])
	assert.Equal(t, "ymax", wenc["y2"].(map[string]any)["field"])

	boxMark := parts[1]
	assert.Equal(t, "bar", boxMark["mark"].(map[string]any)["type"])
	benc := boxMark["encoding"].(map[string]any)
	assert.Equal(t, "x", benc["x"].(map[string]any)["field"])
	assert.Equal(t, "lower", benc["y"].(map[string]any)["field"])
	assert.Equal(t, "upper", benc["y2"].(map[string]any)["field"])
	assert.NotContains(t, benc, "middle")

	median := parts[2]
	assert.Equal(t, "tick", median["mark"].(map[string]any)["type"])
	assert.Equal(t, "middle", median["encoding"].(map[string]any)["y"].(map[string]any)["field"])
}

func TestWriteSettingBecomesConstant(t *testing.T) {
	layer := pointLayer()
	layer.Settings = map[string]any{"opacity": 0.4, "bins": int64(10)}
	spec := &resolve.Spec{Layers: []resolve.Layer{layer}}
	data := map[string]*reader.Result{naming.BaseDataset: baseResult()}

	doc, err := NewVegaLite().Write(spec, data)
	require.NoError(t, err)

	encoding := doc["encoding"].(map[string]any)
	opacity := encoding["opacity"].(map[string]any)
	assert.Equal(t, 0.4, opacity["value"])
	assert.NotContains(t, encoding, "bins")
}

func TestWriteJSONValid(t *testing.T) {
	spec := &resolve.Spec{Layers: []resolve.Layer{pointLayer()}}
	data := map[string]*reader.Result{naming.BaseDataset: baseResult()}

	out, err := NewVegaLite().WriteJSON(spec, data, true)
	require.NoError(t, err)
	assert.Contains(t, string(out), "\"$schema\"")
	assert.Contains(t, string(out), "vega-lite")
}
