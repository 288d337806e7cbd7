// Package writer synthesizes the final declarative chart document from a
// resolved specification and its realized datasets.
//
// The output mirrors the Vega-Lite v6 schema: a flat single-mark document
// for one layer, a layered document for several, named datasets for layers
// whose stat rewrote their data.
package writer

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ggsql/ggsql/pkg/naming"
	"github.com/ggsql/ggsql/pkg/plot"
	"github.com/ggsql/ggsql/pkg/reader"
	"github.com/ggsql/ggsql/pkg/resolve"
)

const schemaURL = "https://vega.github.io/schema/vega-lite/v6.json"

// SynthesisError reports an internal invariant violation, e.g. a layer's
// dataset missing from the realized data map. It is a programmer error, not
// a user-facing condition.
type SynthesisError struct {
	Message string
}

func (e *SynthesisError) Error() string {
	return "synthesis error: " + e.Message
}

func synthesisErrorf(format string, args ...any) *SynthesisError {
	return &SynthesisError{Message: fmt.Sprintf(format, args...)}
}

// VegaLite writes Vega-Lite documents.
type VegaLite struct {
	SchemaURL string
}

func NewVegaLite() *VegaLite {
	return &VegaLite{SchemaURL: schemaURL}
}

// Write produces the output document for one resolved specification. data
// holds every realized dataset keyed by name; the base dataset must always
// be present.
func (w *VegaLite) Write(spec *resolve.Spec, data map[string]*reader.Result) (map[string]any, error) {
	if len(spec.Layers) == 0 {
		return nil, synthesisErrorf("specification has no layers")
	}

	base, ok := data[naming.BaseDataset]
	if !ok {
		return nil, synthesisErrorf("base dataset %q not realized", naming.BaseDataset)
	}

	doc := map[string]any{
		"$schema": w.SchemaURL,
		"width":   "container",
		"height":  "container",
	}

	if spec.Labels != nil {
		if title, ok := spec.Labels.Items["title"]; ok {
			doc["title"] = title
		}
	}
	if spec.Theme != nil {
		if config, ok := themeConfig(spec.Theme.Name); ok {
			doc["config"] = config
		}
	}

	layers := make([]map[string]any, len(spec.Layers))
	for i, layer := range spec.Layers {
		ds, ok := data[layer.Dataset]
		if !ok {
			return nil, synthesisErrorf("layer %d references dataset %q with no realized data", i+1, layer.Dataset)
		}
		built, err := w.buildLayer(spec, layer, ds)
		if err != nil {
			return nil, err
		}
		layers[i] = built
	}

	if len(spec.Layers) == 1 {
		// Flat single-mark document carrying its own data inline.
		only := data[spec.Layers[0].Dataset]
		doc["data"] = map[string]any{"values": only.Records()}
		for k, v := range layers[0] {
			if k != "data" {
				doc[k] = v
			}
		}
	} else {
		doc["data"] = map[string]any{"values": base.Records()}
		datasets := map[string]any{}
		for _, layer := range spec.Layers {
			if layer.Dataset == naming.BaseDataset {
				continue
			}
			datasets[layer.Dataset] = data[layer.Dataset].Records()
		}
		if len(datasets) > 0 {
			doc["datasets"] = datasets
		}
		doc["layer"] = layers
	}

	if spec.Facet != nil {
		if err := applyFacet(doc, spec.Facet, base); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// WriteJSON renders the document as JSON text.
func (w *VegaLite) WriteJSON(spec *resolve.Spec, data map[string]*reader.Result, pretty bool) ([]byte, error) {
	doc, err := w.Write(spec, data)
	if err != nil {
		return nil, err
	}
	if pretty {
		return json.MarshalIndent(doc, "", "  ")
	}
	return json.Marshal(doc)
}

// buildLayer assembles one layer's mark, encoding, transforms and dataset
// reference.
func (w *VegaLite) buildLayer(spec *resolve.Spec, layer resolve.Layer, ds *reader.Result) (map[string]any, error) {
	if layer.Geom == plot.GeomBoxplot && layer.Stat == plot.StatBoxplot {
		return w.buildBoxplot(spec, layer, ds), nil
	}

	built := map[string]any{
		"mark": map[string]any{"type": markType(layer), "clip": true},
	}
	if layer.Name != "" {
		built["name"] = layer.Name
	}
	if layer.Dataset != naming.BaseDataset {
		built["data"] = map[string]any{"name": layer.Dataset}
	}

	encoding := map[string]any{}
	for _, aes := range sortedKeys(layer.Aesthetics) {
		value := layer.Aesthetics[aes]
		channel, ok := channelName(aes)
		if !ok {
			continue
		}
		encoding[channel] = w.buildChannel(spec, layer, aes, value, ds)
	}

	switch layer.Stat {
	case plot.StatDensity:
		applyDensity(layer, encoding, built)
	case plot.StatSmooth:
		applySmooth(layer, encoding, built)
	}

	// Settings that name aesthetics become constant encodings unless the
	// mapping already claimed the channel.
	for _, name := range sortedKeys(layer.Settings) {
		if !plot.IsAesthetic(name) {
			continue
		}
		if channel, ok := channelName(name); ok {
			if _, taken := encoding[channel]; !taken {
				encoding[channel] = map[string]any{"value": layer.Settings[name]}
			}
		}
	}

	built["encoding"] = encoding
	return built, nil
}

// boxplotAggregates are the quartile columns the stat computed; they feed
// the box composition directly rather than ordinary channels.
var boxplotAggregates = map[string]bool{
	"ymin": true, "lower": true, "middle": true, "upper": true, "ymax": true,
}

// buildBoxplot renders a SQL-aggregated boxplot layer as its full
// composition: whiskers (rule ymin→ymax), the interquartile box (bar
// lower→upper) and a median tick.
func (w *VegaLite) buildBoxplot(spec *resolve.Spec, layer resolve.Layer, ds *reader.Result) map[string]any {
	channel := func(aes string) map[string]any {
		return w.buildChannel(spec, layer, aes, layer.Aesthetics[aes], ds)
	}

	whisker := map[string]any{
		"mark": map[string]any{"type": "rule", "clip": true},
		"encoding": map[string]any{
			"x":  channel("x"),
			"y":  channel("ymin"),
			"y2": channel("ymax"),
		},
	}

	boxEncoding := map[string]any{
		"x":  channel("x"),
		"y":  channel("lower"),
		"y2": channel("upper"),
	}
	// Remaining aesthetics (color, fill, opacity...) style the box.
	for _, aes := range sortedKeys(layer.Aesthetics) {
		if aes == "x" || boxplotAggregates[aes] {
			continue
		}
		if name, ok := channelName(aes); ok {
			boxEncoding[name] = channel(aes)
		}
	}
	box := map[string]any{
		"mark":     map[string]any{"type": "bar", "clip": true},
		"encoding": boxEncoding,
	}

	median := map[string]any{
		"mark": map[string]any{"type": "tick", "clip": true},
		"encoding": map[string]any{
			"x": channel("x"),
			"y": channel("middle"),
		},
	}

	built := map[string]any{
		"layer": []map[string]any{whisker, box, median},
	}
	if layer.Name != "" {
		built["name"] = layer.Name
	}
	if layer.Dataset != naming.BaseDataset {
		built["data"] = map[string]any{"name": layer.Dataset}
	}
	return built
}

// buildChannel emits one encoding channel: a constant for literals, a
// field reference with its type classification for columns.
func (w *VegaLite) buildChannel(spec *resolve.Spec, layer resolve.Layer, aes string, value plot.AestheticValue, ds *reader.Result) map[string]any {
	if value.IsLiteral() {
		return map[string]any{"value": value.Literal}
	}

	channel := map[string]any{
		"field": value.Column,
		"type":  fieldType(spec, aes, value.Column, ds),
	}
	if scale, ok := scaleFor(spec, aes); ok {
		if obj := scaleObject(scale); len(obj) > 0 {
			channel["scale"] = obj
		}
	}
	if spec.Labels != nil {
		if title, ok := spec.Labels.Items[aes]; ok {
			channel["title"] = title
		}
	}
	if guide, ok := guideFor(spec, aes); ok {
		key := "legend"
		if aes == "x" || aes == "y" {
			key = "axis"
		}
		channel[key] = guide.Properties
	}
	return channel
}

// fieldType classifies an encoded column. An explicit scale declaration
// wins; otherwise the column's storage-type hint decides.
func fieldType(spec *resolve.Spec, aes, column string, ds *reader.Result) string {
	if scale, ok := scaleFor(spec, aes); ok && scale.HasType {
		if t := scale.Type.FieldType(); t != "" {
			return t
		}
	}
	col, ok := ds.Columns.Lookup(column)
	if !ok {
		return "nominal"
	}
	switch {
	case col.Type == reader.TypeNumber:
		return "quantitative"
	case col.Type.Temporal():
		return "temporal"
	}
	return "nominal"
}

// markType is the fixed geom→mark lookup. Geoms without a direct mark fall
// back to the point mark to keep partial specs renderable.
func markType(layer resolve.Layer) string {
	switch layer.Geom {
	case plot.GeomPoint:
		return "point"
	case plot.GeomLine, plot.GeomSmooth:
		return "line"
	case plot.GeomBar, plot.GeomCol, plot.GeomHistogram:
		return "bar"
	case plot.GeomArea, plot.GeomDensity, plot.GeomViolin:
		return "area"
	case plot.GeomTile:
		return "rect"
	case plot.GeomText:
		return "text"
	case plot.GeomBoxplot:
		// SQL-aggregated boxplots never reach here; buildBoxplot renders
		// their composition. This is the identity-stat mark.
		return "boxplot"
	}
	return "point"
}

// channelName maps an aesthetic onto its encoding channel.
func channelName(aes string) (string, bool) {
	switch aes {
	case "xmin":
		return "x", true
	case "xmax":
		return "x2", true
	case "ymin":
		return "y", true
	case "ymax":
		return "y2", true
	case "linetype":
		return "strokeDash", true
	case "linewidth":
		return "strokeWidth", true
	case "label":
		return "text", true
	}
	return aes, true
}

// applyDensity expresses the density stat as an output-side transform.
func applyDensity(layer resolve.Layer, encoding map[string]any, built map[string]any) {
	x, ok := layer.Aesthetics["x"]
	if !ok || x.IsLiteral() {
		return
	}
	built["transform"] = []any{
		map[string]any{"density": x.Column, "as": []any{x.Column, "density"}},
	}
	encoding["y"] = map[string]any{"field": "density", "type": "quantitative"}
	if xc, ok := encoding["x"].(map[string]any); ok {
		xc["type"] = "quantitative"
	}
}

// applySmooth expresses the smooth stat as a regression transform.
func applySmooth(layer resolve.Layer, encoding map[string]any, built map[string]any) {
	x, okX := layer.Aesthetics["x"]
	y, okY := layer.Aesthetics["y"]
	if !okX || !okY || x.IsLiteral() || y.IsLiteral() {
		return
	}
	built["transform"] = []any{
		map[string]any{"regression": y.Column, "on": x.Column},
	}
}

// applyFacet moves the layer composition under "spec" next to the facet
// declaration, as layered faceted documents require.
func applyFacet(doc map[string]any, facet *plot.Facet, base *reader.Result) error {
	if len(facet.Fields) == 0 {
		return nil
	}

	fieldDef := func(name string) map[string]any {
		t := "nominal"
		if col, ok := base.Columns.Lookup(name); ok {
			switch {
			case col.Type == reader.TypeNumber:
				t = "quantitative"
			case col.Type.Temporal():
				t = "temporal"
			}
		}
		return map[string]any{"field": name, "type": t}
	}

	if len(facet.Fields) == 1 {
		doc["facet"] = fieldDef(facet.Fields[0])
	} else {
		doc["facet"] = map[string]any{
			"row":    fieldDef(facet.Fields[0]),
			"column": fieldDef(facet.Fields[1]),
		}
	}

	inner := map[string]any{}
	for _, key := range []string{"mark", "encoding", "layer", "transform"} {
		if v, ok := doc[key]; ok {
			inner[key] = v
			delete(doc, key)
		}
	}
	doc["spec"] = inner
	return nil
}

// scaleObject converts a scale declaration into the channel's scale object.
func scaleObject(scale plot.Scale) map[string]any {
	obj := map[string]any{}
	if scale.HasType {
		switch scale.Type {
		case plot.ScaleLog10:
			obj["type"] = "log"
		case plot.ScaleSqrt:
			obj["type"] = "sqrt"
		case plot.ScaleLinear:
			obj["type"] = "linear"
		case plot.ScaleReverse:
			obj["reverse"] = true
		case plot.ScalePalette:
			obj["scheme"] = scale.Palette
		case plot.ScaleOrdinal, plot.ScaleCategorical, plot.ScaleDate, plot.ScaleDatetime, plot.ScaleTime:
			// Carried entirely by the field-type classification.
		}
	}
	for _, key := range sortedKeys(scale.Properties) {
		switch key {
		case "palette":
			obj["scheme"] = scale.Properties[key]
		default:
			obj[key] = scale.Properties[key]
		}
	}
	return obj
}

func themeConfig(name string) (map[string]any, bool) {
	switch name {
	case "dark":
		return map[string]any{
			"background": "#333333",
			"title":      map[string]any{"color": "#ffffff"},
			"style":      map[string]any{"guide-label": map[string]any{"fill": "#dddddd"}},
		}, true
	case "minimal":
		return map[string]any{
			"axis": map[string]any{"grid": false},
			"view": map[string]any{"stroke": nil},
		}, true
	}
	return nil, false
}

func scaleFor(spec *resolve.Spec, aes string) (plot.Scale, bool) {
	for _, s := range spec.Scales {
		if s.Aesthetic == aes {
			return s, true
		}
	}
	return plot.Scale{}, false
}

func guideFor(spec *resolve.Spec, aes string) (plot.Guide, bool) {
	for _, g := range spec.Guides {
		if g.Aesthetic == aes {
			return g, true
		}
	}
	return plot.Guide{}, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
