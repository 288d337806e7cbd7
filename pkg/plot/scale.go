package plot

// ScaleType is the closed set of scale transformations a SCALE clause may
// name. Color palettes are one kind with the palette name carried alongside.
type ScaleType int

const (
	ScaleLinear ScaleType = iota
	ScaleLog10
	ScaleSqrt
	ScaleReverse
	ScaleOrdinal
	ScaleCategorical
	ScaleDate
	ScaleDatetime
	ScaleTime
	ScalePalette
)

var scaleTypeNames = map[string]ScaleType{
	"linear":      ScaleLinear,
	"log10":       ScaleLog10,
	"sqrt":        ScaleSqrt,
	"reverse":     ScaleReverse,
	"ordinal":     ScaleOrdinal,
	"categorical": ScaleCategorical,
	"date":        ScaleDate,
	"datetime":    ScaleDatetime,
	"time":        ScaleTime,
}

var paletteNames = map[string]bool{
	"viridis":    true,
	"magma":      true,
	"plasma":     true,
	"category10": true,
}

// ParseScaleType resolves a TYPE name. Palette names yield ScalePalette with
// the palette carried in the second return.
func ParseScaleType(name string) (ScaleType, string, bool) {
	if t, ok := scaleTypeNames[name]; ok {
		return t, "", true
	}
	if paletteNames[name] {
		return ScalePalette, name, true
	}
	return 0, "", false
}

func (t ScaleType) String() string {
	switch t {
	case ScaleLinear:
		return "linear"
	case ScaleLog10:
		return "log10"
	case ScaleSqrt:
		return "sqrt"
	case ScaleReverse:
		return "reverse"
	case ScaleOrdinal:
		return "ordinal"
	case ScaleCategorical:
		return "categorical"
	case ScaleDate:
		return "date"
	case ScaleDatetime:
		return "datetime"
	case ScaleTime:
		return "time"
	case ScalePalette:
		return "palette"
	}
	return "unknown"
}

// FieldType gives the output-document classification this scale type forces
// on its channel. The empty string means the classification stays inferred
// from the column's storage type.
func (t ScaleType) FieldType() string {
	switch t {
	case ScaleLinear, ScaleLog10, ScaleSqrt, ScaleReverse:
		return "quantitative"
	case ScaleOrdinal, ScaleCategorical:
		return "nominal"
	case ScaleDate, ScaleDatetime, ScaleTime:
		return "temporal"
	case ScalePalette:
		return ""
	}
	return ""
}

// Scale binds an aesthetic to an optional scale type plus free-form
// properties (limits, breaks, palette overrides).
type Scale struct {
	Aesthetic  string
	Type       ScaleType
	HasType    bool
	Palette    string
	Properties map[string]any
}
