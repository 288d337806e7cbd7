package plot

// Geom is the visual primitive kind of a layer. The set is closed: every
// consumption site switches exhaustively over it.
type Geom int

const (
	GeomPoint Geom = iota
	GeomLine
	GeomBar
	GeomCol
	GeomArea
	GeomHistogram
	GeomBoxplot
	GeomDensity
	GeomViolin
	GeomSmooth
	GeomText
	GeomTile
)

var geomNames = map[string]Geom{
	"point":     GeomPoint,
	"line":      GeomLine,
	"bar":       GeomBar,
	"col":       GeomCol,
	"area":      GeomArea,
	"histogram": GeomHistogram,
	"boxplot":   GeomBoxplot,
	"density":   GeomDensity,
	"violin":    GeomViolin,
	"smooth":    GeomSmooth,
	"text":      GeomText,
	"tile":      GeomTile,
}

// ParseGeom maps a clause geom name to its Geom. Unknown names are rejected
// at AST-build time.
func ParseGeom(name string) (Geom, bool) {
	g, ok := geomNames[name]
	return g, ok
}

func (g Geom) String() string {
	switch g {
	case GeomPoint:
		return "point"
	case GeomLine:
		return "line"
	case GeomBar:
		return "bar"
	case GeomCol:
		return "col"
	case GeomArea:
		return "area"
	case GeomHistogram:
		return "histogram"
	case GeomBoxplot:
		return "boxplot"
	case GeomDensity:
		return "density"
	case GeomViolin:
		return "violin"
	case GeomSmooth:
		return "smooth"
	case GeomText:
		return "text"
	case GeomTile:
		return "tile"
	}
	return "unknown"
}

// RequiredAesthetics lists the aesthetics a layer of this geom must end up
// with after global+layer overlay. Stat-computed aesthetics are not listed;
// they are produced, not required.
func (g Geom) RequiredAesthetics() []string {
	switch g {
	case GeomPoint, GeomLine, GeomArea, GeomTile, GeomSmooth, GeomViolin:
		return []string{"x", "y"}
	case GeomBar, GeomCol, GeomHistogram, GeomDensity:
		return []string{"x"}
	case GeomBoxplot:
		return []string{"x", "y"}
	case GeomText:
		return []string{"x", "y", "label"}
	}
	return nil
}

// DefaultStat gives the implicit aggregation of this geom.
func (g Geom) DefaultStat() Stat {
	switch g {
	case GeomBar, GeomCol:
		return StatCount
	case GeomHistogram:
		return StatBin
	case GeomBoxplot:
		return StatBoxplot
	case GeomDensity, GeomViolin:
		return StatDensity
	case GeomSmooth:
		return StatSmooth
	case GeomPoint, GeomLine, GeomArea, GeomText, GeomTile:
		return StatIdentity
	}
	return StatIdentity
}
