package plot

// Stat is the implicit aggregation a layer applies to raw rows before
// encoding.
type Stat int

const (
	StatIdentity Stat = iota
	StatCount
	StatBin
	StatBoxplot
	StatDensity
	StatSmooth
)

func (s Stat) String() string {
	switch s {
	case StatIdentity:
		return "identity"
	case StatCount:
		return "count"
	case StatBin:
		return "bin"
	case StatBoxplot:
		return "boxplot"
	case StatDensity:
		return "density"
	case StatSmooth:
		return "smooth"
	}
	return "unknown"
}

// ComputedAesthetics lists the aesthetics this stat would compute. If the
// resolved mapping already supplies one of them, the user's value is
// authoritative and the stat degrades to identity.
func (s Stat) ComputedAesthetics() []string {
	switch s {
	case StatCount, StatBin, StatDensity:
		return []string{"y"}
	case StatBoxplot:
		return []string{"ymin", "ymax"}
	case StatIdentity, StatSmooth:
		return nil
	}
	return nil
}

// NeedsSQL reports whether the stat is computed by rewriting the relational
// query. Density and smooth are expressed as output-document transforms
// instead, uniformly for every layer.
func (s Stat) NeedsSQL() bool {
	switch s {
	case StatCount, StatBin, StatBoxplot:
		return true
	case StatIdentity, StatDensity, StatSmooth:
		return false
	}
	return false
}
