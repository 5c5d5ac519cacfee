package ticklake

// -----------------------------------------------------------------------------
// Axes
// -----------------------------------------------------------------------------

// Axis identifies an independent selection dimension. Values of different
// axes combine combinatorially during key generation.
type Axis int

// Axis constants. AxisNone marks purely literal template tokens.
const (
	AxisNone Axis = iota
	AxisDate
	AxisSymbol
	AxisFutures
)

func (a Axis) String() string {
	switch a {
	case AxisDate:
		return "date"
	case AxisSymbol:
		return "symbol"
	case AxisFutures:
		return "futures"
	default:
		return "none"
	}
}

// -----------------------------------------------------------------------------
// Placeholders
// -----------------------------------------------------------------------------

// Placeholder is a named hole in a dataset path format, resolved to
// concrete text during key generation. The set of placeholders is closed;
// path segments that match no placeholder are literal text.
type Placeholder string

// The placeholder catalog. Names appear verbatim as path segments in
// dataset path formats.
const (
	// PlaceholderDate renders a trade date as yyyymmdd.
	PlaceholderDate Placeholder = "yyyymmdd"

	// PlaceholderYear renders a trade date's four-digit year.
	PlaceholderYear Placeholder = "yyyy"

	// PlaceholderSymbolStart renders a ticker symbol's first letter.
	PlaceholderSymbolStart Placeholder = "s"

	// PlaceholderSymbol renders a full ticker symbol.
	PlaceholderSymbol Placeholder = "sss"

	// PlaceholderProduct renders a bare futures product code.
	PlaceholderProduct Placeholder = "ss"

	// PlaceholderTradingCode renders a futures trading code:
	// product code + expiration month letter + year mod 10.
	PlaceholderTradingCode Placeholder = "ssmy"
)

// placeholderAxes is the single source of truth associating each
// placeholder with the axis that owns it. Adding a placeholder is a
// one-line change here.
var placeholderAxes = map[Placeholder]Axis{
	PlaceholderDate:        AxisDate,
	PlaceholderYear:        AxisDate,
	PlaceholderSymbolStart: AxisSymbol,
	PlaceholderSymbol:      AxisSymbol,
	PlaceholderProduct:     AxisFutures,
	PlaceholderTradingCode: AxisFutures,
}

// Axis returns the axis that owns p, or AxisNone for unknown names.
func (p Placeholder) Axis() Axis {
	return placeholderAxes[p]
}

// lookupPlaceholder reports whether a path segment is a known placeholder.
// Matching is exact: "sss" is a placeholder, "ssss" is literal text.
func lookupPlaceholder(segment string) (Placeholder, bool) {
	p := Placeholder(segment)
	_, ok := placeholderAxes[p]
	return p, ok
}

// Placeholders returns the catalog for a given axis, in a stable order.
func Placeholders(a Axis) []Placeholder {
	switch a {
	case AxisDate:
		return []Placeholder{PlaceholderDate, PlaceholderYear}
	case AxisSymbol:
		return []Placeholder{PlaceholderSymbolStart, PlaceholderSymbol}
	case AxisFutures:
		return []Placeholder{PlaceholderProduct, PlaceholderTradingCode}
	default:
		return nil
	}
}
