package ticklake

import "strings"

// Path formats use "/" as the directory separator and "." as the
// extension separator. Placeholders appear verbatim between separators.
const (
	prefixSeparator = '/'
	nameSeparator   = '.'
)

// -----------------------------------------------------------------------------
// Tokens
// -----------------------------------------------------------------------------

// tokenPart is one literal run or one placeholder within a token.
type tokenPart struct {
	text        string
	placeholder Placeholder
	isHole      bool
}

// Token is an ordered run of a path format whose placeholders all belong
// to one axis. Literal text (including separators) attaches to the token
// it follows. Tokens concatenate in order to rebuild the full key.
type Token struct {
	parts []tokenPart
	axis  Axis
}

// Axis returns the axis the token's placeholders belong to, or AxisNone
// for purely literal tokens.
func (t *Token) Axis() Axis { return t.axis }

// Placeholders returns the distinct placeholders the token contains, in
// order of first appearance.
func (t *Token) Placeholders() []Placeholder {
	var phs []Placeholder
	seen := make(map[Placeholder]bool)
	for _, p := range t.parts {
		if p.isHole && !seen[p.placeholder] {
			seen[p.placeholder] = true
			phs = append(phs, p.placeholder)
		}
	}
	return phs
}

// String renders the token with placeholders in braces, for logs and
// error messages (e.g. "{s}/{sss}.csv.gz").
func (t *Token) String() string {
	var b strings.Builder
	for _, p := range t.parts {
		if p.isHole {
			b.WriteByte('{')
			b.WriteString(p.text)
			b.WriteByte('}')
		} else {
			b.WriteString(p.text)
		}
	}
	return b.String()
}

// render substitutes fill values for the token's placeholders and returns
// the concatenated text. Every placeholder in the token must be present
// in fills.
func (t *Token) render(fills map[Placeholder]string) (string, error) {
	var b strings.Builder
	for _, p := range t.parts {
		if !p.isHole {
			b.WriteString(p.text)
			continue
		}
		v, ok := fills[p.placeholder]
		if !ok {
			return "", &PlaceholderError{Placeholder: p.placeholder, Axis: t.axis}
		}
		b.WriteString(v)
	}
	return b.String(), nil
}

// -----------------------------------------------------------------------------
// Tokenizer
// -----------------------------------------------------------------------------

// splitPathFormat splits a path format on the directory and extension
// separators, preserving the separators as their own parts:
//
//	"yyyymmdd/s/sss.csv.gz" -> ["yyyymmdd" "/" "s" "/" "sss" "." "csv" "." "gz"]
func splitPathFormat(format string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != prefixSeparator && c != nameSeparator {
			continue
		}
		if i > start {
			parts = append(parts, format[start:i])
		}
		parts = append(parts, string(c))
		start = i + 1
	}
	if start < len(format) {
		parts = append(parts, format[start:])
	}
	return parts
}

// TokenizePathFormat splits a path format into ordered tokens, each
// holding the placeholders of exactly one axis.
//
// A part is a placeholder iff it exactly matches a catalog name; anything
// else, including unrecognized names, is literal text. Literal parts merge
// into the open token. A placeholder merges while its axis agrees with the
// open token's axis (or the token has none yet) and starts a new token
// otherwise. A format with no placeholders yields a single literal token.
func TokenizePathFormat(format string) []Token {
	var tokens []Token
	cur := &Token{}
	for _, part := range splitPathFormat(format) {
		ph, ok := lookupPlaceholder(part)
		if !ok {
			cur.parts = append(cur.parts, tokenPart{text: part})
			continue
		}
		axis := ph.Axis()
		if cur.axis != AxisNone && cur.axis != axis {
			tokens = append(tokens, *cur)
			cur = &Token{}
		}
		cur.axis = axis
		cur.parts = append(cur.parts, tokenPart{text: part, placeholder: ph, isHole: true})
	}
	if len(cur.parts) > 0 || len(tokens) == 0 {
		tokens = append(tokens, *cur)
	}
	return tokens
}
