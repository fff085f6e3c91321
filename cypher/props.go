package cypher

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Props is an insertion-ordered property map. Overwriting an existing
// key keeps its original position, so the emitted SET clauses are
// deterministic for a given input regardless of Go map iteration
// order.
type Props struct {
	keys []string
	vals map[string]any
}

func NewProps() *Props {
	return &Props{vals: make(map[string]any)}
}

func (p *Props) Set(key string, v any) {
	if _, ok := p.vals[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.vals[key] = v
}

// Merge overlays every entry of m onto p in sorted key order. Sorting
// substitutes for document order, which Go maps do not preserve.
func (p *Props) Merge(m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.Set(k, m[k])
	}
}

func (p *Props) Get(key string) (any, bool) {
	v, ok := p.vals[key]
	return v, ok
}

func (p *Props) Len() int { return len(p.keys) }

// setClauses renders one "SET var.key = literal" line per safe key,
// newline joined. Keys that are not plain identifiers are silently
// dropped: they can never appear as assignment targets.
func setClauses(varName string, p *Props, skip map[string]struct{}) string {
	var b strings.Builder
	for _, k := range p.keys {
		if _, skipped := skip[k]; skipped {
			continue
		}
		if !safeIdent(k) {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "SET %s.%s = %s", varName, k, Literal(p.vals[k]))
	}
	return b.String()
}

// safeIdent reports whether k can be used verbatim as a property key:
// letters, digits, and underscores only, with at least one rune that
// is not an underscore.
func safeIdent(k string) bool {
	alnum := false
	for _, r := range k {
		switch {
		case r == '_':
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			alnum = true
		default:
			return false
		}
	}
	return alnum
}

// falsy mirrors the source system's truthiness rules for required
// identity fields: nil, empty string, false, numeric zero, and empty
// collections all disqualify a row.
func falsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case json.Number:
		f, err := x.Float64()
		return err == nil && f == 0
	case int:
		return x == 0
	case int64:
		return x == 0
	case float64:
		return x == 0
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	default:
		return false
	}
}

// asText coerces an identity field to its textual form.
func asText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
