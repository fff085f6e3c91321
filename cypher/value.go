package cypher

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Value is a sealed variant over the types a row property can hold:
// null, boolean, number, string, list, and document (anything
// composite). Raw JSON-decoded values are converted once at the
// boundary via FromAny, and literal rendering dispatches over the
// variant, so the boolean-before-number ordering trap of ad hoc type
// switches cannot recur.
type Value interface {
	appendLiteral(b *strings.Builder)
}

// Null renders as the NULL literal.
type Null struct{}

// Bool renders as true/false, never as 0/1.
type Bool bool

// Number holds the canonical textual form of a numeric value. JSON
// numbers keep their source text via json.Number, so they round-trip
// unchanged.
type Number string

// String renders as a single-quoted literal with backslash and
// single-quote escaped.
type String string

// List renders as a bracketed, comma-separated literal.
type List []Value

// Document wraps any composite value (typically a nested map). It is
// stored as a compact JSON string literal rather than a native map
// literal.
type Document struct{ v any }

func (Null) appendLiteral(b *strings.Builder) { b.WriteString("NULL") }

func (v Bool) appendLiteral(b *strings.Builder) {
	if v {
		b.WriteString("true")
	} else {
		b.WriteString("false")
	}
}

func (v Number) appendLiteral(b *strings.Builder) { b.WriteString(string(v)) }

func (v String) appendLiteral(b *strings.Builder) {
	b.WriteByte('\'')
	b.WriteString(escapeString(string(v)))
	b.WriteByte('\'')
}

func (v List) appendLiteral(b *strings.Builder) {
	b.WriteByte('[')
	for i, el := range v {
		if i > 0 {
			b.WriteString(", ")
		}
		el.appendLiteral(b)
	}
	b.WriteByte(']')
}

func (v Document) appendLiteral(b *strings.Builder) {
	enc, err := json.Marshal(v.v)
	if err != nil {
		// Best effort: fall back to the plain text form, still escaped.
		String(fmt.Sprint(v.v)).appendLiteral(b)
		return
	}
	String(enc).appendLiteral(b)
}

// FromAny converts a JSON-decoded (or programmatically built) value
// into the closed Value variant.
func FromAny(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null{}
	case Value:
		return x
	case bool:
		return Bool(x)
	case json.Number:
		return Number(x.String())
	case int:
		return Number(strconv.Itoa(x))
	case int32:
		return Number(strconv.FormatInt(int64(x), 10))
	case int64:
		return Number(strconv.FormatInt(x, 10))
	case float32:
		return Number(strconv.FormatFloat(float64(x), 'g', -1, 32))
	case float64:
		return Number(strconv.FormatFloat(x, 'g', -1, 64))
	case string:
		return String(x)
	case []any:
		list := make(List, len(x))
		for i, el := range x {
			list[i] = FromAny(el)
		}
		return list
	default:
		return Document{v: x}
	}
}

// Literal encodes a property value as a Cypher literal fragment. This
// is the sole injection boundary: every property value embedded into a
// statement passes through here.
func Literal(v any) string {
	var b strings.Builder
	FromAny(v).appendLiteral(&b)
	return b.String()
}

// escapeString backslash-prefixes the two characters that can break
// out of a single-quoted Cypher literal. No other characters are
// escaped.
func escapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
