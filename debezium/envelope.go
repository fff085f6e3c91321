// Package debezium decodes Debezium-style CDC envelopes into row
// snapshots. Every failure path yields nil instead of an error: a
// malformed event is skipped, never allowed to fault the stream.
package debezium

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"
)

// Envelope is an unwrapped CDC event: at minimum an "op" code plus
// optional "before" and "after" row snapshots.
type Envelope map[string]any

// Row is a single pre- or post-change row snapshot.
type Row map[string]any

// Decode normalizes a raw message payload into an Envelope. It accepts
// raw bytes, JSON text, or an already-decoded object. Numbers keep
// their source text (json.Number) so they re-encode canonically.
//
// Depending on converter settings Debezium may wrap the event as
// {"payload": {...}}; both shapes are handled transparently.
func Decode(raw any) Envelope {
	switch m := raw.(type) {
	case nil:
		return nil
	case []byte:
		if !utf8.Valid(m) {
			return nil
		}
		return unwrap(parseObject(m))
	case string:
		return unwrap(parseObject([]byte(m)))
	case map[string]any:
		return unwrap(m)
	case Envelope:
		return unwrap(m)
	default:
		return nil
	}
}

func parseObject(data []byte) map[string]any {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil
	}
	return obj
}

func unwrap(obj map[string]any) Envelope {
	if obj == nil {
		return nil
	}
	if p, ok := obj["payload"].(map[string]any); ok {
		return Envelope(p)
	}
	return Envelope(obj)
}

// Op returns the change-operation code, or "" when absent.
func (e Envelope) Op() string {
	op, _ := e["op"].(string)
	return op
}

// Row selects the effective row snapshot: "after" when present,
// else "before". Tombstones and malformed envelopes yield nil. The
// operation code never needs inspecting; snapshot presence alone
// determines the projection for inserts, updates, and deletes.
func (e Envelope) Row() Row {
	if after, ok := e["after"].(map[string]any); ok {
		return Row(after)
	}
	if before, ok := e["before"].(map[string]any); ok {
		return Row(before)
	}
	return nil
}

// Data parses the row's "data" blob into a flat map. The blob arrives
// either as an embedded object or as a JSON-encoded string column.
// A missing, malformed, or non-object blob yields an empty map so the
// rest of the row still applies.
func (r Row) Data() map[string]any {
	switch d := r["data"].(type) {
	case map[string]any:
		return d
	case string:
		if obj := parseObject([]byte(d)); obj != nil {
			return obj
		}
		return map[string]any{}
	default:
		return map[string]any{}
	}
}
