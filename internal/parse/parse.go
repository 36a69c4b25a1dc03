// Package parse converts raw log lines into structured records.
//
// Parsers are tried in strict priority order: Lambda runtime lifecycle
// lines, then tab-delimited structured lines, then a JSON/plain-text
// fallback. The more specific shapes go first because lifecycle and
// structured lines are syntactically valid plain text too. The fallback
// always matches, so parsing a line never fails and never aborts a batch.
package parse

import (
	"encoding/json"
	"strings"
)

// Data is one structured record. Keys are produced by parsing, not fixed
// schema: values are strings, float64 numbers, or nested Data maps.
type Data = map[string]any

// parser recognizes and converts one line shape. ok is false when the
// line does not have this parser's shape.
type parser func(line string) (d Data, ok bool)

// chain is evaluated in order; the first match wins.
var chain = []parser{
	parseLifecycle,
	parseTabbed,
	parseFallback,
}

// Line parses one raw log line. Always returns a non-nil record; an
// unrecognized or malformed line degrades to {"message": line}.
func Line(line string) Data {
	for _, p := range chain {
		if d, ok := p(line); ok {
			return d
		}
	}
	// Unreachable: parseFallback always matches.
	return Data{"message": strings.TrimSpace(line)}
}

// parseFallback parses the trimmed line as a JSON object, else wraps it
// as a plain message. Last resort; always matches.
func parseFallback(line string) (Data, bool) {
	trimmed := strings.TrimSpace(line)
	if d, ok := jsonObject(trimmed); ok {
		return d, true
	}
	return Data{"message": trimmed}, true
}

// jsonObject parses s as a JSON object. Non-object JSON (arrays, scalars)
// is rejected: field names must come from object keys.
func jsonObject(s string) (Data, bool) {
	if len(s) == 0 || s[0] != '{' {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, true
}
