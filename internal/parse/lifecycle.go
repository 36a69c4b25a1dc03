package parse

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// requestIDLen is the length of a Lambda request ID (a UUID string).
const requestIDLen = 36

// Lifecycle lines start with one of these markers.
const (
	eventStart  = "START"
	eventEnd    = "END"
	eventReport = "REPORT"
)

// parseLifecycle recognizes Lambda runtime lifecycle lines:
//
//	START RequestId: <id> Version: <version>
//	END RequestId: <id>
//	REPORT RequestId: <id>\tDuration: 123.45 ms\tMemory Size: 128 MB\t...
//
// The raw line is always kept under "message". Extracted stats go into a
// nested "lambdaStats" map; REPORT metrics with a recognized unit (ms, MB)
// become numbers with the unit appended to the field name.
func parseLifecycle(line string) (Data, bool) {
	var event string
	switch {
	case strings.HasPrefix(line, eventStart+" RequestId: "):
		event = eventStart
	case strings.HasPrefix(line, eventEnd+" RequestId: "):
		event = eventEnd
	case strings.HasPrefix(line, eventReport+" RequestId: "):
		event = eventReport
	default:
		return nil, false
	}

	rest := line[len(event)+len(" RequestId: "):]
	id := requestID(rest)

	d := Data{
		"message":         line,
		"lambdaEvent":     event,
		"lambdaRequestId": id,
	}

	stats := Data{}
	switch event {
	case eventStart:
		if v := valueAfter(rest, "Version: "); v != "" {
			stats["lambdaVersion"] = v
		}
	case eventReport:
		reportStats(rest[len(id):], stats)
	}
	if len(stats) > 0 {
		d["lambdaStats"] = stats
	}

	return d, true
}

// requestID extracts the request identifier: the token following
// "RequestId: ", capped at the UUID length. Short IDs (seen in synthetic
// events) terminate at the next whitespace or tab instead.
func requestID(rest string) string {
	id := rest
	if i := strings.IndexAny(id, " \t\r\n"); i >= 0 {
		id = id[:i]
	}
	if len(id) > requestIDLen {
		id = id[:requestIDLen]
	}
	return id
}

// valueAfter returns the whitespace-delimited token following marker, or
// "" when the marker is absent.
func valueAfter(s, marker string) string {
	i := strings.Index(s, marker)
	if i < 0 {
		return ""
	}
	v := s[i+len(marker):]
	if j := strings.IndexAny(v, " \t\r\n"); j >= 0 {
		v = v[:j]
	}
	return v
}

// reportStats parses the tab-separated "Name: value [unit]" segments of a
// REPORT line into stats.
func reportStats(rest string, stats Data) {
	for _, seg := range strings.Split(rest, "\t") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		name, value, ok := strings.Cut(seg, ":")
		if !ok {
			continue
		}
		key := camelKey(name)
		if key == "" {
			continue
		}
		value = strings.TrimSpace(value)
		if n, unit, ok := numericWithUnit(value); ok {
			stats[key+unit] = n
		} else {
			stats[key] = value
		}
	}
}

// camelKey normalizes a field name: internal spaces removed, first rune
// lower-cased ("Memory Size" -> "memorySize").
func camelKey(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "")
	if name == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToLower(r)) + name[size:]
}

// numericWithUnit splits "123.45 ms" into (123.45, "ms", true). Only the
// units the runtime actually emits are recognized; anything else keeps its
// raw string value.
func numericWithUnit(value string) (float64, string, bool) {
	i := strings.LastIndexByte(value, ' ')
	if i < 0 {
		return 0, "", false
	}
	unit := value[i+1:]
	if unit != "ms" && unit != "MB" {
		return 0, "", false
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(value[:i]), 64)
	if err != nil {
		return 0, "", false
	}
	return n, unit, true
}
