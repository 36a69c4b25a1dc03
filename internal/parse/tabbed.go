package parse

import (
	"strings"
	"time"
)

// tabbedLayouts are the timestamp shapes accepted for the first segment of
// a tab-delimited line. Runtime-formatted logs use RFC 3339 with or
// without fractional seconds.
var tabbedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseTabbed recognizes runtime-formatted log lines:
//
//	<timestamp>\t<requestId>\t<level>\t<message...>
//
// The message portion is parsed as a JSON object when possible, else kept
// as a plain message; either way the request ID and level from the framing
// segments win over same-named message fields.
func parseTabbed(line string) (Data, bool) {
	parts := strings.Split(line, "\t")
	if len(parts) < 4 {
		return nil, false
	}
	if !isTimestamp(parts[0]) {
		return nil, false
	}

	msg := strings.TrimSpace(strings.Join(parts[3:], "\t"))
	d, ok := jsonObject(msg)
	if !ok {
		d = Data{"message": msg}
	}
	d["lambdaRequestId"] = parts[1]
	d["level"] = parts[2]
	return d, true
}

func isTimestamp(s string) bool {
	for _, layout := range tabbedLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
