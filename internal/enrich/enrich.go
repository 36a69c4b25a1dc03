// Package enrich turns parsed records into publishable ones: it attaches
// the reserved delivery fields and merges per-source supplemental fields.
//
// Enrichment is best-effort. Supplemental fields come from a FieldSource
// looked up once per batch; a failed lookup degrades to an empty mapping
// and never blocks delivery.
package enrich

import (
	"context"
	"time"

	"logship/internal/event"
	"logship/internal/parse"
)

// FieldSource resolves the supplemental fields for one log source. An
// unknown source yields an empty (or nil) mapping and no error.
type FieldSource interface {
	Fields(ctx context.Context, source string) (map[string]any, error)
}

// Reserved field names attached to every published record.
const (
	FieldTimestamp = "@timestamp"
	FieldID        = "cloudwatchId"
	FieldLogGroup  = "cloudwatchLogGroup"
	FieldMessage   = "message"

	// FieldOverwritten holds pre-enrichment values displaced by
	// supplemental fields.
	FieldOverwritten = "overwrittenFields"
)

// Enrich produces the publishable record for one parsed line. The input
// map is not modified.
//
// Reserved fields: "@timestamp" is promoted from a parser-supplied
// "timestamp" when one exists, else derived from the event's ingestion
// time; it is never empty. "message" falls back to the raw line when no
// parser claimed it.
//
// Supplemental fields always win a key collision, but the displaced value
// is kept under "overwrittenFields.<key>" rather than silently dropped.
func Enrich(d parse.Data, ev event.RawLogEvent, source string, fields map[string]any) parse.Data {
	out := make(parse.Data, len(d)+len(fields)+4)
	for k, v := range d {
		out[k] = v
	}

	out[FieldTimestamp] = recordTimestamp(d, ev)
	out[FieldID] = ev.ID
	out[FieldLogGroup] = source
	if _, ok := out[FieldMessage]; !ok {
		out[FieldMessage] = ev.Message
	}

	if len(fields) > 0 {
		overwritten := parse.Data{}
		for k, v := range fields {
			if old, ok := out[k]; ok {
				overwritten[k] = old
			}
			out[k] = v
		}
		if len(overwritten) > 0 {
			out[FieldOverwritten] = overwritten
		}
	}

	return out
}

// recordTimestamp picks the record's timestamp: a non-empty parser-supplied
// string verbatim, a numeric one as unix millis, otherwise the event time.
func recordTimestamp(d parse.Data, ev event.RawLogEvent) string {
	switch ts := d["timestamp"].(type) {
	case string:
		if ts != "" {
			return ts
		}
	case float64:
		return isoMillis(int64(ts))
	}
	return isoMillis(ev.Timestamp)
}

// isoMillis formats unix millis as ISO-8601 with millisecond precision.
func isoMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z")
}
