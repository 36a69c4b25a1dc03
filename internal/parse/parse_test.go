package parse

import (
	"reflect"
	"testing"
)

func TestLineFallbackPlainText(t *testing.T) {
	got := Line("plain text message")
	want := Data{"message": "plain text message"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Line = %#v, want %#v", got, want)
	}
}

func TestLineFallbackJSON(t *testing.T) {
	got := Line(` {"level":"info","count":3} `)
	if got["level"] != "info" {
		t.Errorf("level = %v", got["level"])
	}
	if got["count"] != 3.0 {
		t.Errorf("count = %v (%T)", got["count"], got["count"])
	}
}

func TestLineFallbackNonObjectJSON(t *testing.T) {
	// Arrays and scalars are valid JSON but carry no field names.
	for _, line := range []string{`["a","b"]`, `42`, `"hello"`} {
		got := Line(line)
		if got["message"] != line {
			t.Errorf("Line(%q) = %#v, want message wrap", line, got)
		}
	}
}

func TestLineTrimsWhitespace(t *testing.T) {
	got := Line("  spaced out \n")
	if got["message"] != "spaced out" {
		t.Errorf("message = %q", got["message"])
	}
}

func TestLinePriorityOrder(t *testing.T) {
	// A lifecycle line is also four tab segments away from looking like
	// structured output; the lifecycle parser must win.
	line := "START RequestId: 123e4567-e89b-12d3-a456-426614174000 Version: $LATEST"
	got := Line(line)
	if got["lambdaEvent"] != "START" {
		t.Errorf("lifecycle parser did not win: %#v", got)
	}

	// A tab-delimited line must not fall through to the JSON fallback.
	got = Line("2023-01-01T00:00:00Z\treq-1\tINFO\t{\"a\":1}")
	if got["lambdaRequestId"] != "req-1" {
		t.Errorf("tabbed parser did not win: %#v", got)
	}
}

func TestLineNeverNil(t *testing.T) {
	for _, line := range []string{"", " ", "\t\t\t", "{broken json"} {
		if got := Line(line); got == nil {
			t.Errorf("Line(%q) returned nil", line)
		}
	}
}
