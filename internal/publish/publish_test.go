package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// fakeStream records submissions and can reject per call.
type fakeStream struct {
	puts    [][][]byte
	rejects []func(batch [][]byte) ([][]byte, error) // one per call, nil = accept all
}

func (f *fakeStream) Put(_ context.Context, records [][]byte) ([][]byte, error) {
	f.puts = append(f.puts, records)
	call := len(f.puts) - 1
	if call < len(f.rejects) && f.rejects[call] != nil {
		return f.rejects[call](records)
	}
	return nil, nil
}

func fastConfig() Config {
	return Config{
		MaxAttempts: 3,
		BackoffMin:  time.Millisecond,
		BackoffMax:  2 * time.Millisecond,
	}
}

func numbered(n int) []map[string]any {
	records := make([]map[string]any, n)
	for i := range records {
		records[i] = map[string]any{"seq": fmt.Sprintf("%04d", i)}
	}
	return records
}

func TestPublishSplitsByCount(t *testing.T) {
	stream := &fakeStream{}
	cfg := fastConfig()
	cfg.MaxRecords = 10
	p := New(stream, cfg)

	if err := p.Publish(context.Background(), numbered(25)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(stream.puts) != 3 {
		t.Fatalf("got %d submissions, want 3", len(stream.puts))
	}
	sizes := []int{len(stream.puts[0]), len(stream.puts[1]), len(stream.puts[2])}
	if sizes[0] != 10 || sizes[1] != 10 || sizes[2] != 5 {
		t.Errorf("submission sizes = %v", sizes)
	}
}

func TestPublishPreservesOrder(t *testing.T) {
	stream := &fakeStream{}
	cfg := fastConfig()
	cfg.MaxRecords = 7
	p := New(stream, cfg)

	records := numbered(20)
	if err := p.Publish(context.Background(), records); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// Concatenation of all submissions equals the serialized input order.
	var got [][]byte
	for _, batch := range stream.puts {
		got = append(got, batch...)
	}
	if len(got) != len(records) {
		t.Fatalf("got %d records, want %d", len(got), len(records))
	}
	for i, rec := range records {
		want, _ := json.Marshal(rec)
		if !bytes.Equal(got[i], want) {
			t.Fatalf("record %d = %s, want %s", i, got[i], want)
		}
	}
}

func TestPublishSplitsByBytes(t *testing.T) {
	stream := &fakeStream{}
	cfg := fastConfig()
	cfg.MaxBytes = 64
	p := New(stream, cfg)

	records := []map[string]any{
		{"message": strings.Repeat("a", 40)},
		{"message": strings.Repeat("b", 40)},
		{"message": "short"},
	}
	if err := p.Publish(context.Background(), records); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(stream.puts) < 2 {
		t.Errorf("expected byte cap to force multiple submissions, got %d", len(stream.puts))
	}
}

func TestPublishOversizeRecordGoesAlone(t *testing.T) {
	stream := &fakeStream{}
	cfg := fastConfig()
	cfg.MaxBytes = 16
	p := New(stream, cfg)

	records := []map[string]any{{"message": strings.Repeat("x", 100)}}
	if err := p.Publish(context.Background(), records); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(stream.puts) != 1 || len(stream.puts[0]) != 1 {
		t.Errorf("oversize record should still be submitted: %d puts", len(stream.puts))
	}
}

func TestPublishRetriesRejectedSubset(t *testing.T) {
	stream := &fakeStream{
		rejects: []func([][]byte) ([][]byte, error){
			// First call rejects the last two records.
			func(batch [][]byte) ([][]byte, error) { return batch[len(batch)-2:], nil },
		},
	}
	p := New(stream, fastConfig())

	if err := p.Publish(context.Background(), numbered(5)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(stream.puts) != 2 {
		t.Fatalf("got %d submissions, want 2", len(stream.puts))
	}
	if len(stream.puts[1]) != 2 {
		t.Errorf("retry batch size = %d, want 2", len(stream.puts[1]))
	}
	if !bytes.Equal(stream.puts[1][0], stream.puts[0][3]) {
		t.Error("retried subset does not match rejected records")
	}
}

func TestPublishExhaustsRetries(t *testing.T) {
	rejectAll := func(batch [][]byte) ([][]byte, error) { return batch, nil }
	stream := &fakeStream{
		rejects: []func([][]byte) ([][]byte, error){rejectAll, rejectAll, rejectAll},
	}
	p := New(stream, fastConfig())

	err := p.Publish(context.Background(), numbered(3))
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if len(stream.puts) != 3 {
		t.Errorf("got %d attempts, want 3", len(stream.puts))
	}
}

func TestPublishSubmissionError(t *testing.T) {
	fail := func(batch [][]byte) ([][]byte, error) { return nil, errors.New("throttled") }
	stream := &fakeStream{
		rejects: []func([][]byte) ([][]byte, error){fail, nil},
	}
	p := New(stream, fastConfig())

	// A whole-call error retries the full batch.
	if err := p.Publish(context.Background(), numbered(4)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(stream.puts) != 2 || len(stream.puts[1]) != 4 {
		t.Errorf("expected full-batch retry, puts = %d", len(stream.puts))
	}
}

func TestPublishEmptyInput(t *testing.T) {
	stream := &fakeStream{}
	p := New(stream, fastConfig())

	if err := p.Publish(context.Background(), nil); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(stream.puts) != 0 {
		t.Errorf("empty input should not submit, got %d puts", len(stream.puts))
	}
}

func TestPublishSerializationNewlineFree(t *testing.T) {
	stream := &fakeStream{}
	p := New(stream, fastConfig())

	records := []map[string]any{{"message": "line one\nline two", "nested": map[string]any{"a": 1.0}}}
	if err := p.Publish(context.Background(), records); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if bytes.ContainsRune(stream.puts[0][0], '\n') {
		t.Errorf("serialized record contains a newline: %q", stream.puts[0][0])
	}
}

func TestPublishContextCancelledDuringBackoff(t *testing.T) {
	rejectAll := func(batch [][]byte) ([][]byte, error) { return batch, nil }
	stream := &fakeStream{
		rejects: []func([][]byte) ([][]byte, error){rejectAll, rejectAll, rejectAll},
	}
	cfg := fastConfig()
	cfg.BackoffMin = time.Minute
	cfg.BackoffMax = time.Minute
	p := New(stream, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := p.Publish(ctx, numbered(1))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
