// Package event decodes CloudWatch Logs subscription payloads into batches
// of raw log events.
//
// A payload arrives as base64 text wrapping a compressed JSON document. Any
// decode, decompress, or schema failure is fatal for the whole invocation:
// the batch is the upstream unit of delivery, so there is no partial-batch
// fallback.
package event

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// maxDecodedBytes caps decompressed payload size. CloudWatch delivers at
// most a few MB per subscription event; anything beyond this is garbage.
const maxDecodedBytes = 64 << 20 // 64 MB

// controlMessageType marks the ping CloudWatch sends when a subscription
// filter is created. Control batches decode fine and carry no log data.
const controlMessageType = "CONTROL_MESSAGE"

// zstdDec is a concurrent-safe zstd decoder.
var zstdDec *zstd.Decoder

func init() {
	var err error
	zstdDec, err = zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(0),
		zstd.WithDecoderMaxMemory(maxDecodedBytes),
	)
	if err != nil {
		panic("event: init zstd decoder: " + err.Error())
	}
}

// RawLogEvent is one physical log line as delivered by CloudWatch.
type RawLogEvent struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"` // unix millis
	Message   string `json:"message"`
}

// Batch is one decoded subscription payload. Events keep their delivery
// order. A Batch lives only for the duration of one invocation.
type Batch struct {
	MessageType string
	Owner       string
	Source      string // log group name
	Stream      string // log stream name
	Events      []RawLogEvent
}

// IsControl reports whether the batch is a subscription control ping
// rather than log data.
func (b *Batch) IsControl() bool {
	return b.MessageType == controlMessageType
}

// payload is the wire schema of a subscription event.
type payload struct {
	MessageType         string        `json:"messageType"`
	Owner               string        `json:"owner"`
	LogGroup            string        `json:"logGroup"`
	LogStream           string        `json:"logStream"`
	SubscriptionFilters []string      `json:"subscriptionFilters"`
	LogEvents           []RawLogEvent `json:"logEvents"`
}

// Decode turns the base64 payload of a subscription event into a Batch.
// The compressed stream is sniffed by magic bytes: gzip (what CloudWatch
// sends), zstd, or uncompressed JSON.
func Decode(data string) (*Batch, error) {
	compressed, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode base64 payload: %w", err)
	}

	raw, err := decompress(compressed)
	if err != nil {
		return nil, err
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse batch document: %w", err)
	}
	if p.LogGroup == "" && !isControlType(p.MessageType) {
		return nil, fmt.Errorf("batch document missing logGroup")
	}

	return &Batch{
		MessageType: p.MessageType,
		Owner:       p.Owner,
		Source:      p.LogGroup,
		Stream:      p.LogStream,
		Events:      p.LogEvents,
	}, nil
}

func isControlType(messageType string) bool {
	return messageType == controlMessageType
}

func decompress(data []byte) ([]byte, error) {
	switch {
	case len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b:
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer func() { _ = gz.Close() }()
		out, err := io.ReadAll(io.LimitReader(gz, maxDecodedBytes))
		if err != nil {
			return nil, fmt.Errorf("decompress gzip payload: %w", err)
		}
		return out, nil

	case len(data) >= 4 && data[0] == 0x28 && data[1] == 0xb5 && data[2] == 0x2f && data[3] == 0xfd:
		out, err := zstdDec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress zstd payload: %w", err)
		}
		return out, nil

	default:
		// Uncompressed JSON, mostly seen in locally saved test events.
		return data, nil
	}
}
