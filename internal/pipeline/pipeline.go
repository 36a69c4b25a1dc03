// Package pipeline wires the stages of one invocation together:
// decode -> parse -> enrich -> publish.
//
// One invocation handles one batch, strictly in order and without internal
// parallelism. Parsing and enrichment are pure and deterministic; only the
// supplemental-field fetch and the publisher touch the network, so
// re-running the same payload after a timeout is safe (the downstream
// tolerates duplicate delivery).
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"logship/internal/enrich"
	"logship/internal/event"
	"logship/internal/logging"
	"logship/internal/parse"
	"logship/internal/publish"
)

// Handler processes subscription payloads. Construct with New.
type Handler struct {
	fields    enrich.FieldSource // nil when enrichment is not configured
	publisher *publish.Publisher
	logger    *slog.Logger
}

// New creates a Handler. fields may be nil; publisher must not be.
func New(fields enrich.FieldSource, publisher *publish.Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		fields:    fields,
		publisher: publisher,
		logger:    logging.Default(logger).With("component", "pipeline"),
	}
}

// Handle processes one encoded payload. Decode and publish failures are
// returned so the caller reports the invocation failed and the producer
// redelivers; parse and enrichment problems degrade locally and never
// abort the batch.
func (h *Handler) Handle(ctx context.Context, data string) error {
	batch, err := event.Decode(data)
	if err != nil {
		return fmt.Errorf("decode batch: %w", err)
	}
	if batch.IsControl() {
		h.logger.Debug("skipping control message", "owner", batch.Owner)
		return nil
	}

	fields := h.supplementalFields(ctx, batch.Source)

	records := make([]map[string]any, 0, len(batch.Events))
	for _, ev := range batch.Events {
		d := parse.Line(ev.Message)
		records = append(records, enrich.Enrich(d, ev, batch.Source, fields))
	}

	h.logger.Info("processed batch",
		"source", batch.Source,
		"stream", batch.Stream,
		"events", len(batch.Events),
	)

	return h.publisher.Publish(ctx, records)
}

// supplementalFields fetches the per-source mapping once per batch.
// Lookup failures degrade to no enrichment; delivery is never blocked on
// metadata.
func (h *Handler) supplementalFields(ctx context.Context, source string) map[string]any {
	if h.fields == nil {
		return nil
	}
	fields, err := h.fields.Fields(ctx, source)
	if err != nil {
		h.logger.Warn("supplemental field lookup failed, continuing without enrichment",
			"source", source,
			"error", err,
		)
		return nil
	}
	return fields
}
