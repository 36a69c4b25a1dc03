// Package publish forwards structured records to a durable stream in
// ordered, size-bounded batches.
//
// Records are serialized one per stream record, grouped under the stream's
// per-submission count and byte caps, and submitted sequentially so record
// order is preserved within and across submissions. Rejected subsets are
// resubmitted with bounded doubling backoff; exhausting the retries is
// fatal for the invocation so the upstream producer can redeliver.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"logship/internal/logging"
)

// Stream is the downstream durable stream. Put submits one batch and
// returns the subset rejected by the service; a non-nil error means the
// whole submission failed.
type Stream interface {
	Put(ctx context.Context, records [][]byte) (failed [][]byte, err error)
}

// Defaults follow the Kinesis PutRecords caps.
const (
	defaultMaxRecords  = 500
	defaultMaxBytes    = 5 << 20
	defaultMaxAttempts = 5
	defaultBackoffMin  = 100 * time.Millisecond
	defaultBackoffMax  = 5 * time.Second
)

// Config holds publisher tuning. Zero values take the defaults above.
type Config struct {
	MaxRecords  int           // max records per submission
	MaxBytes    int           // max aggregate bytes per submission
	MaxAttempts int           // attempts per submission before giving up
	BackoffMin  time.Duration // first retry delay
	BackoffMax  time.Duration // delay cap
	PutsPerSec  float64       // submission pacing; 0 disables
	Logger      *slog.Logger
}

// Publisher submits record batches to a Stream.
type Publisher struct {
	stream  Stream
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Publisher. stream must not be nil.
func New(stream Stream, cfg Config) *Publisher {
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = defaultMaxRecords
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = defaultBackoffMin
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = defaultBackoffMax
	}

	p := &Publisher{
		stream: stream,
		cfg:    cfg,
		logger: logging.Default(cfg.Logger).With("component", "publisher"),
	}
	if cfg.PutsPerSec > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.PutsPerSec), 1)
	}
	return p
}

// Publish serializes records and submits them in order. Serialization
// failures are fatal: a record that cannot be encoded cannot be shipped,
// and dropping it silently would break the delivery contract.
func (p *Publisher) Publish(ctx context.Context, records []map[string]any) error {
	if len(records) == 0 {
		return nil
	}

	serialized := make([][]byte, 0, len(records))
	for i, rec := range records {
		b, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("serialize record %d: %w", i, err)
		}
		serialized = append(serialized, b)
	}

	batches := split(serialized, p.cfg.MaxRecords, p.cfg.MaxBytes)
	for _, batch := range batches {
		if err := p.submit(ctx, batch); err != nil {
			return err
		}
	}

	p.logger.Info("published records",
		"records", len(records),
		"submissions", len(batches),
	)
	return nil
}

// split groups records into batches under the count and byte caps without
// reordering. A single record over the byte cap still goes out alone;
// rejecting it is the stream's call, not ours.
func split(records [][]byte, maxRecords, maxBytes int) [][][]byte {
	var batches [][][]byte
	var batch [][]byte
	bytes := 0

	for _, rec := range records {
		if len(batch) > 0 && (len(batch) >= maxRecords || bytes+len(rec) > maxBytes) {
			batches = append(batches, batch)
			batch = nil
			bytes = 0
		}
		batch = append(batch, rec)
		bytes += len(rec)
	}
	if len(batch) > 0 {
		batches = append(batches, batch)
	}
	return batches
}

// submit sends one batch, resubmitting rejected subsets with doubling
// backoff and jitter until success or attempts run out.
func (p *Publisher) submit(ctx context.Context, batch [][]byte) error {
	var backoff time.Duration

	for attempt := 1; ; attempt++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		failed, err := p.stream.Put(ctx, batch)
		if err == nil && len(failed) == 0 {
			if attempt > 1 {
				p.logger.Info("submission recovered", "attempts", attempt)
			}
			return nil
		}
		if err != nil {
			// Whole submission failed; everything is outstanding.
			failed = batch
		}

		if attempt >= p.cfg.MaxAttempts {
			if err != nil {
				return fmt.Errorf("submit batch after %d attempts: %w", attempt, err)
			}
			return fmt.Errorf("submit batch: %d of %d records still rejected after %d attempts",
				len(failed), len(batch), attempt)
		}

		if backoff == 0 {
			backoff = p.cfg.BackoffMin
		} else {
			backoff = min(backoff*2, p.cfg.BackoffMax)
		}
		delay := backoff/2 + time.Duration(rand.Int63n(int64(backoff/2+1)))

		p.logger.Warn("submission failed, retrying",
			"rejected", len(failed),
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		batch = failed
	}
}
