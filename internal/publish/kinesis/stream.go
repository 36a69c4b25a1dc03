// Package kinesis implements the publisher's Stream over the Kinesis
// PutRecords API.
package kinesis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	awskinesis "github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/google/uuid"

	"logship/internal/logging"
)

// API is the slice of the Kinesis client the stream uses.
type API interface {
	PutRecords(ctx context.Context, params *awskinesis.PutRecordsInput, optFns ...func(*awskinesis.Options)) (*awskinesis.PutRecordsOutput, error)
}

// Stream submits record batches to one Kinesis stream.
type Stream struct {
	client API
	name   string
	logger *slog.Logger
}

// New creates a Stream writing to the named Kinesis stream.
func New(client API, name string, logger *slog.Logger) *Stream {
	return &Stream{
		client: client,
		name:   name,
		logger: logging.Default(logger).With("component", "stream", "stream", name),
	}
}

// NewClient builds a Kinesis client. When roleARN is non-empty the client
// assumes that role, which is how cross-account destination streams are
// reached.
func NewClient(cfg aws.Config, roleARN string) *awskinesis.Client {
	if roleARN != "" {
		provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), roleARN)
		cfg.Credentials = aws.NewCredentialsCache(provider)
	}
	return awskinesis.NewFromConfig(cfg)
}

// Put submits one batch. Records the service rejected individually are
// returned so the publisher can resubmit just that subset; their relative
// order is preserved.
func (s *Stream) Put(ctx context.Context, records [][]byte) ([][]byte, error) {
	entries := make([]types.PutRecordsRequestEntry, len(records))
	for i, rec := range records {
		entries[i] = types.PutRecordsRequestEntry{
			Data:         rec,
			PartitionKey: aws.String(uuid.NewString()),
		}
	}

	out, err := s.client.PutRecords(ctx, &awskinesis.PutRecordsInput{
		StreamName: aws.String(s.name),
		Records:    entries,
	})
	if err != nil {
		return nil, fmt.Errorf("put records to %s: %w", s.name, err)
	}

	if out.FailedRecordCount == nil || *out.FailedRecordCount == 0 {
		return nil, nil
	}

	failed := make([][]byte, 0, *out.FailedRecordCount)
	for i, result := range out.Records {
		if result.ErrorCode != nil {
			failed = append(failed, records[i])
		}
	}
	s.logger.Debug("partial put failure",
		"failed", len(failed),
		"total", len(records),
	)
	return failed, nil
}
