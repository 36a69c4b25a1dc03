// Package s3 provides a FieldSource backed by an S3 object store. Each
// log source has one JSON object at <prefix><source>.json mapping field
// names to fixed values.
package s3

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"logship/internal/logging"
)

// maxObjectBytes caps a supplemental-field object. These are small
// hand-maintained documents; anything bigger is a misconfiguration.
const maxObjectBytes = 1 << 20 // 1 MB

// API is the slice of the S3 client the source uses.
type API interface {
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// Source looks up per-source supplemental fields in a bucket.
type Source struct {
	client API
	bucket string
	prefix string
	logger *slog.Logger
}

// New creates a Source reading from bucket under prefix.
func New(client API, bucket, prefix string, logger *slog.Logger) *Source {
	return &Source{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logging.Default(logger).With("component", "fieldsource", "bucket", bucket),
	}
}

// Fields fetches the supplemental mapping for source. A missing object is
// not an error: sources without supplemental fields are the common case.
func (s *Source) Fields(ctx context.Context, source string) (map[string]any, error) {
	key := s.key(source)

	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			s.logger.Debug("no supplemental fields for source", "source", source, "key", key)
			return nil, nil
		}
		return nil, fmt.Errorf("get supplemental fields %q: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(out.Body, maxObjectBytes))
	if err != nil {
		return nil, fmt.Errorf("read supplemental fields %q: %w", key, err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("parse supplemental fields %q: %w", key, err)
	}
	return fields, nil
}

// key maps a source name to its object key. Log group names start with a
// slash, which would otherwise produce an empty path segment.
func (s *Source) key(source string) string {
	return s.prefix + strings.TrimPrefix(source, "/") + ".json"
}
