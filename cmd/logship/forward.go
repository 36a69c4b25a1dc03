package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"logship/internal/config"
	"logship/internal/enrich"
	s3source "logship/internal/enrich/s3"
	"logship/internal/pipeline"
	"logship/internal/publish"
	kstream "logship/internal/publish/kinesis"
)

func newForwardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forward [event-file]",
		Short: "Run the log-forwarding pipeline",
		Long: "Inside a function runtime (AWS_LAMBDA_RUNTIME_API set) this serves " +
			"invocations until terminated. Otherwise it processes one saved " +
			"subscription event from a file, or stdin when the argument is \"-\".",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromCmd(cmd)
			ctx := cmd.Context()

			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			awscfg, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return fmt.Errorf("load AWS config: %w", err)
			}

			handler := buildHandler(cfg, awscfg, logger)

			if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
				lambda.StartWithOptions(func(ctx context.Context, ev events.CloudwatchLogsEvent) error {
					return handler.Handle(ctx, ev.AWSLogs.Data)
				}, lambda.WithContext(ctx))
				return nil
			}

			data, err := readLocalEvent(args)
			if err != nil {
				return err
			}
			return handler.Handle(ctx, data)
		},
	}
}

// buildHandler constructs the pipeline for one process lifetime. Clients
// are created here and injected; nothing holds global state.
func buildHandler(cfg *config.Config, awscfg aws.Config, logger *slog.Logger) *pipeline.Handler {
	var fields enrich.FieldSource
	if cfg.MetadataBucket != "" {
		fields = s3source.New(awss3.NewFromConfig(awscfg), cfg.MetadataBucket, cfg.MetadataPrefix, logger)
	}

	stream := kstream.New(kstream.NewClient(awscfg, cfg.RoleARN), cfg.StreamName, logger)
	publisher := publish.New(stream, publish.Config{
		MaxRecords:  cfg.MaxRecordsPerPut,
		MaxBytes:    cfg.MaxBytesPerPut,
		MaxAttempts: cfg.MaxAttempts,
		PutsPerSec:  cfg.PutsPerSec,
		Logger:      logger,
	})

	return pipeline.New(fields, publisher, logger)
}

// readLocalEvent loads a saved subscription event and extracts its payload.
func readLocalEvent(args []string) (string, error) {
	var raw []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("read event: %w", err)
	}

	var ev events.CloudwatchLogsEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return "", fmt.Errorf("parse event: %w", err)
	}
	if ev.AWSLogs.Data == "" {
		return "", fmt.Errorf("event carries no awslogs data")
	}
	return ev.AWSLogs.Data, nil
}
