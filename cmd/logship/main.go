// Command logship ships CloudWatch Logs batches to a Kinesis stream.
//
// Logging:
//   - Base logger is created here with output format and level
//   - Logger is passed to all components via dependency injection
//   - No global slog configuration (no slog.SetDefault)
//   - Components scope loggers with their own attributes
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"logship/internal/logging"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "logship",
		Short:   "Ship CloudWatch Logs batches to a Kinesis stream",
		Version: version,
		Long: "logship decodes CloudWatch Logs subscription payloads, parses each " +
			"line into a structured record, enriches records with per-source " +
			"fields from S3, and forwards them in ordered batches to Kinesis.",
	}

	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "text", "log format: text or json")

	root.AddCommand(
		newForwardCmd(),
		newRetentionCmd(),
		newSubscribeCmd(),
		newUnsubscribeCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loggerFromCmd builds the base logger from the persistent flags on cmd.
func loggerFromCmd(cmd *cobra.Command) *slog.Logger {
	levelName, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")

	var level slog.Level
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return logging.New(os.Stderr, format, level)
}
