package main

import (
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/spf13/cobra"

	"logship/internal/cwadmin"
)

// adminClient builds the CloudWatch Logs admin wrapper for a command.
func adminClient(cmd *cobra.Command) (*cwadmin.Client, error) {
	awscfg, err := awsconfig.LoadDefaultConfig(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return cwadmin.New(cloudwatchlogs.NewFromConfig(awscfg), loggerFromCmd(cmd)), nil
}

func newRetentionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retention <log-group>",
		Short: "Set or clear a log group's retention period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt32("days")
			client, err := adminClient(cmd)
			if err != nil {
				return err
			}
			if days <= 0 {
				return client.ClearRetention(cmd.Context(), args[0])
			}
			return client.SetRetention(cmd.Context(), args[0], days)
		},
	}
	cmd.Flags().Int32("days", 0, "retention in days (0 clears the policy)")
	return cmd
}

func newSubscribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribe <log-group>",
		Short: "Subscribe a log group to the pipeline's destination",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			destination, _ := cmd.Flags().GetString("destination")
			filterName, _ := cmd.Flags().GetString("filter-name")
			pattern, _ := cmd.Flags().GetString("pattern")
			role, _ := cmd.Flags().GetString("role")

			client, err := adminClient(cmd)
			if err != nil {
				return err
			}
			return client.Subscribe(cmd.Context(), args[0], filterName, pattern, destination, role)
		},
	}
	cmd.Flags().String("destination", "", "destination ARN receiving the log events")
	cmd.Flags().String("filter-name", "logship", "subscription filter name")
	cmd.Flags().String("pattern", "", "filter pattern (empty forwards everything)")
	cmd.Flags().String("role", "", "IAM role ARN CloudWatch uses to write to the destination")
	_ = cmd.MarkFlagRequired("destination")
	return cmd
}

func newUnsubscribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unsubscribe <log-group>",
		Short: "Remove a log group's subscription filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filterName, _ := cmd.Flags().GetString("filter-name")
			client, err := adminClient(cmd)
			if err != nil {
				return err
			}
			return client.Unsubscribe(cmd.Context(), args[0], filterName)
		},
	}
	cmd.Flags().String("filter-name", "logship", "subscription filter name")
	return cmd
}
