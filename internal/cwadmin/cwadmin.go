// Package cwadmin wraps the CloudWatch Logs administration calls the
// shipper depends on: retention policies on log groups and the
// subscription filters that feed batches into the pipeline.
//
// These are thin, idempotent API wrappers with no state of their own.
package cwadmin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"

	"logship/internal/logging"
)

// API is the slice of the CloudWatch Logs client the wrappers use.
type API interface {
	PutRetentionPolicy(ctx context.Context, params *cloudwatchlogs.PutRetentionPolicyInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error)
	DeleteRetentionPolicy(ctx context.Context, params *cloudwatchlogs.DeleteRetentionPolicyInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DeleteRetentionPolicyOutput, error)
	PutSubscriptionFilter(ctx context.Context, params *cloudwatchlogs.PutSubscriptionFilterInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutSubscriptionFilterOutput, error)
	DeleteSubscriptionFilter(ctx context.Context, params *cloudwatchlogs.DeleteSubscriptionFilterInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DeleteSubscriptionFilterOutput, error)
}

// Client administers log groups.
type Client struct {
	api    API
	logger *slog.Logger
}

// New creates a Client.
func New(api API, logger *slog.Logger) *Client {
	return &Client{
		api:    api,
		logger: logging.Default(logger).With("component", "cwadmin"),
	}
}

// SetRetention sets the retention period of a log group in days.
func (c *Client) SetRetention(ctx context.Context, group string, days int32) error {
	_, err := c.api.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    aws.String(group),
		RetentionInDays: aws.Int32(days),
	})
	if err != nil {
		return fmt.Errorf("set retention on %s: %w", group, err)
	}
	c.logger.Info("retention set", "group", group, "days", days)
	return nil
}

// ClearRetention removes the retention policy, keeping logs forever.
func (c *Client) ClearRetention(ctx context.Context, group string) error {
	_, err := c.api.DeleteRetentionPolicy(ctx, &cloudwatchlogs.DeleteRetentionPolicyInput{
		LogGroupName: aws.String(group),
	})
	if err != nil {
		return fmt.Errorf("clear retention on %s: %w", group, err)
	}
	c.logger.Info("retention cleared", "group", group)
	return nil
}

// Subscribe creates or replaces the subscription filter that delivers a
// log group's events to the pipeline's destination. pattern may be empty
// to forward everything; roleARN grants CloudWatch permission to write to
// the destination.
func (c *Client) Subscribe(ctx context.Context, group, filterName, pattern, destinationARN, roleARN string) error {
	in := &cloudwatchlogs.PutSubscriptionFilterInput{
		LogGroupName:   aws.String(group),
		FilterName:     aws.String(filterName),
		FilterPattern:  aws.String(pattern),
		DestinationArn: aws.String(destinationARN),
	}
	if roleARN != "" {
		in.RoleArn = aws.String(roleARN)
	}
	if _, err := c.api.PutSubscriptionFilter(ctx, in); err != nil {
		return fmt.Errorf("subscribe %s: %w", group, err)
	}
	c.logger.Info("subscribed", "group", group, "filter", filterName, "destination", destinationARN)
	return nil
}

// Unsubscribe removes a subscription filter from a log group.
func (c *Client) Unsubscribe(ctx context.Context, group, filterName string) error {
	_, err := c.api.DeleteSubscriptionFilter(ctx, &cloudwatchlogs.DeleteSubscriptionFilterInput{
		LogGroupName: aws.String(group),
		FilterName:   aws.String(filterName),
	})
	if err != nil {
		return fmt.Errorf("unsubscribe %s: %w", group, err)
	}
	c.logger.Info("unsubscribed", "group", group, "filter", filterName)
	return nil
}
