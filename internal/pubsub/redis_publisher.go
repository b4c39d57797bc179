package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"mangrovewatch/internal/models"
)

// Channel names downstream consumers subscribe to.
const (
	ChannelReportSubmitted = "report-submitted"
	ChannelReportReviewed  = "report-reviewed"
)

// EventPublisher publishes report lifecycle events for out-of-process
// consumers (dashboards, escalation workers). Publishing is best-effort on
// the write path: the triggering transition commits regardless.
type EventPublisher interface {
	PublishReportSubmitted(ctx context.Context, event models.ReportSubmittedEvent) error
	PublishReportReviewed(ctx context.Context, event models.ReportReviewedEvent) error
	Close() error
}

type redisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher connects to Redis and returns a publisher over it.
func NewRedisPublisher(redisURL string) (EventPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisPublisher{client: client}, nil
}

func (p *redisPublisher) PublishReportSubmitted(ctx context.Context, event models.ReportSubmittedEvent) error {
	return p.publish(ctx, ChannelReportSubmitted, event)
}

func (p *redisPublisher) PublishReportReviewed(ctx context.Context, event models.ReportReviewedEvent) error {
	return p.publish(ctx, ChannelReportReviewed, event)
}

func (p *redisPublisher) publish(ctx context.Context, channel string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (p *redisPublisher) Close() error {
	return p.client.Close()
}

type noopPublisher struct{}

// NewNoopPublisher returns a publisher that discards events. Used when no
// Redis endpoint is configured.
func NewNoopPublisher() EventPublisher {
	return noopPublisher{}
}

func (noopPublisher) PublishReportSubmitted(ctx context.Context, event models.ReportSubmittedEvent) error {
	return nil
}

func (noopPublisher) PublishReportReviewed(ctx context.Context, event models.ReportReviewedEvent) error {
	return nil
}

func (noopPublisher) Close() error { return nil }
