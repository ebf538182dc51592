package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scribe-safety-gate/internal/domain"
)

// RedisSink publishes audit events to a capped redis stream.
type RedisSink struct {
	redis  *redis.Client
	stream string
	maxLen int64
}

// NewRedisSink creates a redis stream sink from the audit configuration.
func NewRedisSink(config domain.AuditConfig) (*RedisSink, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSink{
		redis:  client,
		stream: config.Stream,
		maxLen: config.MaxLen,
	}, nil
}

// Publish appends the event to the stream, trimming it to the configured
// approximate length.
func (s *RedisSink) Publish(ctx context.Context, event Event) error {
	payload, err := event.marshal()
	if err != nil {
		return err
	}

	err = s.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":    string(event.Type),
			"payload": payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}

// Close closes the redis connection.
func (s *RedisSink) Close() error {
	return s.redis.Close()
}
