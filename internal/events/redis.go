package events

import (
	"context"
	"fmt"

	"altenheim-avatar/internal/common/redis"
)

// RedisStreamPublisher appends events to a redis stream.
type RedisStreamPublisher struct {
	client redis.StreamAdder
	stream string
	maxLen int64
}

func NewRedisStreamPublisher(client redis.StreamAdder, stream string, maxLen int64) *RedisStreamPublisher {
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, e Event) error {
	if _, err := redis.PublishJSONToStream(ctx, p.client, p.stream, p.maxLen, e); err != nil {
		return fmt.Errorf("publish %s to stream %s: %w", e.Type, p.stream, err)
	}
	return nil
}
