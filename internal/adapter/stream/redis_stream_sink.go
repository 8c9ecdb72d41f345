package stream

import (
	"context"
	"time"

	"github.com/aq2208/gorder-bridge/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisStreamSink appends each message to a Redis stream named <prefix><routing key>.
type RedisStreamSink struct {
	rdb    *redis.Client
	prefix string
	maxLen int64
}

// NewRedisStreamSink trims streams to roughly maxLen entries; maxLen <= 0 disables trimming.
func NewRedisStreamSink(rdb *redis.Client, prefix string, maxLen int64) *RedisStreamSink {
	return &RedisStreamSink{rdb: rdb, prefix: prefix, maxLen: maxLen}
}

func (s *RedisStreamSink) Forward(ctx context.Context, env usecase.Envelope) error {
	args := &redis.XAddArgs{
		Stream: s.StreamFor(env.RoutingKey),
		Values: map[string]any{
			"id":           env.ID,
			"routing_key":  env.RoutingKey,
			"content_type": env.ContentType,
			"body":         env.Body,
			"redelivered":  env.Redelivered,
			"received_at":  env.ReceivedAt.UTC().Format(time.RFC3339Nano),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	return s.rdb.XAdd(ctx, args).Err()
}

func (s *RedisStreamSink) StreamFor(routingKey string) string { return s.prefix + routingKey }

var _ usecase.Sink = (*RedisStreamSink)(nil)
