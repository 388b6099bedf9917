package activitymap

import (
	"context"
	"encoding/json"
	"fmt"

	latch "github.com/phoenixsite/go-latch"
	"github.com/redis/go-redis/v9"
)

// DefaultStream is the redis stream activity events are appended to
const DefaultStream = "latch:activity"

// StreamWriter is the part of the redis client the sink uses
type StreamWriter interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamSink appends normalized activity events to a redis stream.
// It implements latch.ActivitySink.
type RedisStreamSink struct {
	writer StreamWriter
	stream string
	maxLen int64
	opts   []Option
}

var _ latch.ActivitySink = (*RedisStreamSink)(nil)

// NewRedisStreamSink writes to stream, trimming it to roughly maxLen
// entries when maxLen is positive.
func NewRedisStreamSink(writer StreamWriter, stream string, maxLen int64, opts ...Option) *RedisStreamSink {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamSink{
		writer: writer,
		stream: stream,
		maxLen: maxLen,
		opts:   opts,
	}
}

// NewRedisClient parses a redis:// URL and verifies the server answers
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// Record implements latch.ActivitySink.
func (s *RedisStreamSink) Record(ctx context.Context, event latch.ActivityEvent) error {
	rec := Normalize(event, s.opts...)

	values := rec.Fields()
	if len(rec.Metadata) > 0 {
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("encode activity metadata: %w", err)
		}
		values["metadata"] = string(meta)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: values,
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.writer.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("append activity to %s: %w", s.stream, err)
	}

	return nil
}
