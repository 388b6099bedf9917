package activitymap

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	latch "github.com/phoenixsite/go-latch"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	calls []*redis.XAddArgs
	err   error
}

func (f *fakeStream) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.calls = append(f.calls, a)
	return redis.NewStringResult("1-0", f.err)
}

func TestRedisStreamSinkRecord(t *testing.T) {
	stream := &fakeStream{}
	sink := NewRedisStreamSink(stream, "", 1000)

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := sink.Record(context.Background(), latch.ActivityEvent{
		EventType:  latch.ActivityEventLatchDenied,
		UserID:     "user-1",
		AccountID:  "acct-1",
		Metadata:   map[string]any{"reason": "locked"},
		OccurredAt: ts,
	})
	require.NoError(t, err)
	require.Len(t, stream.calls, 1)

	args := stream.calls[0]
	assert.Equal(t, DefaultStream, args.Stream)
	assert.Equal(t, int64(1000), args.MaxLen)
	assert.True(t, args.Approx)

	values, ok := args.Values.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, string(latch.ActivityEventLatchDenied), values["verb"])
	assert.Equal(t, OutcomeDenied, values["outcome"])
	assert.Equal(t, "user-1", values["actor_id"])
	assert.Equal(t, ObjectTypeLatchAccount, values["object_type"])
	assert.Equal(t, "acct-1", values["object_id"])

	var meta map[string]any
	require.NoError(t, json.Unmarshal([]byte(values["metadata"].(string)), &meta))
	assert.Equal(t, "locked", meta["reason"])
}

func TestRedisStreamSinkPropagatesErrors(t *testing.T) {
	stream := &fakeStream{err: errors.New("connection refused")}
	sink := NewRedisStreamSink(stream, "custom", 0)

	err := sink.Record(context.Background(), latch.ActivityEvent{EventType: latch.ActivityEventLatchPaired})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "custom")
	assert.Zero(t, stream.calls[0].MaxLen)

	_, hasMeta := stream.calls[0].Values.(map[string]any)["metadata"]
	assert.False(t, hasMeta)
}
