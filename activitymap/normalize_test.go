package activitymap_test

import (
	"testing"
	"time"

	latch "github.com/phoenixsite/go-latch"
	"github.com/phoenixsite/go-latch/activitymap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAccountEvent(t *testing.T) {
	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	event := latch.ActivityEvent{
		EventType:  latch.ActivityEventLatchPaired,
		UserID:     "user-100",
		AccountID:  "acct-100",
		Metadata:   map[string]any{"ticket": "SEC-204"},
		OccurredAt: ts,
	}

	rec := activitymap.Normalize(event)

	assert.Equal(t, "user-100", rec.ActorID)
	assert.Equal(t, string(latch.ActivityEventLatchPaired), rec.Verb)
	assert.Equal(t, activitymap.OutcomeOK, rec.Outcome)
	assert.Equal(t, activitymap.ObjectTypeLatchAccount, rec.ObjectType)
	assert.Equal(t, "acct-100", rec.ObjectID)
	assert.Equal(t, "latch", rec.Channel)
	assert.True(t, rec.OccurredAt.Equal(ts))
	assert.Equal(t, time.UTC, rec.OccurredAt.Location())

	rec.Metadata["ticket"] = "changed"
	assert.Equal(t, "SEC-204", event.Metadata["ticket"], "source metadata must not be shared")
}

func TestNormalizeUserEvent(t *testing.T) {
	fixed := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	rec := activitymap.Normalize(
		latch.ActivityEvent{EventType: latch.ActivityEventLoginFailure},
		activitymap.WithDefaultChannel("security"),
		activitymap.WithActorFallback("anonymous"),
		activitymap.WithClock(func() time.Time { return fixed }),
	)

	assert.Equal(t, "anonymous", rec.ActorID)
	assert.Equal(t, activitymap.ObjectTypeUser, rec.ObjectType)
	assert.Empty(t, rec.ObjectID)
	assert.Equal(t, "security", rec.Channel)
	assert.Equal(t, activitymap.OutcomeFailed, rec.Outcome)
	assert.Equal(t, fixed, rec.OccurredAt)
	assert.Nil(t, rec.Metadata)
}

func TestNormalizeOutcomes(t *testing.T) {
	tests := map[latch.ActivityEventType]string{
		latch.ActivityEventLoginSuccess:       activitymap.OutcomeOK,
		latch.ActivityEventLatchUnpaired:      activitymap.OutcomeOK,
		latch.ActivityEventLatchDenied:        activitymap.OutcomeDenied,
		latch.ActivityEventLatchUnpairFailed:  activitymap.OutcomeFailed,
		latch.ActivityEventLatchOutageAllowed: activitymap.OutcomeAllowed,
	}

	for eventType, expected := range tests {
		rec := activitymap.Normalize(latch.ActivityEvent{EventType: eventType, UserID: "u"})
		assert.Equal(t, expected, rec.Outcome, string(eventType))
	}
}

func TestRecordFields(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fields := activitymap.Normalize(latch.ActivityEvent{
		EventType:  latch.ActivityEventLatchDenied,
		UserID:     "user-1",
		OccurredAt: ts,
	}).Fields()

	require.Len(t, fields, 7)
	assert.Equal(t, "user-1", fields["object_id"])
	assert.Equal(t, activitymap.OutcomeDenied, fields["outcome"])
	assert.Equal(t, "2026-03-01T12:00:00Z", fields["occurred_at"])
}
