// Package activitymap turns latch activity events into flat records for
// audit streams.
package activitymap

import (
	"strings"
	"time"

	latch "github.com/phoenixsite/go-latch"
)

const (
	ObjectTypeUser         = "user"
	ObjectTypeLatchAccount = "latch_account"
)

const (
	OutcomeOK      = "ok"
	OutcomeDenied  = "denied"
	OutcomeFailed  = "failed"
	OutcomeAllowed = "allowed"
)

const (
	defaultChannel = "latch"
	defaultActorID = "system"
)

// Record is the normalized form of a latch.ActivityEvent.
// Events bound to a remote account use the account as their object.
type Record struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	Outcome    string         `json:"outcome"`
	ObjectType string         `json:"object_type"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Fields returns the scalar attributes as stream entry values
func (r Record) Fields() map[string]any {
	return map[string]any{
		"verb":        r.Verb,
		"outcome":     r.Outcome,
		"actor_id":    r.ActorID,
		"object_type": r.ObjectType,
		"object_id":   r.ObjectID,
		"channel":     r.Channel,
		"occurred_at": r.OccurredAt.Format(time.RFC3339Nano),
	}
}

type Option func(*options)

type options struct {
	channel       string
	actorFallback string
	now           func() time.Time
}

// WithDefaultChannel sets the channel records are tagged with
func WithDefaultChannel(channel string) Option {
	return func(o *options) {
		if channel = strings.TrimSpace(channel); channel != "" {
			o.channel = channel
		}
	}
}

// WithActorFallback sets the actor id used when the event has no user
func WithActorFallback(actorID string) Option {
	return func(o *options) {
		if actorID = strings.TrimSpace(actorID); actorID != "" {
			o.actorFallback = actorID
		}
	}
}

// WithClock sets the time source for events without OccurredAt
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Normalize maps event to a Record. The event metadata is copied.
func Normalize(event latch.ActivityEvent, opts ...Option) Record {
	o := options{
		channel:       defaultChannel,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	rec := Record{
		ActorID:    strings.TrimSpace(event.UserID),
		Verb:       string(event.EventType),
		Outcome:    outcomeOf(event.EventType),
		ObjectType: ObjectTypeUser,
		ObjectID:   strings.TrimSpace(event.UserID),
		Channel:    o.channel,
		Metadata:   copyMetadata(event.Metadata),
		OccurredAt: event.OccurredAt,
	}

	if rec.ActorID == "" {
		rec.ActorID = o.actorFallback
	}

	if accountID := strings.TrimSpace(event.AccountID); accountID != "" {
		rec.ObjectType = ObjectTypeLatchAccount
		rec.ObjectID = accountID
	}

	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = o.now()
	}
	rec.OccurredAt = rec.OccurredAt.UTC()

	return rec
}

func outcomeOf(t latch.ActivityEventType) string {
	switch t {
	case latch.ActivityEventLatchDenied:
		return OutcomeDenied
	case latch.ActivityEventLatchUnpairFailed, latch.ActivityEventLoginFailure:
		return OutcomeFailed
	case latch.ActivityEventLatchOutageAllowed:
		return OutcomeAllowed
	}
	return OutcomeOK
}

func copyMetadata(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
