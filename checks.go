package latch

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-router"
	"github.com/phoenixsite/go-latch/client"
)

const (
	CheckDatabase          = "latch.E101"
	CheckIdentityProvider  = "latch.E102"
	CheckSessionMiddleware = "latch.E103"
	CheckLatchCapable      = "latch.E104"
	CheckAppID             = "latch.E105"
	CheckSecretKey         = "latch.E106"
	CheckHTTPBackend       = "latch.E107"
)

// Pinger is satisfied by *sql.DB and *bun.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// CheckTarget is the host wiring inspected at startup
type CheckTarget struct {
	DB                Pinger
	Providers         []IdentityProvider
	SessionMiddleware router.MiddlewareFunc
	AppID             string
	SecretKey         string
	Backend           string
}

// CheckMessage is one startup diagnostic
type CheckMessage struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

func (m CheckMessage) String() string {
	if m.Hint == "" {
		return fmt.Sprintf("%s: %s", m.ID, m.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", m.ID, m.Message, m.Hint)
}

// CheckMessages is the full set of failed checks
type CheckMessages []CheckMessage

func (m CheckMessages) Error() string {
	out := make([]string, 0, len(m))
	for _, msg := range m {
		out = append(out, msg.String())
	}
	return strings.Join(out, "; ")
}

// Err returns nil when no check failed
func (m CheckMessages) Err() error {
	if len(m) == 0 {
		return nil
	}
	return m
}

// Has reports whether a check with the given id failed
func (m CheckMessages) Has(id string) bool {
	for _, msg := range m {
		if msg.ID == id {
			return true
		}
	}
	return false
}

// RunChecks inspects the host wiring and settings. Every failing check
// is reported.
func RunChecks(target CheckTarget) CheckMessages {
	var messages CheckMessages

	if target.DB == nil {
		messages = append(messages, CheckMessage{
			ID:      CheckDatabase,
			Message: "a database handle must be configured in order to store latch pairings.",
		})
	}

	if len(target.Providers) == 0 {
		messages = append(messages, CheckMessage{
			ID:      CheckIdentityProvider,
			Message: "an identity provider must be configured in order to authenticate users.",
		})
	}

	if target.SessionMiddleware == nil {
		messages = append(messages, CheckMessage{
			ID:      CheckSessionMiddleware,
			Message: "the session middleware must be installed in order to use the latch views.",
			Hint:    "wrap the router with latch.NewSessionMiddleware",
		})
	}

	if len(target.Providers) > 0 && !hasLatchCapable(target.Providers) {
		messages = append(messages, CheckMessage{
			ID:      CheckLatchCapable,
			Message: "one identity provider in the login chain must be latch capable.",
			Hint:    "wrap the credential backend with latch.NewLatchedIdentityProvider",
		})
	}

	if strings.TrimSpace(target.AppID) == "" {
		messages = append(messages, CheckMessage{
			ID:      CheckAppID,
			Message: "'LATCH_APP_ID' must be set in order to use latch.",
		})
	}

	if strings.TrimSpace(target.SecretKey) == "" {
		messages = append(messages, CheckMessage{
			ID:      CheckSecretKey,
			Message: "'LATCH_SECRET_KEY' must be set in order to use latch.",
		})
	}

	backend := target.Backend
	if backend == "" {
		backend = client.DefaultBackend
	}
	if !client.HasBackend(backend) {
		messages = append(messages, CheckMessage{
			ID:      CheckHTTPBackend,
			Message: client.UnknownBackendError(backend).Error(),
		})
	}

	return messages
}

func hasLatchCapable(providers []IdentityProvider) bool {
	for _, p := range providers {
		if capable, ok := p.(LatchCapable); ok && capable.LatchEnabled() {
			return true
		}
	}
	return false
}
