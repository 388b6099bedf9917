package latch

import (
	"context"

	"github.com/phoenixsite/go-latch/client"
)

// Logger is the structured logger used across the package. Arguments
// are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LoggerProvider hands out named loggers
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Username() string
	Email() string
	Role() string
}

// IdentityProvider is a credential verification backend
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// LoginRecorder is implemented by providers that keep login state.
// It is called once the whole chain has admitted the identity.
type LoginRecorder interface {
	RecordSuccessfulLogin(ctx context.Context, identity Identity) error
}

// LatchCapable marks identity providers that gate logins on the
// remote latch status.
type LatchCapable interface {
	IdentityProvider
	LatchEnabled() bool
}

// PairingRecords persists the binding between a local user and a
// remote latch account.
type PairingRecords interface {
	// FindByUserID returns ErrPairingNotFound when the user is not paired.
	FindByUserID(ctx context.Context, userID string) (*PairingRecord, error)
	ExistsForUser(ctx context.Context, userID string) (bool, error)
	Create(ctx context.Context, record *PairingRecord) (*PairingRecord, error)
	Delete(ctx context.Context, record *PairingRecord) error
}

// UserTracker is the user store the credential backend depends on
type UserTracker interface {
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSucccessfulLogin(ctx context.Context, user *User) error
}

// LatchClient is the subset of the remote latch API the workflows use.
type LatchClient = client.Client
