package latch

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// UserProvider verifies credentials against the user store. It is the
// standard credential backend that LatchedIdentityProvider wraps.
type UserProvider struct {
	store          UserTracker
	logger         Logger
	loggerProvider LoggerProvider
	now            func() time.Time
}

// MaxLoginAttempts is the maximun number of attempts a user gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = 24 * time.Hour

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

func unknownUserHash() string {
	dummyHashOnce.Do(func() {
		dummyHash = RandomPasswordHash()
	})
	return dummyHash
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserTracker) *UserProvider {
	loggerProvider, logger := ResolveLogger("latch.user_provider", nil, nil)
	return &UserProvider{
		store:          store,
		logger:         logger,
		loggerProvider: loggerProvider,
		now:            time.Now,
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.loggerProvider, u.logger = ResolveLogger("latch.user_provider", u.loggerProvider, l)
	return u
}

// WithLoggerProvider overrides the logger provider used by the user provider.
func (u *UserProvider) WithLoggerProvider(provider LoggerProvider) *UserProvider {
	u.loggerProvider, u.logger = ResolveLogger("latch.user_provider", provider, nil)
	return u
}

// VerifyIdentity will find the user, compare to the password, and return identity
func (u *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if goerrors.IsNotFound(err) {
			_ = ComparePasswordAndHash(password, unknownUserHash())
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user == nil {
		return nil, ErrIdentityNotFound
	}

	if !user.IsActive() {
		return nil, ErrUserDisabled
	}

	if user.LoginAttemptAt != nil && u.now().Sub(*user.LoginAttemptAt) > CoolDownPeriod {
		user.LoginAttempts = 0
	}

	//if we have too many attempts in the given window, cool off!
	if user.LoginAttempts > MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if err2 := u.store.TrackAttemptedLogin(ctx, user); err2 != nil {
			return nil, goerrors.Wrap(err2, goerrors.CategoryInternal, "failed to track login attempt")
		}
		return nil, ErrMismatchedHashAndPassword
	}

	return identityFromUser(user), nil
}

// RecordSuccessfulLogin resets the attempt counter and stamps the login
// time. Verification alone does not, a decorator may still deny it.
func (u *UserProvider) RecordSuccessfulLogin(ctx context.Context, identity Identity) error {
	if identity == nil {
		return ErrIdentityNotFound
	}

	user, err := u.store.GetByIdentifier(ctx, identity.ID())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for login tracking")
	}
	if user == nil {
		return ErrIdentityNotFound
	}

	return u.store.TrackSucccessfulLogin(ctx, user)
}

func (u *UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, ErrIdentityNotFound
	}

	if !user.IsActive() {
		return nil, ErrUserDisabled
	}

	return identityFromUser(user), nil
}

func identityFromUser(user *User) authIdentity {
	return authIdentity{
		id:       user.ID.String(),
		email:    user.Email,
		username: user.Username,
		role:     string(user.Role),
	}
}

type authIdentity struct {
	id       string
	username string
	email    string
	role     string
}

func (a authIdentity) ID() string {
	return a.id
}

func (a authIdentity) Username() string {
	return a.username
}

func (a authIdentity) Email() string {
	return a.email
}

func (a authIdentity) Role() string {
	return a.role
}

var _ Identity = authIdentity{}
var _ IdentityProvider = (*UserProvider)(nil)
var _ LoginRecorder = (*UserProvider)(nil)
