package latch

import (
	"context"
	"reflect"
)

// Auther runs the login chain: credential verification through the
// identity provider, then session token issuance.
type Auther struct {
	provider       IdentityProvider
	tokens         *TokenService
	logger         Logger
	loggerProvider LoggerProvider
	activitySink   ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, tokens *TokenService) *Auther {
	loggerProvider, logger := ResolveLogger("latch.auth", nil, nil)
	return &Auther{
		provider:       provider,
		tokens:         tokens,
		logger:         logger,
		loggerProvider: loggerProvider,
		activitySink:   noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.loggerProvider, s.logger = ResolveLogger("latch.auth", s.loggerProvider, logger)
	return s
}

// WithLoggerProvider overrides the logger provider used by the authenticator.
func (s *Auther) WithLoggerProvider(provider LoggerProvider) *Auther {
	s.loggerProvider, s.logger = ResolveLogger("latch.auth", provider, nil)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// Provider returns the identity provider in the login chain
func (s *Auther) Provider() IdentityProvider {
	return s.provider
}

// TokenService returns the TokenService used to sign sessions
func (s *Auther) TokenService() *TokenService {
	return s.tokens
}

// Login verifies the credentials and returns a signed session token
func (s *Auther) Login(ctx context.Context, identifier, password string) (string, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		recordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Metadata: map[string]any{
				"identifier": identifier,
				"error":      err.Error(),
			},
		})
		return "", err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		return "", ErrIdentityNotFound
	}

	token, err := s.tokens.Generate(identity)
	if err != nil {
		s.logger.Error("Login failed to sign session", "error", err)
		return "", err
	}

	if recorder, ok := s.provider.(LoginRecorder); ok {
		if err := recorder.RecordSuccessfulLogin(ctx, identity); err != nil {
			s.logger.Error("Login failed to track successful login", "error", err)
		}
	}

	recordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    identity.ID(),
		Metadata:  map[string]any{"identifier": identifier},
	})

	return token, nil
}

// SessionFromToken validates a session token
func (s *Auther) SessionFromToken(token string) (*SessionClaims, error) {
	return s.tokens.Validate(token)
}
