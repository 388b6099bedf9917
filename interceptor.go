package latch

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/phoenixsite/go-latch/client"
)

var errNoLatchClient = fmt.Errorf("latch client is not configured")

// OutagePolicy decides logins when the latch status can not be determined
type OutagePolicy string

const (
	OutageDeny  OutagePolicy = "deny"
	OutageAllow OutagePolicy = "allow"
)

// ParseOutagePolicy maps a setting value to a policy. Empty means deny.
func ParseOutagePolicy(value string) (OutagePolicy, error) {
	switch OutagePolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", OutageDeny:
		return OutageDeny, nil
	case OutageAllow:
		return OutageAllow, nil
	}
	return OutageDeny, fmt.Errorf("unknown latch outage policy %q, expected 'deny' or 'allow'", value)
}

// LatchedIdentityProvider wraps a credential backend and gates its
// successful logins on the remote latch status of paired users.
type LatchedIdentityProvider struct {
	inner          IdentityProvider
	client         LatchClient
	records        PairingRecords
	outagePolicy   OutagePolicy
	metrics        Metrics
	logger         Logger
	loggerProvider LoggerProvider
	activitySink   ActivitySink
	dummyID        func() (string, error)
}

// NewLatchedIdentityProvider decorates inner with the latch check
func NewLatchedIdentityProvider(inner IdentityProvider, latchClient LatchClient, records PairingRecords) *LatchedIdentityProvider {
	loggerProvider, logger := ResolveLogger("latch.interceptor", nil, nil)
	return &LatchedIdentityProvider{
		inner:          inner,
		client:         latchClient,
		records:        records,
		outagePolicy:   OutageDeny,
		metrics:        noopMetrics{},
		logger:         logger,
		loggerProvider: loggerProvider,
		activitySink:   noopActivitySink{},
		dummyID: func() (string, error) {
			return randomAccountID(DummyAccountIDLength)
		},
	}
}

// WithClient replaces the latch client. Until one is set every status
// lookup is treated as an outage.
func (p *LatchedIdentityProvider) WithClient(latchClient LatchClient) *LatchedIdentityProvider {
	p.client = latchClient
	return p
}

func (p *LatchedIdentityProvider) WithOutagePolicy(policy OutagePolicy) *LatchedIdentityProvider {
	if policy == "" {
		policy = OutageDeny
	}
	p.outagePolicy = policy
	return p
}

func (p *LatchedIdentityProvider) WithMetrics(m Metrics) *LatchedIdentityProvider {
	p.metrics = normalizeMetrics(m)
	return p
}

func (p *LatchedIdentityProvider) WithLogger(logger Logger) *LatchedIdentityProvider {
	p.loggerProvider, p.logger = ResolveLogger("latch.interceptor", p.loggerProvider, logger)
	return p
}

func (p *LatchedIdentityProvider) WithLoggerProvider(provider LoggerProvider) *LatchedIdentityProvider {
	p.loggerProvider, p.logger = ResolveLogger("latch.interceptor", provider, nil)
	return p
}

func (p *LatchedIdentityProvider) WithActivitySink(sink ActivitySink) *LatchedIdentityProvider {
	p.activitySink = normalizeActivitySink(sink)
	return p
}

// OutagePolicy returns the configured outage policy
func (p *LatchedIdentityProvider) OutagePolicy() OutagePolicy {
	return p.outagePolicy
}

// Inner returns the wrapped credential backend
func (p *LatchedIdentityProvider) Inner() IdentityProvider {
	return p.inner
}

// LatchEnabled implements LatchCapable
func (p *LatchedIdentityProvider) LatchEnabled() bool {
	return true
}

// VerifyIdentity runs the inner credential check and, when it passes,
// the latch status check for the user.
func (p *LatchedIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	identity, err := p.inner.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		return nil, err
	}

	userID := identity.ID()
	record, err := p.records.FindByUserID(ctx, userID)
	if err != nil {
		if IsPairingNotFound(err) {
			p.dummyStatus(ctx)
			p.metrics.ObserveDecision(DecisionAdmitUnpaired)
			return identity, nil
		}
		p.logger.Error("failed to load pairing record", "user_id", userID, "error", err)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load pairing record")
	}

	status, err := p.status(ctx, "status", record.AccountID)
	if err != nil {
		return p.outage(ctx, identity, record, err)
	}

	switch status.Status {
	case client.StatusOff:
		p.metrics.ObserveDecision(DecisionAdmit)
		return identity, nil
	case client.StatusOn:
		p.logger.Info("login denied by latch", "user_id", userID)
		p.metrics.ObserveDecision(DecisionDenyLocked)
		recordActivity(ctx, p.activitySink, p.logger, ActivityEvent{
			EventType: ActivityEventLatchDenied,
			UserID:    userID,
			AccountID: record.AccountID,
			Metadata:  map[string]any{"reason": "locked"},
		})
		return nil, richError(ErrLatchLocked, nil, map[string]any{"user_id": userID})
	}

	return p.outage(ctx, identity, record, fmt.Errorf("unexpected latch status %q", status.Status))
}

// FindIdentityByIdentifier restores identities without a latch check
func (p *LatchedIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	return p.inner.FindIdentityByIdentifier(ctx, identifier)
}

// RecordSuccessfulLogin forwards to the wrapped provider when it keeps
// login state. Callers reach it only after VerifyIdentity admitted.
func (p *LatchedIdentityProvider) RecordSuccessfulLogin(ctx context.Context, identity Identity) error {
	if recorder, ok := p.inner.(LoginRecorder); ok {
		return recorder.RecordSuccessfulLogin(ctx, identity)
	}
	return nil
}

func (p *LatchedIdentityProvider) outage(ctx context.Context, identity Identity, record *PairingRecord, cause error) (Identity, error) {
	userID := identity.ID()

	if p.outagePolicy == OutageAllow {
		p.logger.Warn("latch status unavailable, admitting login", "user_id", userID, "error", cause)
		p.metrics.ObserveDecision(DecisionAdmitOutage)
		recordActivity(ctx, p.activitySink, p.logger, ActivityEvent{
			EventType: ActivityEventLatchOutageAllowed,
			UserID:    userID,
			AccountID: record.AccountID,
			Metadata:  map[string]any{"error": cause.Error()},
		})
		return identity, nil
	}

	p.logger.Warn("latch status unavailable, denying login", "user_id", userID, "error", cause)
	p.metrics.ObserveDecision(DecisionDenyOutage)
	recordActivity(ctx, p.activitySink, p.logger, ActivityEvent{
		EventType: ActivityEventLatchDenied,
		UserID:    userID,
		AccountID: record.AccountID,
		Metadata: map[string]any{
			"reason": "unavailable",
			"error":  cause.Error(),
		},
	})
	return nil, richError(ErrLatchUnavailable, cause, map[string]any{"user_id": userID})
}

// dummyStatus issues a status call for a random account id so unpaired
// users take the same remote round trip as paired ones.
func (p *LatchedIdentityProvider) dummyStatus(ctx context.Context) {
	accountID, err := p.dummyID()
	if err != nil {
		p.logger.Error("failed to generate placeholder account id", "error", err)
		return
	}
	_, _ = p.status(ctx, "status_dummy", accountID)
}

func (p *LatchedIdentityProvider) status(ctx context.Context, operation, accountID string) (*client.Status, error) {
	if p.client == nil {
		p.metrics.ObserveRemoteCall(operation, "error", 0)
		return nil, errNoLatchClient
	}

	start := time.Now()
	status, err := p.client.Status(ctx, accountID)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	} else if status == nil {
		outcome = "error"
		err = fmt.Errorf("empty latch status response")
	}
	p.metrics.ObserveRemoteCall(operation, outcome, time.Since(start))

	return status, err
}

var _ LatchCapable = (*LatchedIdentityProvider)(nil)
var _ LoginRecorder = (*LatchedIdentityProvider)(nil)
