package latch_test

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-router"
	latch "github.com/phoenixsite/go-latch"
	"github.com/phoenixsite/go-latch/client"
	"github.com/stretchr/testify/mock"
)

// MockLatchClient implements latch.LatchClient
type MockLatchClient struct {
	mock.Mock
}

func (m *MockLatchClient) Pair(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *MockLatchClient) Unpair(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockLatchClient) Status(ctx context.Context, accountID string) (*client.Status, error) {
	args := m.Called(ctx, accountID)
	status, _ := args.Get(0).(*client.Status)
	return status, args.Error(1)
}

// MockPairingRecords implements latch.PairingRecords
type MockPairingRecords struct {
	mock.Mock
}

func (m *MockPairingRecords) FindByUserID(ctx context.Context, userID string) (*latch.PairingRecord, error) {
	args := m.Called(ctx, userID)
	record, _ := args.Get(0).(*latch.PairingRecord)
	return record, args.Error(1)
}

func (m *MockPairingRecords) ExistsForUser(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPairingRecords) Create(ctx context.Context, record *latch.PairingRecord) (*latch.PairingRecord, error) {
	args := m.Called(ctx, record)
	out, _ := args.Get(0).(*latch.PairingRecord)
	return out, args.Error(1)
}

func (m *MockPairingRecords) Delete(ctx context.Context, record *latch.PairingRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// MockIdentityProvider implements latch.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (latch.Identity, error) {
	args := m.Called(ctx, identifier, password)
	identity, _ := args.Get(0).(latch.Identity)
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (latch.Identity, error) {
	args := m.Called(ctx, identifier)
	identity, _ := args.Get(0).(latch.Identity)
	return identity, args.Error(1)
}

// MockUserTracker implements latch.UserTracker
type MockUserTracker struct {
	mock.Mock
}

func (m *MockUserTracker) GetByIdentifier(ctx context.Context, identifier string) (*latch.User, error) {
	args := m.Called(ctx, identifier)
	user, _ := args.Get(0).(*latch.User)
	return user, args.Error(1)
}

func (m *MockUserTracker) TrackAttemptedLogin(ctx context.Context, user *latch.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserTracker) TrackSucccessfulLogin(ctx context.Context, user *latch.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// TestIdentity is a simple implementation of Identity interface for testing
type TestIdentity struct {
	id       string
	username string
	email    string
	role     string
}

func (t TestIdentity) ID() string       { return t.id }
func (t TestIdentity) Username() string { return t.username }
func (t TestIdentity) Email() string    { return t.email }
func (t TestIdentity) Role() string     { return t.role }

// memoryRecords is an in memory pairing store with the uniqueness rules
// of the SQL one.
type memoryRecords struct {
	mu      sync.Mutex
	byUser  map[string]*latch.PairingRecord
	creates int
	deletes int
}

func newMemoryRecords() *memoryRecords {
	return &memoryRecords{byUser: map[string]*latch.PairingRecord{}}
}

func (s *memoryRecords) FindByUserID(_ context.Context, userID string) (*latch.PairingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.byUser[userID]
	if !ok {
		return nil, latch.ErrPairingNotFound.Clone()
	}
	copied := *record
	return &copied, nil
}

func (s *memoryRecords) ExistsForUser(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byUser[userID]
	return ok, nil
}

func (s *memoryRecords) Create(_ context.Context, record *latch.PairingRecord) (*latch.PairingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUser[record.UserID]; ok {
		return nil, latch.ErrPairingConflict.Clone()
	}
	for _, existing := range s.byUser {
		if existing.AccountID == record.AccountID {
			return nil, latch.ErrPairingConflict.Clone()
		}
	}
	s.creates++
	copied := *record
	s.byUser[record.UserID] = &copied
	return record, nil
}

func (s *memoryRecords) Delete(_ context.Context, record *latch.PairingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUser[record.UserID]; !ok {
		return latch.ErrPairingNotFound.Clone()
	}
	s.deletes++
	delete(s.byUser, record.UserID)
	return nil
}

func (s *memoryRecords) seed(userID, accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[userID] = latch.NewPairingRecord(userID, accountID)
}

// recordingSink collects activity events
type recordingSink struct {
	mu     sync.Mutex
	events []latch.ActivityEvent
}

func (r *recordingSink) Record(_ context.Context, event latch.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) types() []latch.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]latch.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

// recordingMetrics collects interceptor observations
type recordingMetrics struct {
	mu        sync.Mutex
	decisions []string
	calls     []string
}

func (m *recordingMetrics) ObserveDecision(decision string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, decision)
}

func (m *recordingMetrics) ObserveRemoteCall(operation, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, operation+":"+outcome)
}

// newMockContext returns a request context, authenticated as userID when
// it is not empty.
func newMockContext(userID string) *router.MockContext {
	ctx := router.NewMockContext()
	if userID != "" {
		claims := &latch.SessionClaims{}
		claims.Subject = userID
		ctx.LocalsMock[latch.DefaultContextKey] = claims
	}
	ctx.On("Context").Return(context.Background()).Maybe()
	return ctx
}
