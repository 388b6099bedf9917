package latch_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-router"
	latch "github.com/phoenixsite/go-latch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{}

func (stubPinger) PingContext(context.Context) error { return nil }

func validCheckTarget() latch.CheckTarget {
	inner := new(MockIdentityProvider)
	return latch.CheckTarget{
		DB: stubPinger{},
		Providers: []latch.IdentityProvider{
			latch.NewLatchedIdentityProvider(inner, new(MockLatchClient), newMemoryRecords()),
		},
		SessionMiddleware: func(next router.HandlerFunc) router.HandlerFunc { return next },
		AppID:             "app-id",
		SecretKey:         "secret",
		Backend:           "http",
	}
}

func TestRunChecksValidConfiguration(t *testing.T) {
	messages := latch.RunChecks(validCheckTarget())
	assert.Empty(t, messages)
	assert.NoError(t, messages.Err())
}

func TestRunChecksReportsEveryFailure(t *testing.T) {
	messages := latch.RunChecks(latch.CheckTarget{Backend: "carrier-pigeon"})

	for _, id := range []string{
		latch.CheckDatabase,
		latch.CheckIdentityProvider,
		latch.CheckSessionMiddleware,
		latch.CheckAppID,
		latch.CheckSecretKey,
		latch.CheckHTTPBackend,
	} {
		assert.True(t, messages.Has(id), id)
	}
	// no providers at all is reported once, as E102
	assert.False(t, messages.Has(latch.CheckLatchCapable))
	require.Error(t, messages.Err())
	assert.Contains(t, messages.Error(), "carrier-pigeon")
}

func TestRunChecksRequiresLatchCapableProvider(t *testing.T) {
	target := validCheckTarget()
	target.Providers = []latch.IdentityProvider{new(MockIdentityProvider)}

	messages := latch.RunChecks(target)

	require.Len(t, messages, 1)
	assert.Equal(t, latch.CheckLatchCapable, messages[0].ID)
	assert.NotEmpty(t, messages[0].Hint)
}

func TestRunChecksBlankCredentials(t *testing.T) {
	target := validCheckTarget()
	target.AppID = "   "
	target.SecretKey = ""

	messages := latch.RunChecks(target)

	assert.True(t, messages.Has(latch.CheckAppID))
	assert.True(t, messages.Has(latch.CheckSecretKey))
	assert.Len(t, messages, 2)
}

func TestRunChecksDefaultsBackend(t *testing.T) {
	target := validCheckTarget()
	target.Backend = ""

	assert.Empty(t, latch.RunChecks(target))
}
