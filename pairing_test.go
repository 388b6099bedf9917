package latch_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	latch "github.com/phoenixsite/go-latch"
	"github.com/phoenixsite/go-latch/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPairTokenFormValidate(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "valid token", token: "ABC123"},
		{name: "empty token", token: "", wantErr: true},
		{name: "max length", token: strings.Repeat("a", latch.MaxTokenLength)},
		{name: "too long", token: strings.Repeat("a", latch.MaxTokenLength+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := latch.PairTokenForm{Token: tt.token}
			err := form.Validate()
			if tt.wantErr {
				require.NotNil(t, err)
				assert.Equal(t, goerrors.CategoryValidation, err.Category)
				assert.Contains(t, form.FieldErrors(), "token")
				return
			}
			assert.Nil(t, err)
			assert.Empty(t, form.FieldErrors())
		})
	}
}

func TestPairerSubmitToken(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the returned account", func(t *testing.T) {
		mockClient := new(MockLatchClient)
		records := newMemoryRecords()
		sink := &recordingSink{}

		mockClient.On("Pair", ctx, "TOKEN1").Return("ACCT123", nil).Once()

		pairer := latch.NewPairer(mockClient, records).WithActivitySink(sink)
		record, err := pairer.SubmitToken(ctx, "user-1", "  TOKEN1 ")

		require.NoError(t, err)
		assert.Equal(t, "user-1", record.UserID)
		assert.Equal(t, "ACCT123", record.AccountID)

		stored, err := records.FindByUserID(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "ACCT123", stored.AccountID)
		assert.Equal(t, []latch.ActivityEventType{latch.ActivityEventLatchPaired}, sink.types())

		mockClient.AssertExpectations(t)
	})

	t.Run("token not found is a field error", func(t *testing.T) {
		mockClient := new(MockLatchClient)
		records := newMemoryRecords()

		mockClient.On("Pair", ctx, "EXPIRED").Return("", client.ErrTokenNotFound).Once()

		_, err := latch.NewPairer(mockClient, records).SubmitToken(ctx, "user-1", "EXPIRED")

		var pairErr *latch.PairingValidationError
		require.ErrorAs(t, err, &pairErr)
		assert.Equal(t, latch.PairingTokenNotFound, pairErr.Kind)
		assert.Equal(t, map[string]string{"token": latch.MessageTokenNotFound}, pairErr.ValidationMap())
		assert.Zero(t, records.creates)
	})

	t.Run("already paired is a field error", func(t *testing.T) {
		mockClient := new(MockLatchClient)
		records := newMemoryRecords()

		mockClient.On("Pair", ctx, "TOKEN2").Return("", client.ErrApplicationAlreadyPaired).Once()

		_, err := latch.NewPairer(mockClient, records).SubmitToken(ctx, "user-1", "TOKEN2")

		var pairErr *latch.PairingValidationError
		require.ErrorAs(t, err, &pairErr)
		assert.Equal(t, latch.PairingAlreadyPaired, pairErr.Kind)
		assert.Equal(t, latch.MessageAlreadyPaired, pairErr.Message)
		assert.Zero(t, records.creates)
	})

	t.Run("other remote errors propagate", func(t *testing.T) {
		mockClient := new(MockLatchClient)
		records := newMemoryRecords()
		remote := &client.Error{Code: 102, Message: "Invalid application signature"}

		mockClient.On("Pair", ctx, "TOKEN3").Return("", remote).Once()

		_, err := latch.NewPairer(mockClient, records).SubmitToken(ctx, "user-1", "TOKEN3")

		require.Error(t, err)
		var pairErr *latch.PairingValidationError
		assert.False(t, errors.As(err, &pairErr))

		var clientErr *client.Error
		require.ErrorAs(t, err, &clientErr)
		assert.Equal(t, 102, clientErr.Code)
		assert.Zero(t, records.creates)
	})

	t.Run("invalid form never reaches the remote service", func(t *testing.T) {
		mockClient := new(MockLatchClient)

		_, err := latch.NewPairer(mockClient, newMemoryRecords()).SubmitToken(ctx, "user-1", "   ")

		require.Error(t, err)
		mockClient.AssertNotCalled(t, "Pair", mock.Anything, mock.Anything)
	})

	t.Run("store conflicts propagate", func(t *testing.T) {
		mockClient := new(MockLatchClient)
		records := newMemoryRecords()
		records.seed("user-2", "ACCT123")

		mockClient.On("Pair", ctx, "TOKEN4").Return("ACCT123", nil).Once()

		_, err := latch.NewPairer(mockClient, records).SubmitToken(ctx, "user-1", "TOKEN4")

		require.Error(t, err)
		assert.True(t, latch.HasTextCode(err, latch.TextCodePairingConflict))
	})
}

func TestPairThenUnpairRoundTrip(t *testing.T) {
	ctx := context.Background()
	mockClient := new(MockLatchClient)
	records := newMemoryRecords()

	mockClient.On("Pair", ctx, "TOKEN1").Return("ACCT123", nil).Once()
	mockClient.On("Unpair", ctx, "ACCT123").Return(nil).Once()

	_, err := latch.NewPairer(mockClient, records).SubmitToken(ctx, "user-1", "TOKEN1")
	require.NoError(t, err)

	paired, err := records.ExistsForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, paired)

	require.NoError(t, latch.NewUnpairer(mockClient, records).Unpair(ctx, "user-1"))

	paired, err = records.ExistsForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, paired)

	mockClient.AssertExpectations(t)
}
