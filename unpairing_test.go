package latch_test

import (
	"context"
	"errors"
	"testing"

	latch "github.com/phoenixsite/go-latch"
	"github.com/phoenixsite/go-latch/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUnpairerUnpair(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the record after the remote unpair", func(t *testing.T) {
		mockClient := new(MockLatchClient)
		records := newMemoryRecords()
		records.seed("user-1", "ACCT123")
		sink := &recordingSink{}

		mockClient.On("Unpair", ctx, "ACCT123").Return(nil).Once()

		err := latch.NewUnpairer(mockClient, records).WithActivitySink(sink).Unpair(ctx, "user-1")

		require.NoError(t, err)
		assert.Equal(t, 1, records.deletes)
		assert.Equal(t, []latch.ActivityEventType{latch.ActivityEventLatchUnpaired}, sink.types())
		mockClient.AssertExpectations(t)
	})

	t.Run("unpaired user gets not_paired", func(t *testing.T) {
		mockClient := new(MockLatchClient)

		err := latch.NewUnpairer(mockClient, newMemoryRecords()).Unpair(ctx, "user-1")

		var unpairErr *latch.UnpairingError
		require.ErrorAs(t, err, &unpairErr)
		assert.Equal(t, latch.UnpairingNotPaired, unpairErr.Kind)
		assert.Equal(t, latch.MessageNotPaired, unpairErr.Message)
		mockClient.AssertNotCalled(t, "Unpair", mock.Anything, mock.Anything)
	})

	t.Run("remote failure keeps the record", func(t *testing.T) {
		mockClient := new(MockLatchClient)
		records := newMemoryRecords()
		records.seed("user-1", "ACCT123")
		sink := &recordingSink{}

		remote := &client.Error{Operation: "unpair", Code: client.CodeAccountNotPaired, Message: "Account not paired"}
		mockClient.On("Unpair", ctx, "ACCT123").Return(remote).Once()

		err := latch.NewUnpairer(mockClient, records).WithActivitySink(sink).Unpair(ctx, "user-1")

		var unpairErr *latch.UnpairingError
		require.ErrorAs(t, err, &unpairErr)
		assert.Equal(t, latch.UnpairingRemote, unpairErr.Kind)
		assert.Equal(t, client.CodeAccountNotPaired, unpairErr.Code)
		assert.Equal(t, "Account not paired", unpairErr.Message)

		view := unpairErr.ViewContext()
		assert.Equal(t, client.CodeAccountNotPaired, view["code"])

		paired, err := records.ExistsForUser(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, paired)
		assert.Zero(t, records.deletes)
		assert.Equal(t, []latch.ActivityEventType{latch.ActivityEventLatchUnpairFailed}, sink.types())
	})

	t.Run("transport failure keeps the record", func(t *testing.T) {
		mockClient := new(MockLatchClient)
		records := newMemoryRecords()
		records.seed("user-1", "ACCT123")

		mockClient.On("Unpair", ctx, "ACCT123").
			Return(&client.Error{Operation: "unpair", Err: errors.New("connection reset")}).Once()

		err := latch.NewUnpairer(mockClient, records).Unpair(ctx, "user-1")

		var unpairErr *latch.UnpairingError
		require.ErrorAs(t, err, &unpairErr)
		assert.Equal(t, latch.UnpairingRemote, unpairErr.Kind)
		assert.Zero(t, unpairErr.Code)

		paired, _ := records.ExistsForUser(ctx, "user-1")
		assert.True(t, paired)
	})

	t.Run("store lookup failures are internal", func(t *testing.T) {
		mockClient := new(MockLatchClient)
		records := new(MockPairingRecords)
		records.On("FindByUserID", ctx, "user-1").Return(nil, errors.New("database is locked")).Once()

		err := latch.NewUnpairer(mockClient, records).Unpair(ctx, "user-1")

		require.Error(t, err)
		var unpairErr *latch.UnpairingError
		assert.False(t, errors.As(err, &unpairErr))
		records.AssertExpectations(t)
	})
}
