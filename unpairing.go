package latch

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/phoenixsite/go-latch/client"
)

// Unpairer removes the binding between a user and a remote latch account
type Unpairer struct {
	client         LatchClient
	records        PairingRecords
	logger         Logger
	loggerProvider LoggerProvider
	activitySink   ActivitySink
}

// NewUnpairer returns an unpairing workflow over the given client and store
func NewUnpairer(latchClient LatchClient, records PairingRecords) *Unpairer {
	loggerProvider, logger := ResolveLogger("latch.unpairing", nil, nil)
	return &Unpairer{
		client:         latchClient,
		records:        records,
		logger:         logger,
		loggerProvider: loggerProvider,
		activitySink:   noopActivitySink{},
	}
}

func (u *Unpairer) WithLogger(logger Logger) *Unpairer {
	u.loggerProvider, u.logger = ResolveLogger("latch.unpairing", u.loggerProvider, logger)
	return u
}

func (u *Unpairer) WithLoggerProvider(provider LoggerProvider) *Unpairer {
	u.loggerProvider, u.logger = ResolveLogger("latch.unpairing", provider, nil)
	return u
}

func (u *Unpairer) WithActivitySink(sink ActivitySink) *Unpairer {
	u.activitySink = normalizeActivitySink(sink)
	return u
}

// Unpair revokes the remote pairing and then deletes the local record.
// The record is only deleted once the remote service confirms.
func (u *Unpairer) Unpair(ctx context.Context, userID string) error {
	record, err := u.records.FindByUserID(ctx, userID)
	if err != nil {
		if IsPairingNotFound(err) {
			return &UnpairingError{
				Kind:    UnpairingNotPaired,
				Message: MessageNotPaired,
				Err:     err,
			}
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load pairing record")
	}

	if err := u.client.Unpair(ctx, record.AccountID); err != nil {
		unpairErr := &UnpairingError{
			Kind:    UnpairingRemote,
			Message: err.Error(),
			Err:     err,
		}

		var remote *client.Error
		if errors.As(err, &remote) {
			unpairErr.Code = remote.Code
			if remote.Message != "" {
				unpairErr.Message = remote.Message
			}
		}

		u.logger.Warn("latch unpair request failed", "user_id", userID, "code", unpairErr.Code, "error", err)
		recordActivity(ctx, u.activitySink, u.logger, ActivityEvent{
			EventType: ActivityEventLatchUnpairFailed,
			UserID:    userID,
			AccountID: record.AccountID,
			Metadata: map[string]any{
				"code":    unpairErr.Code,
				"message": unpairErr.Message,
			},
		})
		return unpairErr
	}

	if err := u.records.Delete(ctx, record); err != nil {
		u.logger.Error("failed to delete pairing record", "user_id", userID, "error", err)
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete pairing record")
	}

	u.logger.Info("user unpaired from latch", "user_id", userID)
	recordActivity(ctx, u.activitySink, u.logger, ActivityEvent{
		EventType: ActivityEventLatchUnpaired,
		UserID:    userID,
		AccountID: record.AccountID,
	})

	return nil
}
