package latch

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/phoenixsite/go-latch/client"
)

// StatusError is a remote failure reported inline on a status report
type StatusError struct {
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

// StatusReport describes the pairing state of a user
type StatusReport struct {
	Paired    bool         `json:"paired"`
	AccountID string       `json:"account_id,omitempty"`
	Status    string       `json:"status,omitempty"`
	Error     *StatusError `json:"error,omitempty"`
}

// StatusReporter answers "is this user paired and what is the latch
// saying right now"
type StatusReporter struct {
	client  LatchClient
	records PairingRecords
	logger  Logger
}

func NewStatusReporter(latchClient LatchClient, records PairingRecords) *StatusReporter {
	_, logger := ResolveLogger("latch.status", nil, nil)
	return &StatusReporter{
		client:  latchClient,
		records: records,
		logger:  logger,
	}
}

func (s *StatusReporter) WithLogger(logger Logger) *StatusReporter {
	_, s.logger = ResolveLogger("latch.status", nil, logger)
	return s
}

// Report never returns remote errors, they are set on the report.
// Unpaired users do not trigger a remote call.
func (s *StatusReporter) Report(ctx context.Context, userID string) (*StatusReport, error) {
	record, err := s.records.FindByUserID(ctx, userID)
	if err != nil {
		if IsPairingNotFound(err) {
			return &StatusReport{Paired: false}, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load pairing record")
	}

	report := &StatusReport{
		Paired:    true,
		AccountID: record.AccountID,
	}

	status, err := s.client.Status(ctx, record.AccountID)
	if err != nil {
		s.logger.Warn("latch status request failed", "user_id", userID, "error", err)
		report.Error = &StatusError{Message: err.Error()}
		var remote *client.Error
		if errors.As(err, &remote) {
			report.Error.Code = remote.Code
			if remote.Message != "" {
				report.Error.Message = remote.Message
			}
		}
		return report, nil
	}

	if status != nil {
		report.Status = status.Status
	}

	return report, nil
}
