package latch

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/phoenixsite/go-latch/client"
)

// MaxTokenLength is the longest pairing token the form accepts
const MaxTokenLength = 100

// PairTokenForm is the pairing form payload
type PairTokenForm struct {
	Token string `form:"token" json:"token"`
}

// Validate will run validation rules
func (f PairTokenForm) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(f.rules, "invalid pairing token")
}

// FieldErrors returns the validation messages keyed by form field
func (f PairTokenForm) FieldErrors() map[string]string {
	out := map[string]string{}
	err := f.rules()
	if err == nil {
		return out
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		for field, fieldErr := range errs {
			out[field] = fieldErr.Error()
		}
		return out
	}
	out["token"] = err.Error()
	return out
}

func (f PairTokenForm) rules() error {
	return validation.ValidateStruct(&f,
		validation.Field(
			&f.Token,
			validation.Required,
			validation.Length(1, MaxTokenLength),
		),
	)
}

// Pairer binds users to remote latch accounts
type Pairer struct {
	client         LatchClient
	records        PairingRecords
	logger         Logger
	loggerProvider LoggerProvider
	activitySink   ActivitySink
}

// NewPairer returns a pairing workflow over the given client and store
func NewPairer(latchClient LatchClient, records PairingRecords) *Pairer {
	loggerProvider, logger := ResolveLogger("latch.pairing", nil, nil)
	return &Pairer{
		client:         latchClient,
		records:        records,
		logger:         logger,
		loggerProvider: loggerProvider,
		activitySink:   noopActivitySink{},
	}
}

func (p *Pairer) WithLogger(logger Logger) *Pairer {
	p.loggerProvider, p.logger = ResolveLogger("latch.pairing", p.loggerProvider, logger)
	return p
}

func (p *Pairer) WithLoggerProvider(provider LoggerProvider) *Pairer {
	p.loggerProvider, p.logger = ResolveLogger("latch.pairing", provider, nil)
	return p
}

func (p *Pairer) WithActivitySink(sink ActivitySink) *Pairer {
	p.activitySink = normalizeActivitySink(sink)
	return p
}

// SubmitToken exchanges a one time token for a remote account id and
// stores the binding. Rejected tokens return a *PairingValidationError,
// anything else the remote service reports is returned unhandled.
// The caller must ensure the user is not already paired.
func (p *Pairer) SubmitToken(ctx context.Context, userID, token string) (*PairingRecord, error) {
	token = strings.TrimSpace(token)
	form := PairTokenForm{Token: token}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	accountID, err := p.client.Pair(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, client.ErrTokenNotFound):
			p.logger.Info("pairing token not found", "user_id", userID)
			return nil, &PairingValidationError{
				Kind:    PairingTokenNotFound,
				Field:   "token",
				Message: MessageTokenNotFound,
				Err:     err,
			}
		case errors.Is(err, client.ErrApplicationAlreadyPaired):
			p.logger.Info("latch account already paired", "user_id", userID)
			return nil, &PairingValidationError{
				Kind:    PairingAlreadyPaired,
				Field:   "token",
				Message: MessageAlreadyPaired,
				Err:     err,
			}
		}
		p.logger.Error("latch pair request failed", "user_id", userID, "error", err)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "latch pairing failed")
	}

	record, err := p.records.Create(ctx, NewPairingRecord(userID, accountID))
	if err != nil {
		p.logger.Error("failed to store pairing record", "user_id", userID, "error", err)
		return nil, err
	}

	p.logger.Info("user paired with latch", "user_id", userID)
	recordActivity(ctx, p.activitySink, p.logger, ActivityEvent{
		EventType: ActivityEventLatchPaired,
		UserID:    userID,
		AccountID: record.AccountID,
	})

	return record, nil
}
