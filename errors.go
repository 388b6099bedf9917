package latch

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeLatchLocked       = "LATCH_LOCKED"
	TextCodeLatchUnavailable  = "LATCH_UNAVAILABLE"
	TextCodeLatchForbidden    = "LATCH_FORBIDDEN"
	TextCodePairingNotFound   = "LATCH_PAIRING_NOT_FOUND"
	TextCodePairingConflict   = "LATCH_PAIRING_CONFLICT"
	TextCodePairingThrottled  = "LATCH_PAIRING_THROTTLED"
	TextCodeInvalidToken      = "LATCH_INVALID_TOKEN"
	TextCodeAccountIDTooLong  = "LATCH_ACCOUNT_ID_TOO_LONG"
	TextCodeInvalidCredential = "INVALID_CREDENTIALS"
	TextCodeUserDisabled      = "USER_DISABLED"
	TextCodeTooManyAttempts   = "TOO_MANY_LOGIN_ATTEMPTS"
)

// ErrLatchLocked is returned when a paired user's latch is engaged
var ErrLatchLocked = goerrors.New("latch is locked for this account", goerrors.CategoryAuth).
	WithTextCode(TextCodeLatchLocked).
	WithCode(goerrors.CodeForbidden)

// ErrLatchUnavailable is returned when the latch status could not be
// determined and the outage policy denies the login.
var ErrLatchUnavailable = goerrors.New("latch status unavailable", goerrors.CategoryAuth).
	WithTextCode(TextCodeLatchUnavailable).
	WithCode(http.StatusServiceUnavailable)

// ErrLatchForbidden is returned by the access gate for authenticated
// users in the wrong pairing state.
var ErrLatchForbidden = goerrors.New("forbidden", goerrors.CategoryAuthz).
	WithTextCode(TextCodeLatchForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrPairingNotFound is returned by stores when the user has no pairing record
var ErrPairingNotFound = goerrors.New("pairing record not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodePairingNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrPairingConflict is returned by stores when a uniqueness constraint rejects a record
var ErrPairingConflict = goerrors.New("pairing record already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodePairingConflict).
	WithCode(goerrors.CodeConflict)

// ErrAccountIDTooLong is returned by stores for account ids longer
// than MaxAccountIDLength.
var ErrAccountIDTooLong = goerrors.New("latch account id is too long", goerrors.CategoryBadInput).
	WithTextCode(TextCodeAccountIDTooLong).
	WithCode(goerrors.CodeBadRequest)

// ErrPairingThrottled is returned when a user submits pairing tokens too quickly
var ErrPairingThrottled = goerrors.New("too many pairing attempts", goerrors.CategoryRateLimit).
	WithTextCode(TextCodePairingThrottled).
	WithCode(http.StatusTooManyRequests)

// ErrMismatchedHashAndPassword is returned for bad credentials
var ErrMismatchedHashAndPassword = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredential).
	WithCode(goerrors.CodeUnauthorized)

// ErrUserDisabled is returned when a disabled user tries to log in
var ErrUserDisabled = goerrors.New("user account is disabled", goerrors.CategoryAuth).
	WithTextCode(TextCodeUserDisabled).
	WithCode(goerrors.CodeForbidden)

// ErrTooManyLoginAttempts is returned when the cool down window is active
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts).
	WithCode(http.StatusTooManyRequests)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found")

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = errors.New("password can not be empty")

// ErrUnableToFindSession is the error when our request has no session cookie
var ErrUnableToFindSession = errors.New("unable to find session")

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session")

const (
	MessageTokenNotFound = "The token you provided hasn't been found."
	MessageAlreadyPaired = "Your account is already paired."
	MessageNotPaired     = "Your account is not paired with Latch."
)

// PairingErrorKind identifies why a pairing token was rejected
type PairingErrorKind string

const (
	PairingTokenNotFound PairingErrorKind = "not_found"
	PairingAlreadyPaired PairingErrorKind = "already_paired"
)

// PairingValidationError is a field level rejection of a pairing token.
// It is meant to be shown on the same form the token came from.
type PairingValidationError struct {
	Kind    PairingErrorKind
	Field   string
	Message string
	Err     error
}

func (e *PairingValidationError) Error() string {
	if e == nil {
		return "pairing validation error"
	}
	return fmt.Sprintf("pairing rejected (%s): %s", e.Kind, e.Message)
}

func (e *PairingValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationMap returns the field errors keyed by form field
func (e *PairingValidationError) ValidationMap() map[string]string {
	if e == nil {
		return nil
	}
	field := e.Field
	if field == "" {
		field = "token"
	}
	return map[string]string{field: e.Message}
}

// UnpairingErrorKind identifies why an unpairing attempt failed
type UnpairingErrorKind string

const (
	UnpairingNotPaired UnpairingErrorKind = "not_paired"
	UnpairingRemote    UnpairingErrorKind = "remote"
)

// UnpairingError is reported back to the user when unpairing fails.
// Code carries the remote error code for UnpairingRemote.
type UnpairingError struct {
	Kind    UnpairingErrorKind
	Message string
	Code    int
	Params  map[string]any
	Err     error
}

func (e *UnpairingError) Error() string {
	if e == nil {
		return "unpairing error"
	}
	if e.Code != 0 {
		return fmt.Sprintf("unpairing failed (%s, code %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("unpairing failed (%s): %s", e.Kind, e.Message)
}

func (e *UnpairingError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ViewContext returns the error shaped for templates
func (e *UnpairingError) ViewContext() map[string]any {
	if e == nil {
		return nil
	}
	return map[string]any{
		"kind":    string(e.Kind),
		"message": e.Message,
		"code":    e.Code,
		"params":  e.Params,
	}
}

func richError(base *goerrors.Error, err error, meta map[string]any) error {
	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if err != nil {
		clone.Source = err
	}
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}
	return clone
}

// HasTextCode reports whether err is a rich error carrying the text code
func HasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

// IsPairingNotFound reports whether err means the user has no pairing record
func IsPairingNotFound(err error) bool {
	if err == nil {
		return false
	}
	return HasTextCode(err, TextCodePairingNotFound) || goerrors.IsNotFound(err)
}
