package client

import "fmt"

const (
	CodeAccountNotPaired         = 201
	CodeApplicationAlreadyPaired = 205
	CodeTokenNotFound            = 206
)

// Error is a failure reported by the latch service or by the transport.
// Transport failures have a zero Code and a non nil Err.
type Error struct {
	Operation string
	Code      int
	Message   string
	Err       error
}

// ErrTokenNotFound is returned by Pair when the token is unknown or expired
var ErrTokenNotFound = &Error{Code: CodeTokenNotFound, Message: "Token not found or expired"}

// ErrApplicationAlreadyPaired is returned by Pair when the account is already bound
var ErrApplicationAlreadyPaired = &Error{Code: CodeApplicationAlreadyPaired, Message: "Account and application already paired"}

func (e *Error) Error() string {
	if e == nil {
		return "latch error"
	}

	scope := "latch"
	if e.Operation != "" {
		scope = "latch " + e.Operation
	}

	switch {
	case e.Code != 0 && e.Message != "":
		return fmt.Sprintf("%s failed (%d): %s", scope, e.Code, e.Message)
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s failed: %s: %v", scope, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", scope, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s failed: %s", scope, e.Message)
	}
	return scope + " failed"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by their service code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Code != 0 && t.Code == e.Code
}

// IsTransport reports whether the error happened before the service answered
func (e *Error) IsTransport() bool {
	return e != nil && e.Code == 0 && e.Err != nil
}

// ConfigError is returned when the client can not be built from its settings
type ConfigError struct {
	Setting string
	Message string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "latch configuration error"
	}
	return e.Message
}
