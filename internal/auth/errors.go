// Package auth defines the error taxonomy and credential types shared by every
// outbound call the CLI tools make, in a provider-agnostic format.
package auth

import "errors"

// ErrorCode is a short machine readable identifier for a failure class.
type ErrorCode string

const (
	// ErrNetwork marks transport failures: DNS, connection, timeout.
	ErrNetwork ErrorCode = "network_error"
	// ErrProtocol marks a well-formed HTTP response missing or malforming expected fields.
	ErrProtocol ErrorCode = "protocol_error"
	// ErrAuthExpired marks a device code that expired before the user authorized it.
	ErrAuthExpired ErrorCode = "auth_expired"
	// ErrAuthDenied marks an authorization the user explicitly declined.
	ErrAuthDenied ErrorCode = "auth_denied"
	// ErrAuthRejected marks a refused token exchange.
	ErrAuthRejected ErrorCode = "auth_rejected"
	// ErrAPI marks a non-2xx response from an authenticated call.
	ErrAPI ErrorCode = "api_error"
	// ErrEmptyResponse marks a chat reply carrying no completions.
	ErrEmptyResponse ErrorCode = "empty_response"
)

// Error describes an authentication or API related failure.
type Error struct {
	// Code is the failure class.
	Code ErrorCode
	// Message is a human readable description of the failure.
	Message string
	// HTTPStatus optionally records the HTTP status code behind the failure.
	HTTPStatus int
	// Body optionally records the response body behind the failure.
	Body string
	// Retryable indicates whether the polling loop may continue after this failure.
	Retryable bool

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.cause != nil {
		msg = msg + ": " + e.cause.Error()
	}
	if e.Code == "" {
		return msg
	}
	return string(e.Code) + ": " + msg
}

// Unwrap exposes the underlying cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// StatusCode returns the HTTP status behind the failure, when known.
func (e *Error) StatusCode() int {
	if e == nil {
		return 0
	}
	return e.HTTPStatus
}

// NewError constructs an Error with a code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError constructs an Error that carries an underlying cause.
func WrapError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// CodeOf extracts the error code from err, or the empty string for foreign errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
