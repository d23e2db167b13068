package common

import "errors"

// Error codes for the three failure classes a terminal operation can hit.
const (
	CodeValidation     = "VALIDATION"
	CodeRemoteRejected = "REMOTE_REJECTED"
	CodeTransport      = "TRANSPORT"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// ValidationError reports a local validation failure. The operation is
// aborted before any network call.
func ValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

// RemoteError wraps a structured rejection from the backend. Details
// carries the server's error list verbatim so the terminal can display it.
func RemoteError(status int, message string, details any) *AppError {
	return &AppError{Code: CodeRemoteRejected, Message: message, HTTPStatus: status, Details: details}
}

// TransportError wraps a network-level failure. The operation is
// considered not completed and no local state was mutated.
func TransportError(err error) *AppError {
	return &AppError{Code: CodeTransport, Message: "request failed, please try again", Err: err}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// CodeOf extracts the error class, or empty string for non-app errors.
func CodeOf(err error) string {
	var target *AppError
	if errors.As(err, &target) {
		return target.Code
	}
	return ""
}
