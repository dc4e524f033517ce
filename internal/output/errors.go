package output

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a structured error with code, message, and optional hint.
type Error struct {
	Code       string
	Message    string
	Hint       string
	HTTPStatus int
	Retryable  bool
	Cause      error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Hint)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *Error) ExitCode() int {
	return ExitCodeFor(e.Code)
}

// Error constructors for common cases.

func ErrUsage(msg string) *Error {
	return &Error{Code: CodeUsage, Message: msg}
}

func ErrUsageHint(msg, hint string) *Error {
	return &Error{Code: CodeUsage, Message: msg, Hint: hint}
}

func ErrNotFound(resource, identifier string) *Error {
	return &Error{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found: %s", resource, identifier),
		HTTPStatus: http.StatusNotFound,
	}
}

// ErrNetwork reports a request that produced no response at all.
func ErrNetwork(cause error) *Error {
	return &Error{
		Code:      CodeNetwork,
		Message:   "Network error",
		Hint:      cause.Error(),
		Retryable: true,
		Cause:     cause,
	}
}

// ErrHTTP reports a non-2xx response.
func ErrHTTP(status int, msg string) *Error {
	if msg == "" {
		msg = fmt.Sprintf("Request failed (HTTP %d)", status)
	}
	return &Error{
		Code:       CodeHTTP,
		Message:    msg,
		HTTPStatus: status,
		Retryable:  status >= http.StatusInternalServerError,
	}
}

// ErrFormat reports a 2xx response that is not the JSON document expected.
func ErrFormat(contentType string, cause error) *Error {
	e := &Error{
		Code:    CodeFormat,
		Message: "Unexpected response format",
		Cause:   cause,
	}
	switch {
	case contentType != "" && cause == nil:
		e.Hint = "content-type " + contentType
	case cause != nil:
		e.Hint = cause.Error()
	}
	return e
}

// ErrApplication reports a failure signalled inside a 2xx body.
func ErrApplication(msg string) *Error {
	if msg == "" {
		msg = "Request was not successful"
	}
	return &Error{Code: CodeApplication, Message: msg}
}

// AsError attempts to convert an error to an *Error.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{
		Code:    CodeHTTP,
		Message: err.Error(),
		Cause:   err,
	}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus
	}
	return 0
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
