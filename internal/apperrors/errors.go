// Package apperrors defines the terminal error kinds of the intake pipeline
// and their mapping onto HTTP status codes and wire error codes.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindValidationFailed
	KindForbidden
	KindRateLimited
	KindStorageFailed
)

// Wire error codes understood by the sender.
const (
	CodeInvalidUserAgent   = "invalid_user_agent"
	CodeInvalidRequestBody = "invalid_request_body"
	CodeValidationFailed   = "validation_failed"
	CodeForbidden          = "rest_forbidden"
	CodeRateLimitExceeded  = "rate_limit_exceeded"
	CodeSubmissionFailed   = "submission_failed"
	CodeInternal           = "internal_error"
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindValidationFailed:
		return "validation_failed"
	case KindForbidden:
		return "forbidden"
	case KindRateLimited:
		return "rate_limited"
	case KindStorageFailed:
		return "storage_failed"
	default:
		return "internal"
	}
}

// Status returns the HTTP status for the kind.
func (k Kind) Status() int {
	switch k {
	case KindBadRequest, KindValidationFailed:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a structured pipeline error. Message is safe to show to the
// sender; Cause is for logs only.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s[%s]: %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Status returns the HTTP status for the error.
func (e *Error) Status() int {
	return e.Kind.Status()
}

// NewBadRequest reports malformed transport metadata or an unreadable body.
func NewBadRequest(code, message string) *Error {
	return &Error{Kind: KindBadRequest, Code: code, Message: message}
}

// NewValidationFailed carries every failing field at once.
func NewValidationFailed(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidationFailed, Code: CodeValidationFailed, Message: message, Fields: fields}
}

func NewForbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: CodeForbidden, Message: message}
}

func NewRateLimited(message string) *Error {
	return &Error{Kind: KindRateLimited, Code: CodeRateLimitExceeded, Message: message}
}

func NewStorageFailed(message string, cause error) *Error {
	return &Error{Kind: KindStorageFailed, Code: CodeSubmissionFailed, Message: message, Cause: cause}
}

func NewInternal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: message, Cause: cause}
}

// As extracts an *Error from err. Anything else is reported as internal.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternal(http.StatusText(http.StatusInternalServerError), err)
}
