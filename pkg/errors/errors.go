package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType classifies failures of a crawl run
type ErrorType string

const (
	ErrorTypeConfiguration  ErrorType = "configuration"
	ErrorTypePrecondition   ErrorType = "precondition"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeTransport      ErrorType = "transport"
	ErrorTypeMalformedCache ErrorType = "malformed_cache"
	ErrorTypeUnknown        ErrorType = "unknown"
)

// Sentinels for errors.Is matching. Any *Error of the same type matches.
var (
	ErrConfiguration  = &Error{Type: ErrorTypeConfiguration, Message: "invalid configuration"}
	ErrPrecondition   = &Error{Type: ErrorTypePrecondition, Message: "precondition failed"}
	ErrRateLimit      = &Error{Type: ErrorTypeRateLimit, Message: "rate limit reached"}
	ErrTransport      = &Error{Type: ErrorTypeTransport, Message: "transport failure"}
	ErrMalformedCache = &Error{Type: ErrorTypeMalformedCache, Message: "malformed cache"}
)

// Error is a typed failure with an optional HTTP status code and cause
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Type, e.Message)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// New creates a typed error
func New(errType ErrorType, message string) *Error {
	return &Error{Type: errType, Message: message}
}

// Wrap creates a typed error around a cause
func Wrap(errType ErrorType, err error, message string) *Error {
	return &Error{Type: errType, Message: message, Err: err}
}

// Configuration reports missing or invalid inputs
func Configuration(format string, args ...interface{}) *Error {
	return New(ErrorTypeConfiguration, fmt.Sprintf(format, args...))
}

// Precondition reports a stage started before its input exists
func Precondition(format string, args ...interface{}) *Error {
	return New(ErrorTypePrecondition, fmt.Sprintf(format, args...))
}

// MalformedCache reports a persisted value that could not be parsed
func MalformedCache(err error, format string, args ...interface{}) *Error {
	return Wrap(ErrorTypeMalformedCache, err, fmt.Sprintf(format, args...))
}

// RateLimitError is returned when the API reports an exhausted quota.
// It is fatal for the current run; ResetAt tells the caller when to retry.
type RateLimitError struct {
	ResetAt       time.Time
	Authenticated bool
	Err           error
}

func (e *RateLimitError) Error() string {
	msg := "rate limit reached"
	if !e.ResetAt.IsZero() {
		msg = fmt.Sprintf("rate limit reached, resets at %s", e.ResetAt.Local().Format(time.RFC1123))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimit
}

// TypeOf returns the ErrorType of the first typed error in err's chain
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	var rl *RateLimitError
	if stderrors.As(err, &rl) {
		return ErrorTypeRateLimit
	}
	for _, sentinel := range []*Error{ErrConfiguration, ErrPrecondition, ErrTransport, ErrMalformedCache} {
		if stderrors.Is(err, sentinel) {
			return sentinel.Type
		}
	}
	return ErrorTypeUnknown
}

// IsRecoverable reports whether the error can be handled locally without
// aborting the run. Only malformed cache values qualify.
func IsRecoverable(err error) bool {
	return TypeOf(err) == ErrorTypeMalformedCache
}
