// Package errors is the coded error type every layer returns and the HTTP
// edge renders. Import it as perr so it never shadows the standard library
package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine readable kind carried on the wire
type ErrorCode string

// Codes are part of the public API; never rename one
const (
	ErrorCodeUnknown      ErrorCode = "UNKNOWN"
	ErrorCodePanic        ErrorCode = "PANIC"
	ErrorCodeUnavailable  ErrorCode = "UNAVAILABLE"
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrorCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrorCodeValidation   ErrorCode = "VALIDATION"
	ErrorCodeJSON         ErrorCode = "BAD_JSON"
	ErrorCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrorCodeDuplicateKey ErrorCode = "DUPLICATE"
	ErrorCodeDB           ErrorCode = "DB"

	// ErrorCodeState rejects an operation the current lifecycle state forbids
	ErrorCodeState ErrorCode = "STATE"

	// ErrorCodeContention means a per key lock could not be taken in time
	ErrorCodeContention ErrorCode = "CONTENTION"

	// ErrorCodeInvariant is a broken internal invariant; operators must look
	ErrorCodeInvariant ErrorCode = "INVARIANT"
)

var statusOf = map[ErrorCode]int{
	ErrorCodeUnavailable:  http.StatusServiceUnavailable,
	ErrorCodeContention:   http.StatusServiceUnavailable,
	ErrorCodeUnauthorized: http.StatusUnauthorized,
	ErrorCodeForbidden:    http.StatusForbidden,
	ErrorCodeValidation:   http.StatusBadRequest,
	ErrorCodeJSON:         http.StatusBadRequest,
	ErrorCodeNotFound:     http.StatusNotFound,
	ErrorCodeDuplicateKey: http.StatusConflict,
	ErrorCodeState:        http.StatusConflict,
}

// Status maps c to an HTTP status; unmapped codes are 500
func (c ErrorCode) Status() int {
	if s, ok := statusOf[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// ErrNotFound is what store.One returns for an empty result
var ErrNotFound = New(ErrorCodeNotFound, "not found")

// Error carries a code, a message safe to show callers, an optional input
// field and the wrapped cause
type Error struct {
	code  ErrorCode
	msg   string
	field string
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

// Unwrap exposes the cause to errors.Is and errors.As
func (e *Error) Unwrap() error { return e.cause }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Field names the offending input, if any
func (e *Error) Field() string { return e.field }

// Wire is the rendered form. Message omits the cause
type Wire struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// ToWire renders e
func (e *Error) ToWire() Wire { return Wire{Code: e.code, Message: e.msg, Field: e.field} }

// WireFrom renders any error; foreign errors become UNKNOWN with their text
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	if e, ok := As(err); ok {
		return e.ToWire()
	}
	return Wire{Code: ErrorCodeUnknown, Message: err.Error()}
}

// As finds the outermost *Error in err's chain
func As(err error) (*Error, bool) {
	var e *Error
	ok := stderrs.As(err, &e)
	return e, ok
}

// CodeOf returns err's code, UNKNOWN for foreign errors
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err carries code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// HTTPStatus is CodeOf(err).Status()
func HTTPStatus(err error) int { return CodeOf(err).Status() }

// IsInvariant reports an invariant violation
func IsInvariant(err error) bool { return IsCode(err, ErrorCodeInvariant) }

// Retryable reports lock contention or a transient database failure
func Retryable(err error) bool {
	return IsCode(err, ErrorCodeContention) || transientDB(err)
}

// WithField returns a copy of err naming field. Foreign errors pass through
func WithField(err error, field string) error {
	e, ok := As(err)
	if !ok {
		return err
	}
	cp := *e
	cp.field = field
	return &cp
}

// New builds an error with a fixed message
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf builds an error with a formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap attaches code and msg to cause
func Wrap(cause error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, cause: cause}
}

// NotFoundf is Newf(ErrorCodeNotFound, ...)
func NotFoundf(format string, a ...any) error { return Newf(ErrorCodeNotFound, format, a...) }

// DuplicateKeyf is Newf(ErrorCodeDuplicateKey, ...)
func DuplicateKeyf(format string, a ...any) error { return Newf(ErrorCodeDuplicateKey, format, a...) }

// JSONErrf is Newf(ErrorCodeJSON, ...)
func JSONErrf(format string, a ...any) error { return Newf(ErrorCodeJSON, format, a...) }

// PanicErrf is Newf(ErrorCodePanic, ...)
func PanicErrf(format string, a ...any) error { return Newf(ErrorCodePanic, format, a...) }

// Unauthorizedf is Newf(ErrorCodeUnauthorized, ...)
func Unauthorizedf(format string, a ...any) error { return Newf(ErrorCodeUnauthorized, format, a...) }

// Forbiddenf is Newf(ErrorCodeForbidden, ...)
func Forbiddenf(format string, a ...any) error { return Newf(ErrorCodeForbidden, format, a...) }

// Validationf is Newf(ErrorCodeValidation, ...)
func Validationf(format string, a ...any) error { return Newf(ErrorCodeValidation, format, a...) }

// Statef is Newf(ErrorCodeState, ...)
func Statef(format string, a ...any) error { return Newf(ErrorCodeState, format, a...) }

// Contentionf is Newf(ErrorCodeContention, ...)
func Contentionf(format string, a ...any) error { return Newf(ErrorCodeContention, format, a...) }

// Invariantf is Newf(ErrorCodeInvariant, ...)
func Invariantf(format string, a ...any) error { return Newf(ErrorCodeInvariant, format, a...) }
