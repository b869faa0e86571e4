// Package errors carries the typed error model shared by services and the
// HTTP layer. A Code decides the status, retry hint and public message a
// client sees; the wrapped cause stays server-side.
package errors

import (
	stdErrors "errors"
	"net/http"
)

type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeAlreadyExists       Code = "ALREADY_EXISTS"
	CodeInvalidTransition   Code = "INVALID_TRANSITION"
	CodeExpired             Code = "OFFER_EXPIRED"
	CodeConcurrencyConflict Code = "CONCURRENCY_CONFLICT"
	CodeRateLimit           Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal            Code = "INTERNAL_ERROR"
	CodeDependency          Code = "DEPENDENCY_ERROR"
)

// Metadata is how a code is presented over HTTP.
type Metadata struct {
	HTTPStatus    int
	Retryable     bool
	PublicMessage string
	// DetailsAllowed exposes WithDetails data to the client.
	DetailsAllowed bool
}

const (
	retryable = 1 << iota
	detailed
)

func meta(status int, public string, flags int) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  public,
		Retryable:      flags&retryable != 0,
		DetailsAllowed: flags&detailed != 0,
	}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:          meta(http.StatusBadRequest, "validation failed", detailed),
	CodeUnauthorized:        meta(http.StatusUnauthorized, "authentication required", 0),
	CodeForbidden:           meta(http.StatusForbidden, "access denied", 0),
	CodeNotFound:            meta(http.StatusNotFound, "resource not found", 0),
	CodeConflict:            meta(http.StatusConflict, "conflict detected", 0),
	CodeAlreadyExists:       meta(http.StatusConflict, "resource already exists", detailed),
	CodeInvalidTransition:   meta(http.StatusUnprocessableEntity, "state transition disallowed", detailed),
	CodeExpired:             meta(http.StatusGone, "offer expired", detailed),
	CodeConcurrencyConflict: meta(http.StatusConflict, "resource changed concurrently", retryable),
	CodeRateLimit:           meta(http.StatusTooManyRequests, "rate limit exceeded", 0),
	CodeInternal:            meta(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:          meta(http.StatusServiceUnavailable, "dependency unavailable", retryable|detailed),
}

// MetadataFor treats unknown codes as internal errors.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded error. The zero of *Error reads as an internal error.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches a code and message to cause; a nil cause behaves like New.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{code: code, message: message, cause: cause}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets structured details, such as per-field validation
// messages, and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	text := string(e.code) + ": " + e.message
	if e.cause != nil {
		text += ": " + e.cause.Error()
	}
	return text
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
