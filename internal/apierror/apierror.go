// Package apierror provides the response envelope and the error taxonomy shared
// by services and handlers. Services return *Error values; handlers translate
// them to HTTP status codes so internal details never reach clients.
package apierror

import (
	"errors"
	"net/http"
)

// Kind classifies a domain error.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindInvalidState      Kind = "invalid_state"
	KindInsufficientStock Kind = "insufficient_stock"
)

// Error is a classified, client-safe error.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string { return e.Message }

func newErr(k Kind, msg string) *Error { return &Error{Kind: k, Message: msg} }

func Validation(msg string) *Error        { return newErr(KindValidation, msg) }
func Unauthorized(msg string) *Error      { return newErr(KindUnauthorized, msg) }
func Forbidden(msg string) *Error         { return newErr(KindForbidden, msg) }
func NotFound(msg string) *Error          { return newErr(KindNotFound, msg) }
func InvalidState(msg string) *Error      { return newErr(KindInvalidState, msg) }
func InsufficientStock(msg string) *Error { return newErr(KindInsufficientStock, msg) }

// FieldErrors builds a validation error carrying per-field rule failures.
func FieldErrors(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

// KindOf extracts the Kind of err, if err is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err is an *Error of kind k.
func Is(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

// Status maps a Kind to its HTTP status code.
func Status(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState, KindInsufficientStock:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Response is the canonical envelope for every REST response.
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// New builds a failure envelope.
func New(msg string) Response {
	return Response{Success: false, Message: msg}
}

// NewValidation builds a failure envelope listing field errors.
func NewValidation(fields map[string]string) Response {
	return Response{Success: false, Message: "validation failed", Fields: fields}
}

// OK builds a success envelope.
func OK(data any) Response {
	return Response{Success: true, Data: data}
}
