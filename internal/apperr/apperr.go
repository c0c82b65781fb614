// Package apperr is the error taxonomy shared by the forecast pipeline,
// inventory reservation and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure
type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindRegeneration      Kind = "REGENERATION"
	KindModelExecution    Kind = "MODEL_EXECUTION"
	KindModelOutput       Kind = "MODEL_OUTPUT"
	KindInterpretation    Kind = "INTERPRETATION"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindNotFound          Kind = "NOT_FOUND"
	KindAuthorization     Kind = "AUTHORIZATION"
	KindInternal          Kind = "INTERNAL"
)

// Error is a typed, user-facing failure.
// Message is safe to show to callers; Detail carries diagnostics
// (captured stderr, raw payloads, tracebacks).
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: k}) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// HTTPStatus maps the kind to a response status
func (e *Error) HTTPStatus() int {
	return StatusOf(e.Kind)
}

// WithDetail returns a copy carrying diagnostic text
func (e *Error) WithDetail(detail string) *Error {
	c := *e
	c.Detail = detail
	return &c
}

// StatusOf maps a kind to an HTTP status code
func StatusOf(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindRegeneration, KindModelExecution, KindModelOutput, KindInterpretation:
		return http.StatusBadGateway
	case KindInsufficientStock:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around cause
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// As extracts the first *Error in err's chain
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for untyped errors
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Constructors used across the pipeline.

func Validation(message string) *Error {
	return New(KindValidation, message)
}

// NoData is the validation failure for a request missing its required inputs
func NoData(what string) *Error {
	return New(KindValidation, "no data provided: "+what)
}

func Regeneration(detail string, cause error) *Error {
	return &Error{Kind: KindRegeneration, Message: "dataset regeneration failed", Detail: detail, Cause: cause}
}

func ModelExecution(detail string, cause error) *Error {
	return &Error{Kind: KindModelExecution, Message: "external computation failed", Detail: detail, Cause: cause}
}

func ModelOutput(detail string, cause error) *Error {
	return &Error{Kind: KindModelOutput, Message: "external computation returned unreadable output", Detail: detail, Cause: cause}
}

func Interpretation(detail string, cause error) *Error {
	return &Error{Kind: KindInterpretation, Message: "interpretation service failed", Detail: detail, Cause: cause}
}

// InsufficientStock names the product that could not be reserved
func InsufficientStock(product string, requested, available int) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Message: "insufficient stock for " + product,
		Detail:  fmt.Sprintf("requested %d, available %d", requested, available),
	}
}

func NotFound(what, id string) *Error {
	return New(KindNotFound, fmt.Sprintf("%s %s not found", what, id))
}

func Authorization(message string) *Error {
	return New(KindAuthorization, message)
}

func Internal(message string, cause error) *Error {
	return Wrap(KindInternal, message, cause)
}

// Body is the JSON error response shape
type Body struct {
	Error  string `json:"error"`
	Kind   Kind   `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// ToBody renders err for an HTTP response. Untyped errors hide their text.
func ToBody(err error) (int, Body) {
	if e, ok := As(err); ok {
		return e.HTTPStatus(), Body{Error: e.Message, Kind: e.Kind, Detail: e.Detail}
	}
	return http.StatusInternalServerError, Body{Error: "internal server error", Kind: KindInternal}
}
