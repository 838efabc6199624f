// Package fault holds the error taxonomy shared by the engine's components
// and its mapping onto HTTP responses.
package fault

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/appetiteclub/apt"
)

type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindNotFound     Kind = "not_found"
	KindUnavailable  Kind = "unavailable"
	KindConflict     Kind = "conflict"
	KindForbidden    Kind = "forbidden"
)

// Error is a caller-correctable failure. Details carry per-field context,
// such as the shortfall of a split payment.
type Error struct {
	Kind    Kind
	Message string
	Details []apt.ValidationError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail appends a detail entry and returns the same error.
func (e *Error) WithDetail(field, code, message string) *Error {
	e.Details = append(e.Details, apt.ValidationError{Field: field, Code: code, Message: message})
	return e
}

// Wrap attaches a cause that callers can reach with errors.As.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func InvalidInput(format string, args ...any) *Error {
	return newError(KindInvalidInput, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func Unavailable(format string, args ...any) *Error {
	return newError(KindUnavailable, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newError(KindForbidden, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Status maps a kind onto its HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case KindInvalidInput, KindUnavailable:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err using the apt error envelope. Errors outside the
// taxonomy are logged and reported as a generic 500.
func Respond(w http.ResponseWriter, log apt.Logger, err error) {
	var fe *Error
	if errors.As(err, &fe) {
		log.Debug("request failed", "kind", string(fe.Kind), "error", err)
		apt.Error(w, Status(fe.Kind), string(fe.Kind), fe.Message, fe.Details...)
		return
	}
	log.Error("request failed", "error", err)
	apt.RespondError(w, http.StatusInternalServerError, "Internal error")
}
