// Package apperror defines the error kinds shared by the claim, report and
// billing domains, and their mapping onto HTTP status codes.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// Kind classifies a domain failure.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindOverlapViolation  Kind = "overlap_violation"
	KindInvalidRange      Kind = "invalid_range"
	KindInvalidClaimState Kind = "invalid_claim_state"
	KindReferenceError    Kind = "reference_error"
	KindInvalid           Kind = "invalid"
)

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrOverlapViolation  = &Error{Kind: KindOverlapViolation, Message: "dos range overlaps an existing report"}
	ErrInvalidRange      = &Error{Kind: KindInvalidRange, Message: "dos end is before dos start"}
	ErrInvalidClaimState = &Error{Kind: KindInvalidClaimState, Message: "operation not allowed in current claim state"}
	ErrReferenceError    = &Error{Kind: KindReferenceError, Message: "unknown catalog reference"}
	ErrInvalid           = &Error{Kind: KindInvalid, Message: "invalid input"}
)

// Error is a classified domain error. Reason carries a machine-readable
// detail such as "end_before_start" or "overlaps_report".
type Error struct {
	Kind      Kind
	Message   string
	Reason    string
	ReportIDs []uuid.UUID
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Reason)
	}
	return e.Message
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound is shorthand for a KindNotFound error naming the missing entity.
func NotFound(entity string, id uuid.UUID) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// KindOf returns the kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps an error onto the status code handlers should answer with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindOverlapViolation:
		return http.StatusConflict
	case KindInvalidRange, KindReferenceError, KindInvalid:
		return http.StatusUnprocessableEntity
	case KindInvalidClaimState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
