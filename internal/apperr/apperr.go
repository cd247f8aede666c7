package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of failure classifications the HTTP boundary
// knows how to render. Anything outside the set maps to KindForbidden.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindForbidden
)

// FieldError is one violated rule, named by the JSON field it applies to.
// Failures that are not tied to a single field leave Field empty.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Error is a tagged failure result carried through handler return values.
// It replaces ad-hoc error shapes with one kind plus a field/message payload.
type Error struct {
	Kind   Kind
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))

	for _, f := range e.Fields {
		if f.Field != "" {
			msgs = append(msgs, f.Field+": "+f.Message)
			continue
		}
		msgs = append(msgs, f.Message)
	}

	return fmt.Sprintf("apperr(kind=%d): %s", e.Kind, strings.Join(msgs, ", "))
}

// Validation builds a KindValidation error from field/message pairs.
func Validation(fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Fields: fields}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Fields: []FieldError{{Message: message}}}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Fields: []FieldError{{Message: message}}}
}

// KindOf classifies an arbitrary error. Errors that are not a tagged
// *Error fall through to KindForbidden, matching the boundary contract.
func KindOf(err error) Kind {
	var e *Error

	if errors.As(err, &e) {
		return e.Kind
	}

	return KindForbidden
}

// FieldsOf returns the payload for a tagged error, or a single generic
// entry so the boundary never leaks internals from unexpected errors.
func FieldsOf(err error) []FieldError {
	var e *Error

	if errors.As(err, &e) && len(e.Fields) > 0 {
		return e.Fields
	}

	return []FieldError{{Message: "The request could not be completed."}}
}
