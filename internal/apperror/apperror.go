// Package apperror classifies failures of the provisioning subsystem so callers can decide how to surface them
// without string matching.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	// KindValidation marks malformed or missing input. Not retryable.
	KindValidation Kind = "validation"
	// KindConflict marks an identifier collision that could not be resolved.
	KindConflict Kind = "conflict"
	KindNotFound Kind = "not_found"
	// KindState marks an operation requested on a record that is not in the required status.
	KindState Kind = "state"
	// KindDependency marks a failed collaborator call. See Error.Fatal.
	KindDependency Kind = "dependency"
)

// Error carries a Kind along with a human-readable message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
	// Fatal is only meaningful for KindDependency: fatal failures abort a workflow, non-fatal ones are reported as
	// warnings.
	Fatal bool
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes sentinel *Error values comparable by kind and message, so a wrapped copy still matches.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Msg == t.Msg && t.Err == nil
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(msg string, err error) *Error {
	return &Error{Kind: KindConflict, Msg: msg, Err: err}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

func State(msg string) *Error {
	return &Error{Kind: KindState, Msg: msg}
}

func FatalDependency(msg string, err error) *Error {
	return &Error{Kind: KindDependency, Msg: msg, Err: err, Fatal: true}
}

func Dependency(msg string, err error) *Error {
	return &Error{Kind: KindDependency, Msg: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or an empty Kind when there is none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsFatal reports whether err should abort a multi-step workflow. Errors that carry no Kind are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var appErr *Error
	if !errors.As(err, &appErr) {
		return true
	}
	if appErr.Kind == KindDependency {
		return appErr.Fatal
	}
	return true
}
