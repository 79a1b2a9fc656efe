// Package ccerrors defines the error taxonomy the core control plane
// surfaces to its callers, as distinct from ad hoc wrapped errors returned
// by collaborators (repositories, the config store).
package ccerrors

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// Internal means an invariant was broken; a bug in the core itself.
	Internal Kind = iota
	// External means a collaborator's I/O failed (repository apply/snapshot,
	// config file write).
	External
	// NotFound means an unknown uid, device or channel was referenced.
	NotFound
	// UserError means caller-supplied input failed validation.
	UserError
)

func (k Kind) String() string {
	switch k {
	case Internal:
		return "internal"
	case External:
		return "external"
	case NotFound:
		return "not_found"
	case UserError:
		return "user_error"
	default:
		return "unknown"
	}
}

// Error is a classified error carrying a Kind alongside the usual chain.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind with a message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an Error of the given kind wrapping an underlying error.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err (or something it wraps) is classified as kind.
func Is(err error, kind Kind) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}
