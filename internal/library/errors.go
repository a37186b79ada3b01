package library

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input: a blank name, an out-of-range rating, a missing owner.
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks a uniqueness violation.
	ErrConflict = errors.New("conflict")
	// ErrNotFound marks an unknown playlist or item. Playlists owned by someone else are reported the same way.
	ErrNotFound = errors.New("not found")
	// ErrStorage marks a persistence failure. The mutation that hit it was not applied.
	ErrStorage = errors.New("storage failure")
)

// Error describes a failed store operation. Kind is one of the sentinels above
// and Err, when set, is the underlying cause.
type Error struct {
	Op   string
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

// Unwrap lets errors.Is match both the kind and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Message returns the client-safe description of err. Storage causes are
// never included.
func Message(err error) string {
	var le *Error
	if !errors.As(err, &le) {
		return ""
	}
	if le.Msg != "" {
		return le.Msg
	}
	return le.Kind.Error()
}

func validationError(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func conflictError(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

func notFoundError(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

func storageError(op, stage string, err error) error {
	return &Error{Op: op, Kind: ErrStorage, Msg: "storage unavailable", Err: fmt.Errorf("%s: %w", stage, err)}
}
