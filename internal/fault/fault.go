// File: internal/fault/fault.go
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for reporting and for deciding how far it propagates.
type Kind string

const (
	// InputError means the record source could not be read or held no records.
	// It is the only kind that aborts a whole run.
	InputError Kind = "InputError"
	// ValidationError covers a blank required record field or a missing password.
	ValidationError Kind = "ValidationError"
	// FrameNotFound means frame discovery exhausted its attempts.
	FrameNotFound Kind = "FrameNotFound"
	// ElementTimeout means a required control never became visible.
	ElementTimeout Kind = "ElementTimeout"
	// CriticalError covers session and browser level failures, and anything unclassified.
	CriticalError Kind = "CriticalError"
)

// Error is a classified failure. Op names the step that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match when target is an *Error of the same kind whose Op is
// empty or equal, so errors.Is(err, &fault.Error{Kind: fault.ElementTimeout}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// New creates a classified error with a formatted message.
func New(kind Kind, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost classified error in the chain.
// Unclassified errors, including context cancellation, are CriticalError.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return CriticalError
}
