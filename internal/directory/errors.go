package directory

import (
	"errors"
	"fmt"
)

// Kind classifies a directory failure by how the caller should react.
type Kind int

const (
	// KindNetwork covers unreachable backends and rejected requests.
	KindNetwork Kind = iota
	// KindValidation is raised before any request is made.
	KindValidation
	// KindAuth means the session is missing or no longer accepted.
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	default:
		return "network"
	}
}

// Error is returned by every Client and Directory operation. Callers can use
// errors.As to inspect it:
//
//	var dirErr *directory.Error
//	if errors.As(err, &dirErr) && dirErr.Kind == directory.KindAuth { ... }
type Error struct {
	Kind Kind
	// Op names the operation, e.g. "my-queries".
	Op string
	// Status is the HTTP status, zero when no response was received.
	Status int
	// Message is the server's message or error text, or the validation reason.
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("directory: %s: %s (%d): %s", e.Op, e.Kind, e.Status, e.Message)
	case e.Message != "":
		return fmt.Sprintf("directory: %s: %s: %s", e.Op, e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("directory: %s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("directory: %s: %s (%d)", e.Op, e.Kind, e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var dirErr *Error
	if errors.As(err, &dirErr) {
		return dirErr.Kind == kind
	}
	return false
}

// ErrMissingFields is the validation message for an incomplete submission.
const ErrMissingFields = "All fields are required"

func validationError(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}
