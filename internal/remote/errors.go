package remote

import (
	"errors"
	"fmt"
)

// Class buckets a remote failure for retry decisions.
type Class int

const (
	// ClassTransient covers network failures, rate limits and server-side
	// errors. Safe to retry the identical request.
	ClassTransient Class = iota
	// ClassPermanent covers failures tied to the request itself (bad
	// parameter, missing object). Retrying cannot help.
	ClassPermanent
	// ClassBenign covers semantic no-ops the service reports as errors,
	// e.g. adding an item to a collection it is already in. Callers treat
	// these as success.
	ClassBenign
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	case ClassBenign:
		return "benign"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Error is the uniform failure shape every Service operation surfaces.
type Error struct {
	Op      string // operation name, e.g. "search", "collection.add"
	Code    int    // service error code, 0 when the service supplied none
	Message string
	Class   Class
	Err     error // underlying cause, if any
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (code %d, %s)", e.Op, e.Message, e.Code, e.Class)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Class)
	}
	return fmt.Sprintf("%s: remote error (%s)", e.Op, e.Class)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrAlreadyMember reports that an item was already in the target collection.
// Always ClassBenign; the reconciler counts it as success.
var ErrAlreadyMember = &Error{Op: "collection.add", Message: "item already in collection", Class: ClassBenign}

// Is lets errors.Is match any benign duplicate-membership error against
// ErrAlreadyMember regardless of the exact code or message the service used.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t == ErrAlreadyMember {
		return e.Class == ClassBenign
	}
	return e.Op == t.Op && e.Code == t.Code && e.Class == t.Class
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Class == ClassTransient
	}
	// Unclassified errors are treated as transient: the services this tool
	// talks to report permanent failures with explicit codes, while plain
	// transport errors arrive untyped.
	return err != nil
}

// IsBenign reports whether err is a semantic no-op to be counted as success.
func IsBenign(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Class == ClassBenign
	}
	return false
}

// IsPermanent reports whether err can never succeed on retry.
func IsPermanent(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Class == ClassPermanent
	}
	return false
}
