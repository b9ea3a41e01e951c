// Package errkind classifies core errors into the taxonomy the indexing
// and retrieval pipeline reacts to: transient vs permanent externals,
// per-file data problems, cross-store consistency violations, resource
// pressure, and programmer errors.
package errkind

import (
	"errors"
	"fmt"
)

// Kind is a taxonomy tag, not a concrete error type. Callers compare with
// errors.Is against the sentinel of the matching Kind.
type Kind int

const (
	// Unknown is the zero value; Of returns it for any error that was never passed to Wrap.
	Unknown Kind = iota
	// TransientExternal covers network timeouts, store rate-limits, embedder 5xx.
	TransientExternal
	// PermanentExternal covers auth failure, schema incompatibility, missing namespace.
	PermanentExternal
	// DataFormat covers unreadable bytes, parser crashes, invalid embedding dimension.
	DataFormat
	// ConsistencyViolation covers a dual-store write where one side succeeded and the other failed.
	ConsistencyViolation
	// ResourcePressure covers memory/error threshold trips.
	ResourcePressure
	// ProgrammerError covers invalid input to a port (e.g. empty id).
	ProgrammerError
)

func (k Kind) String() string {
	switch k {
	case TransientExternal:
		return "transient_external"
	case PermanentExternal:
		return "permanent_external"
	case DataFormat:
		return "data_format"
	case ConsistencyViolation:
		return "consistency_violation"
	case ProgrammerError:
		return "programmer_error"
	case ResourcePressure:
		return "resource_pressure"
	default:
		return "unknown"
	}
}

// kindError wraps a cause with its classification and participates in
// errors.Is/As/Unwrap so callers never lose the original error.
type kindError struct {
	kind  Kind
	cause error
}

func (e *kindError) Error() string {
	if e.cause == nil {
		return e.kind.String()
	}
	return fmt.Sprintf("%s: %s", e.kind, e.cause)
}

func (e *kindError) Unwrap() error { return e.cause }

// Is implements errors.Is matching against one of the sentinel Kind values below.
func (e *kindError) Is(target error) bool {
	t, ok := target.(*kindError)
	if !ok {
		return false
	}
	return t.cause == nil && t.kind == e.kind
}

// sentinel returns the comparison target used by Is(err, IsX) style checks.
func sentinel(k Kind) error { return &kindError{kind: k} }

var (
	// ErrTransientExternal is the comparison target for TransientExternal-classified errors.
	ErrTransientExternal = sentinel(TransientExternal)
	// ErrPermanentExternal is the comparison target for PermanentExternal-classified errors.
	ErrPermanentExternal = sentinel(PermanentExternal)
	// ErrDataFormat is the comparison target for DataFormat-classified errors.
	ErrDataFormat = sentinel(DataFormat)
	// ErrConsistencyViolation is the comparison target for ConsistencyViolation-classified errors.
	ErrConsistencyViolation = sentinel(ConsistencyViolation)
	// ErrResourcePressure is the comparison target for ResourcePressure-classified errors.
	ErrResourcePressure = sentinel(ResourcePressure)
	// ErrProgrammerError is the comparison target for ProgrammerError-classified errors.
	ErrProgrammerError = sentinel(ProgrammerError)
)

// Wrap classifies cause under kind while preserving it for errors.Unwrap/As.
func Wrap(kind Kind, cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return &kindError{kind: kind, cause: fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), cause)}
}

// Of reports the Kind an error was Wrap-ed with, or Unknown if it was never classified.
func Of(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return Unknown
}

// IsTransient reports whether err is classified TransientExternal anywhere in its chain.
func IsTransient(err error) bool { return Of(err) == TransientExternal }

// IsFatal reports whether err is classified PermanentExternal anywhere in its chain.
func IsFatal(err error) bool { return Of(err) == PermanentExternal }
