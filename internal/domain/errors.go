package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure: no infrastructure dependency.

var (
	ErrDestinationUnavailable = errors.New("destination unavailable")
	ErrSchemaCreation         = errors.New("schema creation failed")
	ErrIntegrityViolation     = errors.New("model integrity violation")
	ErrTransactionFailure     = errors.New("transaction failed")
	ErrUnsupportedOperation   = errors.New("operation not supported by this backend")

	// Snapshot document errors
	ErrInvalidSnapshot = errors.New("invalid model snapshot")
)

// PersistError is returned by every failed persistence step. Kind is one of
// the sentinels above, so errors.Is(err, ErrIntegrityViolation) works.
type PersistError struct {
	Kind error
	Op   string

	// PredicateID is -1 when the failure is not tied to a predicate.
	PredicateID int
	Predicate   string

	Err error
}

func (e *PersistError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.PredicateID >= 0 {
		fmt.Fprintf(&b, " (predicate %d %q)", e.PredicateID, e.Predicate)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *PersistError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewPersistError wraps err as a failure of the given kind.
func NewPersistError(kind error, op string, err error) *PersistError {
	return &PersistError{Kind: kind, Op: op, PredicateID: -1, Err: err}
}

// NewIntegrityError reports an input-model defect tied to one predicate.
func NewIntegrityError(op string, predicateID int, label string, err error) *PersistError {
	return &PersistError{
		Kind:        ErrIntegrityViolation,
		Op:          op,
		PredicateID: predicateID,
		Predicate:   label,
		Err:         err,
	}
}

// ErrorKind returns a stable short name for err's kind, used for metric labels
// and API responses.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDestinationUnavailable):
		return "destination_unavailable"
	case errors.Is(err, ErrSchemaCreation):
		return "schema_creation"
	case errors.Is(err, ErrIntegrityViolation):
		return "integrity_violation"
	case errors.Is(err, ErrTransactionFailure):
		return "transaction_failure"
	case errors.Is(err, ErrUnsupportedOperation):
		return "unsupported_operation"
	case errors.Is(err, ErrInvalidSnapshot):
		return "invalid_snapshot"
	default:
		return "unknown"
	}
}
