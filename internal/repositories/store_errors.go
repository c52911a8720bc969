package repositories

import "fmt"

// StoreErrorKind classifies failures raised by in-process stores.
type StoreErrorKind string

const (
	StoreErrorNotFound    StoreErrorKind = "not_found"
	StoreErrorConflict    StoreErrorKind = "conflict"
	StoreErrorUnavailable StoreErrorKind = "unavailable"
	StoreErrorReadOnly    StoreErrorKind = "read_only"
)

// StoreError implements RepositoryError for stores that are not backed by a database driver.
type StoreError struct {
	Op   string
	Kind StoreErrorKind
	Err  error
}

var _ RepositoryError = (*StoreError)(nil)

// NewStoreError constructs a typed store error.
func NewStoreError(op string, kind StoreErrorKind, err error) *StoreError {
	return &StoreError{Op: op, Kind: kind, Err: err}
}

func (e *StoreError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *StoreError) IsNotFound() bool { return e != nil && e.Kind == StoreErrorNotFound }

func (e *StoreError) IsConflict() bool { return e != nil && e.Kind == StoreErrorConflict }

// IsUnavailable treats writes against a read-only store as unavailable so callers surface 503.
func (e *StoreError) IsUnavailable() bool {
	return e != nil && (e.Kind == StoreErrorUnavailable || e.Kind == StoreErrorReadOnly)
}
