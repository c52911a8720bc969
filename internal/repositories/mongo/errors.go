package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/voltmart/storefront/internal/repositories"
)

// Error implements repositories.RepositoryError for MongoDB failures.
type Error struct {
	op          string
	err         error
	notFound    bool
	conflict    bool
	unavailable bool
}

var _ repositories.RepositoryError = (*Error)(nil)

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

func (e *Error) IsNotFound() bool    { return e != nil && e.notFound }
func (e *Error) IsConflict() bool    { return e != nil && e.conflict }
func (e *Error) IsUnavailable() bool { return e != nil && e.unavailable }

func notFound(op string) error {
	return &Error{op: op, err: mongo.ErrNoDocuments, notFound: true}
}

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	wrapped := &Error{op: op, err: err}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		wrapped.notFound = true
	case mongo.IsDuplicateKeyError(err):
		wrapped.conflict = true
	case mongo.IsTimeout(err), mongo.IsNetworkError(err), errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, mongo.ErrClientDisconnected), isServerSelectionError(err):
		wrapped.unavailable = true
	}
	return wrapped
}

func isServerSelectionError(err error) bool {
	return strings.Contains(err.Error(), "server selection error")
}

// duplicateOn reports whether a duplicate key error was raised by the named index.
func duplicateOn(err error, index string) bool {
	if !mongo.IsDuplicateKeyError(err) {
		return false
	}
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		for _, we := range writeErr.WriteErrors {
			if strings.Contains(we.Message, index) {
				return true
			}
		}
		return false
	}
	return strings.Contains(err.Error(), index)
}
