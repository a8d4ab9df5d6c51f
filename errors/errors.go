package errors

import (
	"errors"
)

var (
	ErrInvalidPath        = errors.New("invalid path")
	ErrNamespaceViolation = errors.New("namespace violation")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrOperationFailed    = errors.New("operation failed")
	ErrArchiveFailed      = errors.New("archive failed")
)

type wrapError struct {
	underlying error
	msg        string
	cause      error
}

var _ error = (*wrapError)(nil)

// NewOperationError wraps a failure of the object store while performing op on path.
func NewOperationError(op, path string, cause error) error {
	return &wrapError{
		underlying: ErrOperationFailed,
		msg:        op + " '" + path + "'",
		cause:      cause,
	}
}

// NewArchiveError wraps a failure that aborted the archive of path.
func NewArchiveError(path string, cause error) error {
	return &wrapError{
		underlying: ErrArchiveFailed,
		msg:        "archive '" + path + "'",
		cause:      cause,
	}
}

func (err *wrapError) Error() string {
	if err == nil {
		return "(*wrapError)(nil)"
	}
	message := err.underlying.Error() + ": " + err.msg
	if err.cause != nil {
		message += ": " + err.cause.Error()
	}
	return message
}

func (err *wrapError) Unwrap() []error {
	if err.cause == nil {
		return []error{err.underlying}
	}
	return []error{err.underlying, err.cause}
}

// Category is the stable class of an error, independent of its message.
type Category int

const (
	CategoryInternal Category = iota
	CategoryInvalid
	CategoryNotFound
	CategoryConflict
)

func (c Category) String() string {
	switch c {
	case CategoryInvalid:
		return "invalid"
	case CategoryNotFound:
		return "not-found"
	case CategoryConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// CategoryOf classifies err.
// Domain kinds take precedence over ErrOperationFailed so that a not-found
// cause wrapped by a store failure is still reported as not-found.
func CategoryOf(err error) Category {
	switch {
	case err == nil:
		return CategoryInternal
	case errors.Is(err, ErrInvalidPath):
		return CategoryInvalid
	case errors.Is(err, ErrAlreadyExists):
		return CategoryConflict
	case errors.Is(err, ErrNotFound):
		return CategoryNotFound
	default:
		return CategoryInternal
	}
}
