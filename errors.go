package objectfs

import (
	fserrors "github.com/Jumpaku/go-objectfs/errors"
)

var (
	ErrInvalidPath        = fserrors.ErrInvalidPath
	ErrNamespaceViolation = fserrors.ErrNamespaceViolation
	ErrNotFound           = fserrors.ErrNotFound
	ErrAlreadyExists      = fserrors.ErrAlreadyExists
	ErrOperationFailed    = fserrors.ErrOperationFailed
	ErrArchiveFailed      = fserrors.ErrArchiveFailed
)

func newOperationError(op string, path Path, cause error) error {
	return fserrors.NewOperationError(op, string(path), cause)
}

func newArchiveError(path Path, cause error) error {
	return fserrors.NewArchiveError(string(path), cause)
}
