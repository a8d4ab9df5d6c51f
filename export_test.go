package objectfs

// This file is part of the package tests (package objectfs) and provides
// helpers that allow tests in the external package to access internal
// package constructs. Helpers are exported so `objectfs_test` can call them
// via the module import path.

// NewOperationError constructs an operation-wrapped error using package-internal constructor.
func NewOperationError(op string, path Path, cause error) error {
	return newOperationError(op, path, cause)
}

// NewArchiveError constructs an archive-wrapped error using package-internal constructor.
func NewArchiveError(path Path, cause error) error {
	return newArchiveError(path, cause)
}

// CollapseChild exposes the listing collapse rule.
func CollapseChild(prefix, key string, isDir bool) (name string, dir bool, ok bool) {
	return collapseChild(prefix, key, isDir)
}

// NewResource exposes the Resource constructor.
func NewResource(p Path, size int64) Resource {
	return newResource(p, size)
}
