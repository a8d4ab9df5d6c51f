// Package objectfsmust wraps the objectfs package with panic-based error handling.
//
// It provides the same per-user file tree operations as the root-level objectfs
// package, but instead of returning errors, all exported methods panic on failure.
// It is meant for scripts, examples and tests where any failure is fatal.
package objectfsmust

import (
	"context"
	"io"

	objectfs "github.com/Jumpaku/go-objectfs"
)

// FS provides the directory and resource operations of an objectfs.FS for a single user.
//
// All methods of FS panic on error instead of returning an error value.
type FS struct {
	fs   *objectfs.FS
	user objectfs.UserID
}

// New creates a new FS operating on the tree of user.
func New(fs *objectfs.FS, user objectfs.UserID) *FS {
	return &FS{fs: fs, user: user}
}

// Mkdir creates the directory at path and returns its Resource.
//
// It panics if the directory already exists (the underlying error would be ErrAlreadyExists)
// or if path is invalid or the root.
func (s *FS) Mkdir(ctx context.Context, path string) (resource objectfs.Resource) {
	return must1(s.fs.Directory.Create(ctx, s.user, path))
}

// ReadDir returns the immediate children of the directory at path.
//
// It panics if listing fails, including if the directory does not exist
// (the underlying error would be ErrNotFound).
func (s *FS) ReadDir(ctx context.Context, path string) (children []objectfs.Resource) {
	return must1(s.fs.Directory.List(ctx, s.user, path))
}

// Exists reports whether the directory at path holds at least one object.
//
// It panics if path is invalid or the object store cannot be listed.
func (s *FS) Exists(ctx context.Context, path string) (found bool) {
	return must1(s.fs.Directory.Exists(ctx, s.user, path))
}

// Info returns the Resource of the file or directory at path.
//
// It panics if the resource does not exist (the underlying error would be ErrNotFound).
func (s *FS) Info(ctx context.Context, path string) (resource objectfs.Resource) {
	return must1(s.fs.Resource.Info(ctx, s.user, path))
}

// Upload stores files below the directory dir and returns their Resources.
//
// It panics on the first file that cannot be stored. Files stored before the failure are kept.
func (s *FS) Upload(ctx context.Context, dir string, files ...objectfs.FilePart) (resources []objectfs.Resource) {
	return must1(s.fs.Resource.Upload(ctx, s.user, dir, files))
}

// ReadFile reads the entire contents of the file at path.
//
// It panics if reading fails, including if the file does not exist.
func (s *FS) ReadFile(ctx context.Context, path string) (data []byte) {
	r, _ := must2(s.fs.Resource.Open(ctx, s.user, path))
	defer r.Close()
	return must1(io.ReadAll(r))
}

// Move moves the file or directory at from to to and returns the Resource at the destination.
//
// It panics if the move fails, including if the destination already exists
// (the underlying error would be ErrAlreadyExists).
func (s *FS) Move(ctx context.Context, from, to string) (resource objectfs.Resource) {
	return must1(s.fs.Resource.Move(ctx, s.user, from, to))
}

// Remove deletes the file or the whole directory at path. Removing a missing resource does nothing.
//
// It panics if deletion fails.
func (s *FS) Remove(ctx context.Context, path string) {
	must0(s.fs.Resource.Delete(ctx, s.user, path))
}

// Search returns every resource whose path contains query, ignoring case.
//
// It panics if query is blank or denotes a directory.
func (s *FS) Search(ctx context.Context, query string) (results []objectfs.Resource) {
	return must1(s.fs.Resource.Search(ctx, s.user, query))
}

// Download writes the file at path to w, or the directory at path as a ZIP archive.
//
// It panics if the download fails. Bytes already written to w are not a valid archive in that case.
func (s *FS) Download(ctx context.Context, path string, w io.Writer) {
	must0(s.fs.Resource.Download(ctx, s.user, path, w))
}
