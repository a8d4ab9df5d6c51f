package objectfs

import (
	"io"
	"io/fs"
)

// UserFile implements fs.File for a file of a UserFS. Content is streamed from the object store.
type UserFile struct {
	resource Resource
	body     io.ReadCloser
}

// Verify interface implementation at compile time.
var _ fs.File = (*UserFile)(nil)

// Stat returns the file info.
func (f *UserFile) Stat() (fs.FileInfo, error) {
	return &UserFileInfo{resource: f.resource}, nil
}

// Read reads from the file.
func (f *UserFile) Read(b []byte) (int, error) {
	return f.body.Read(b)
}

// Close releases the underlying object stream.
func (f *UserFile) Close() error {
	return f.body.Close()
}
