package objectfs

import (
	"io"
	"io/fs"
	"sync"
)

// UserDir implements fs.File and fs.ReadDirFile for a directory of a UserFS.
// UserDir's ReadDir method is protected by a mutex for concurrent use.
type UserDir struct {
	resource Resource
	entries  []fs.DirEntry
	offset   int
	mu       sync.Mutex
}

// Verify interface implementations at compile time.
var _ fs.ReadDirFile = (*UserDir)(nil)

// Stat returns the directory info.
func (d *UserDir) Stat() (fs.FileInfo, error) {
	return &UserFileInfo{resource: d.resource}, nil
}

// Read returns an error because directories cannot be read.
func (d *UserDir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.resource.Name, Err: fs.ErrInvalid}
}

// Close closes the directory.
func (d *UserDir) Close() error {
	return nil
}

// ReadDir reads the directory entries.
func (d *UserDir) ReadDir(n int) ([]fs.DirEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n <= 0 {
		entries := d.entries[d.offset:]
		d.offset = len(d.entries)
		return entries, nil
	}

	if d.offset >= len(d.entries) {
		return nil, io.EOF
	}

	end := min(d.offset+n, len(d.entries))
	entries := d.entries[d.offset:end]
	d.offset = end

	if d.offset >= len(d.entries) {
		return entries, io.EOF
	}
	return entries, nil
}
