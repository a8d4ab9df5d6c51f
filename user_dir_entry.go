package objectfs

import (
	"io/fs"
)

// UserDirEntry implements fs.DirEntry for a file or directory of a UserFS.
type UserDirEntry struct {
	resource Resource
}

// Verify interface implementation at compile time.
var _ fs.DirEntry = (*UserDirEntry)(nil)

// Name returns the name of the entry without the trailing '/' of directories.
func (e *UserDirEntry) Name() string {
	return baseName(e.resource)
}

// IsDir reports whether the entry is a directory.
func (e *UserDirEntry) IsDir() bool {
	return e.resource.IsDir()
}

// Type returns the file mode bits.
func (e *UserDirEntry) Type() fs.FileMode {
	if e.IsDir() {
		return fs.ModeDir
	}
	return 0
}

// Info returns the file info.
func (e *UserDirEntry) Info() (fs.FileInfo, error) {
	return &UserFileInfo{resource: e.resource}, nil
}
