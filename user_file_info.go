package objectfs

import (
	"io/fs"
	"strings"
	"time"
)

// UserFileInfo implements fs.FileInfo for a Resource.
// Objects carry no modification time in a Resource, so ModTime is the zero time.
type UserFileInfo struct {
	resource Resource
}

// Verify interface implementation at compile time.
var _ fs.FileInfo = (*UserFileInfo)(nil)

// Name returns the base name of the file.
func (fi *UserFileInfo) Name() string {
	return baseName(fi.resource)
}

// Size returns the size of the file in bytes.
func (fi *UserFileInfo) Size() int64 {
	return int64(fi.resource.Size)
}

// Mode returns the file mode bits.
func (fi *UserFileInfo) Mode() fs.FileMode {
	if fi.IsDir() {
		return fs.ModeDir | 0555
	}
	return 0444
}

// ModTime returns the modification time.
func (fi *UserFileInfo) ModTime() time.Time {
	return time.Time{}
}

// IsDir reports whether the file is a directory.
func (fi *UserFileInfo) IsDir() bool {
	return fi.resource.IsDir()
}

// Sys returns the underlying Resource.
func (fi *UserFileInfo) Sys() any {
	return fi.resource
}

func baseName(r Resource) string {
	if r.Name == "" {
		return "."
	}
	return strings.TrimSuffix(r.Name, "/")
}
