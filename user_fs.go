package objectfs

import (
	"context"
	"errors"
	"io/fs"
	"slices"
	"strings"
)

// UserFS is a read-only fs.FS view of one user's tree.
// It makes the tree usable with fs.WalkDir, fs.ReadFile, http.FS and similar helpers.
type UserFS struct {
	ctx  context.Context
	fsys *FS
	user UserID
}

// Verify interface implementations at compile time.
var (
	_ fs.FS        = (*UserFS)(nil)
	_ fs.ReadDirFS = (*UserFS)(nil)
	_ fs.StatFS    = (*UserFS)(nil)
)

// NewUserFS returns the tree of user as an fs.FS. Every store request made through it uses ctx.
func NewUserFS(ctx context.Context, fsys *FS, user UserID) *UserFS {
	return &UserFS{ctx: ctx, fsys: fsys, user: user}
}

// Open opens the named file or directory.
func (f *UserFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if name != "." {
		body, resource, err := f.fsys.Resource.Open(f.ctx, f.user, name)
		if err == nil {
			return &UserFile{resource: resource, body: body}, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, &fs.PathError{Op: "open", Path: name, Err: toFSError(err)}
		}
	}
	resource, entries, err := f.readDir(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: toFSError(err)}
	}
	return &UserDir{resource: resource, entries: entries}, nil
}

// ReadDir reads the named directory and returns its entries sorted by name.
func (f *UserFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	_, entries, err := f.readDir(name)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: toFSError(err)}
	}
	return entries, nil
}

// Stat returns the FileInfo of the named file or directory.
func (f *UserFS) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	if name == "." {
		return &UserFileInfo{resource: newResource("", 0)}, nil
	}
	resource, err := f.fsys.Resource.Info(f.ctx, f.user, name)
	if errors.Is(err, ErrNotFound) {
		resource, err = f.fsys.Directory.Info(f.ctx, f.user, name+"/")
	}
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: toFSError(err)}
	}
	return &UserFileInfo{resource: resource}, nil
}

func (f *UserFS) readDir(name string) (Resource, []fs.DirEntry, error) {
	dir := ""
	if name != "." {
		dir = name + "/"
	}
	children, err := f.fsys.Directory.List(f.ctx, f.user, dir)
	if err != nil {
		return Resource{}, nil, err
	}
	slices.SortFunc(children, func(a, b Resource) int {
		return strings.Compare(baseName(a), baseName(b))
	})
	entries := make([]fs.DirEntry, 0, len(children))
	for _, child := range children {
		entries = append(entries, &UserDirEntry{resource: child})
	}
	return newResource(Path(dir), 0), entries, nil
}

func toFSError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fs.ErrNotExist
	case errors.Is(err, ErrInvalidPath):
		return fs.ErrInvalid
	default:
		return err
	}
}
