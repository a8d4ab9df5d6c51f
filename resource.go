package objectfs

// Kind is the type of a Resource.
type Kind string

const (
	KindFile      Kind = "FILE"
	KindDirectory Kind = "DIRECTORY"
)

// Resource is the user-facing view of one filesystem entry.
type Resource struct {
	// ParentPath is the directory containing the entry, ending with '/'. Top-level entries have "/".
	ParentPath string `json:"path"`
	// Name is the final path segment. Directory names end with '/'.
	Name string `json:"name"`
	// Size is the content length in bytes, 0 for directories.
	Size uint64 `json:"size"`
	Kind Kind   `json:"type"`
}

func (r Resource) IsDir() bool {
	return r.Kind == KindDirectory
}

// Path returns the normalized path of the entry.
func (r Resource) Path() Path {
	if r.ParentPath == "/" {
		return Path(r.Name)
	}
	return Path(r.ParentPath + r.Name)
}

func newResource(p Path, size int64) Resource {
	parent, name := p.Split()
	parentPath := string(parent)
	if parentPath == "" {
		parentPath = "/"
	}
	if p.IsDir() {
		return Resource{ParentPath: parentPath, Name: name, Size: 0, Kind: KindDirectory}
	}
	if size < 0 {
		size = 0
	}
	return Resource{ParentPath: parentPath, Name: name, Size: uint64(size), Kind: KindFile}
}
