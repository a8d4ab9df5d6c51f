package objectfs

import (
	"fmt"
	"net/url"
	"strings"
)

// Path represents a normalized path relative to a user's root.
// Paths use forward slashes as separators, never start with '/', and end with '/' when they denote a directory (e.g., "folder/subfolder/", "folder/file.txt").
// The empty Path denotes the user's root directory.
// Relative path components like "." and ".." never appear in a normalized Path.
type Path string

// NormalizePath validates raw and returns its normalized form.
// A trailing '/' is kept, so the result denotes a directory iff raw did.
// Blank input and the root are rejected.
func NormalizePath(raw string) (Path, error) {
	p, err := normalize(raw)
	if err != nil {
		return "", err
	}
	if p.IsRoot() {
		return "", fmt.Errorf("empty path: %w", ErrInvalidPath)
	}
	return p, nil
}

// NormalizeDirPath validates raw as a directory path and returns its normalized form, which always ends with '/' unless it is the root.
// Blank input and "/" denote the root.
func NormalizeDirPath(raw string) (Path, error) {
	p, err := normalize(raw)
	if err != nil {
		return "", err
	}
	if p.IsRoot() || p.IsDir() {
		return p, nil
	}
	return p + "/", nil
}

func normalize(raw string) (Path, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), `\`, "/")
	if strings.ContainsRune(s, 0) {
		return "", fmt.Errorf("path contains NUL: %w", ErrInvalidPath)
	}
	if strings.Contains(s, "//") {
		return "", fmt.Errorf("path contains empty segment: %w", ErrInvalidPath)
	}
	s = strings.TrimPrefix(s, "/")
	dir := strings.HasSuffix(s, "/")

	var parts []string
	for _, p := range strings.Split(strings.TrimSuffix(s, "/"), "/") {
		switch p {
		case "", ".":
			continue
		case "..":
			return "", fmt.Errorf("parent path components are not allowed: %w", ErrInvalidPath)
		}
		parts = append(parts, p)
	}

	normalized := strings.Join(parts, "/")
	if normalized != "" && dir {
		normalized += "/"
	}
	return Path(normalized), nil
}

// IsRoot reports whether p is the user's root directory.
func (p Path) IsRoot() bool {
	return p == ""
}

// IsDir reports whether p denotes a directory.
func (p Path) IsDir() bool {
	return p.IsRoot() || strings.HasSuffix(string(p), "/")
}

// Split splits p into its parent directory and its final segment.
// The name keeps the trailing '/' of a directory; the parent of a top-level entry is the root.
func (p Path) Split() (parent Path, name string) {
	trimmed := strings.TrimSuffix(string(p), "/")
	i := strings.LastIndex(trimmed, "/")
	return Path(trimmed[:i+1]), string(p)[i+1:]
}

// Join appends the relative path child to the directory p.
func (p Path) Join(child Path) Path {
	return p + child
}

// HasPrefix reports whether p lies inside the directory dir or equals it.
func (p Path) HasPrefix(dir Path) bool {
	return strings.HasPrefix(string(p), string(dir))
}

// ExtractName returns the final non-empty segment of path, percent-encoded for use in transport headers.
func ExtractName(path string) string {
	segments := strings.Split(strings.Trim(strings.ReplaceAll(path, `\`, "/"), "/"), "/")
	return url.PathEscape(segments[len(segments)-1])
}

// AttachmentName returns the download file name for path.
// Directories are downloaded as ZIP archives.
func AttachmentName(path string) string {
	name := ExtractName(path)
	if name == "" {
		name = "root"
	}
	if strings.HasSuffix(strings.TrimSpace(path), "/") || strings.TrimSpace(path) == "" {
		return name + ".zip"
	}
	return name
}
