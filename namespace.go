package objectfs

import (
	"fmt"
	"strconv"
	"strings"
)

// UserID identifies the owner of a file tree. It is resolved by the caller.
type UserID uint64

// Namespace maps users to disjoint key prefixes in the bucket.
//
// Every key of user u starts with RootPrefix(u). The prefix of one user is never a prefix of another user's,
// because the decimal ID is terminated by a fixed suffix.
type Namespace struct {
	// Base is an optional directory path shared by every user prefix, e.g. "tenants/a/".
	Base Path
}

// NewNamespace returns a Namespace below the given base directory.
func NewNamespace(base string) (Namespace, error) {
	p, err := NormalizeDirPath(base)
	if err != nil {
		return Namespace{}, fmt.Errorf("invalid namespace base: %w", err)
	}
	return Namespace{Base: p}, nil
}

// RootPrefix returns the key prefix owned by user u.
func (n Namespace) RootPrefix(u UserID) string {
	return string(n.Base) + "user-" + strconv.FormatUint(uint64(u), 10) + "-files/"
}

// ObjectKey returns the object key of the normalized path p of user u.
func (n Namespace) ObjectKey(u UserID, p Path) string {
	return n.RootPrefix(u) + string(p)
}

// RelativePath returns the path of key relative to the root of user u.
func (n Namespace) RelativePath(u UserID, key string) (Path, error) {
	prefix := n.RootPrefix(u)
	if !strings.HasPrefix(key, prefix) {
		return "", fmt.Errorf("key '%s' is outside of '%s': %w", key, prefix, ErrNamespaceViolation)
	}
	return Path(key[len(prefix):]), nil
}
