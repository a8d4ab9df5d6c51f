package objectfs

import (
	"context"
	"io"
	"iter"
	"time"
)

// DirectoryContentType is stored on directory marker objects.
const DirectoryContentType = "application/x-directory"

// ObjectInfo describes one object, or one collapsed common prefix, returned by a Gateway.
type ObjectInfo struct {
	Key          string
	Size         int64
	IsDir        bool
	ContentType  string
	LastModified time.Time
}

// ListOptions controls Gateway.List.
type ListOptions struct {
	// Recursive lists every key below the prefix. Otherwise keys below the next '/' are collapsed into one directory entry.
	Recursive bool
	// Limit stops the listing after the given number of entries when positive.
	Limit int
}

// Gateway is the object store capability consumed by the services.
// A Gateway is bound to a single bucket.
//
// Stat and Get report a missing key with an error matching ErrNotFound. Delete of a missing key succeeds.
type Gateway interface {
	// List lazily yields the objects below prefix in the store's order.
	// Iteration stops at the first error, which is yielded as the last element.
	List(ctx context.Context, prefix string, opts ListOptions) iter.Seq2[ObjectInfo, error]
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// Copy copies srcKey to dstKey on the server side.
	Copy(ctx context.Context, srcKey, dstKey string) error
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// Get opens a read stream. The caller must close it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
