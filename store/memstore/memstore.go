// Package memstore provides an in-memory objectfs.Gateway backed by an ordered B-tree.
// It is intended for tests, examples and single-process deployments without an object store.
package memstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"
	"time"

	objectfs "github.com/Jumpaku/go-objectfs"
	"github.com/google/btree"
)

const degree = 8

type object struct {
	key         string
	data        []byte
	contentType string
	modified    time.Time
}

func less(a, b object) bool {
	return a.key < b.key
}

func (o object) info() objectfs.ObjectInfo {
	return objectfs.ObjectInfo{
		Key:          o.key,
		Size:         int64(len(o.data)),
		IsDir:        strings.HasSuffix(o.key, "/"),
		ContentType:  o.contentType,
		LastModified: o.modified,
	}
}

// Store keeps objects in key order, as an S3 bucket lists them.
type Store struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[object]
	now  func() time.Time
}

// Verify interface implementation at compile time.
var _ objectfs.Gateway = (*Store)(nil)

func New() *Store {
	return &Store{
		tree: btree.NewG[object](degree, less),
		now:  time.Now,
	}
}

// snapshot returns a copy-on-write clone so that listings do not hold the lock while yielding.
func (s *Store) snapshot() *btree.BTreeG[object] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Clone()
}

func (s *Store) List(ctx context.Context, prefix string, opts objectfs.ListOptions) iter.Seq2[objectfs.ObjectInfo, error] {
	return func(yield func(objectfs.ObjectInfo, error) bool) {
		tree := s.snapshot()
		emitted := 0
		lastDir := ""
		tree.AscendGreaterOrEqual(object{key: prefix}, func(o object) bool {
			if !strings.HasPrefix(o.key, prefix) {
				return false
			}
			if err := ctx.Err(); err != nil {
				yield(objectfs.ObjectInfo{}, err)
				return false
			}
			if opts.Limit > 0 && emitted >= opts.Limit {
				return false
			}
			info := o.info()
			if !opts.Recursive {
				// Keys below the next '/' collapse into one common prefix, as with a delimited S3 listing.
				rest := o.key[len(prefix):]
				if i := strings.Index(rest, "/"); i >= 0 {
					dir := prefix + rest[:i+1]
					if dir == lastDir {
						return true
					}
					lastDir = dir
					info = objectfs.ObjectInfo{Key: dir, IsDir: true}
				}
			}
			emitted++
			return yield(info, nil)
		})
	}
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read body of '%s': %w", key, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("body of '%s' has %d bytes, want %d", key, len(data), size)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.ReplaceOrInsert(object{key: key, data: data, contentType: contentType, modified: s.now()})
	return nil
}

func (s *Store) Copy(ctx context.Context, srcKey, dstKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.tree.Get(object{key: srcKey})
	if !ok {
		return fmt.Errorf("object '%s': %w", srcKey, objectfs.ErrNotFound)
	}
	s.tree.ReplaceOrInsert(object{key: dstKey, data: src.data, contentType: src.contentType, modified: s.now()})
	return nil
}

func (s *Store) Stat(ctx context.Context, key string) (objectfs.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return objectfs.ObjectInfo{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.tree.Get(object{key: key})
	if !ok {
		return objectfs.ObjectInfo{}, fmt.Errorf("object '%s': %w", key, objectfs.ErrNotFound)
	}
	return o.info(), nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.tree.Get(object{key: key})
	if !ok {
		return nil, fmt.Errorf("object '%s': %w", key, objectfs.ErrNotFound)
	}
	// Stored data is never mutated in place, so the slice can be shared with the reader.
	return io.NopCloser(bytes.NewReader(o.data)), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.Delete(object{key: key})
	return nil
}

// Keys returns every stored key in order.
func (s *Store) Keys() []string {
	var keys []string
	s.snapshot().Ascend(func(o object) bool {
		keys = append(keys, o.key)
		return true
	})
	return keys
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}
