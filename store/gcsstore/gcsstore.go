// Package gcsstore implements objectfs.Gateway on a Google Cloud Storage bucket.
package gcsstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	objectfs "github.com/Jumpaku/go-objectfs"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Config holds the connection settings of a bucket.
type Config struct {
	Bucket string
	// CredentialsFile is a service account key file. Application default credentials are used when empty.
	CredentialsFile string
	// Endpoint overrides the JSON API endpoint, e.g. for an emulator. Requests to a custom endpoint are not authenticated.
	Endpoint string
}

// Store is an objectfs.Gateway bound to one bucket.
type Store struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// Verify interface implementation at compile time.
var _ objectfs.Gateway = (*Store)(nil)

// New creates a Store from cfg. The caller must call Close when done.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}
	return &Store{client: client, bucket: client.Bucket(cfg.Bucket)}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// List yields objects and, when not recursive, synthetic prefixes in the order the client returns them.
func (s *Store) List(ctx context.Context, prefix string, opts objectfs.ListOptions) iter.Seq2[objectfs.ObjectInfo, error] {
	return func(yield func(objectfs.ObjectInfo, error) bool) {
		query := &storage.Query{Prefix: prefix}
		if !opts.Recursive {
			query.Delimiter = "/"
		}
		it := s.bucket.Objects(ctx, query)
		for emitted := 0; opts.Limit <= 0 || emitted < opts.Limit; emitted++ {
			attrs, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				yield(objectfs.ObjectInfo{}, fmt.Errorf("failed to list '%s': %w", prefix, err))
				return
			}
			if !yield(objectInfo(attrs), nil) {
				return
			}
		}
	}
}

func objectInfo(attrs *storage.ObjectAttrs) objectfs.ObjectInfo {
	if attrs.Name == "" && attrs.Prefix != "" {
		return objectfs.ObjectInfo{Key: attrs.Prefix, IsDir: true}
	}
	return objectfs.ObjectInfo{
		Key:          attrs.Name,
		Size:         attrs.Size,
		IsDir:        strings.HasSuffix(attrs.Name, "/"),
		ContentType:  attrs.ContentType,
		LastModified: attrs.Updated,
	}
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	// Cancelling the writer context discards the upload instead of committing a truncated object.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	n, err := io.Copy(w, body)
	if err != nil {
		return fmt.Errorf("failed to put '%s': %w", key, err)
	}
	if size >= 0 && n != size {
		return fmt.Errorf("failed to put '%s': body has %d bytes, want %d", key, n, size)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to put '%s': %w", key, err)
	}
	return nil
}

func (s *Store) Copy(ctx context.Context, srcKey, dstKey string) error {
	src := s.bucket.Object(srcKey)
	if _, err := s.bucket.Object(dstKey).CopierFrom(src).Run(ctx); err != nil {
		return wrap("copy", srcKey, err)
	}
	return nil
}

func (s *Store) Stat(ctx context.Context, key string) (objectfs.ObjectInfo, error) {
	attrs, err := s.bucket.Object(key).Attrs(ctx)
	if err != nil {
		return objectfs.ObjectInfo{}, wrap("stat", key, err)
	}
	return objectInfo(attrs), nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, wrap("get", key, err)
	}
	return r, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Object(key).Delete(ctx); err != nil && !isNotFound(err) {
		return wrap("delete", key, err)
	}
	return nil
}

func wrap(op, key string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("object '%s': %w", key, errors.Join(objectfs.ErrNotFound, err))
	}
	return fmt.Errorf("failed to %s '%s': %w", op, key, err)
}

func isNotFound(err error) bool {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return true
	}
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
