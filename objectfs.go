// Package objectfs emulates per-user hierarchical file trees on top of a flat object store.
//
// Directories are derived from key prefixes and made observable by zero-length marker objects whose keys end with '/'.
// Multi-object operations (directory move, directory delete, multi-file upload) are sequences of single-object calls
// and are not atomic: a failure part way leaves the objects already processed in place.
package objectfs

import (
	"io"

	"github.com/sirupsen/logrus"
)

const defaultConcurrency = 8

type options struct {
	logger      logrus.FieldLogger
	namespace   Namespace
	concurrency int
}

// Option configures the services created by New, NewDirectoryService and NewResourceService.
type Option func(*options)

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithNamespace sets the mapping from users to key prefixes.
func WithNamespace(namespace Namespace) Option {
	return func(o *options) {
		o.namespace = namespace
	}
}

// WithConcurrency bounds the number of in-flight per-object requests of recursive operations.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func newOptions(opts []Option) options {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	o := options{logger: discard, concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FS bundles the directory and resource services sharing one Gateway.
type FS struct {
	Directory *DirectoryService
	Resource  *ResourceService
}

// New creates a new FS instance with the given Gateway.
func New(gateway Gateway, opts ...Option) *FS {
	directory := NewDirectoryService(gateway, opts...)
	return &FS{
		Directory: directory,
		Resource:  NewResourceService(gateway, directory, opts...),
	}
}
