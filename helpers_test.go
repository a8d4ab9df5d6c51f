package objectfs_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/Jumpaku/go-objectfs"
	"github.com/Jumpaku/go-objectfs/store/memstore"
	"github.com/stretchr/testify/require"
)

const (
	alice objectfs.UserID = 1
	bob   objectfs.UserID = 2
)

func newTestFS(t *testing.T, opts ...objectfs.Option) (*objectfs.FS, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return objectfs.New(store, opts...), store
}

func part(name, content string) objectfs.FilePart {
	return objectfs.FilePart{Filename: name, Size: int64(len(content)), Body: strings.NewReader(content)}
}

func upload(t *testing.T, fsys *objectfs.FS, user objectfs.UserID, dir string, names ...string) {
	t.Helper()
	parts := make([]objectfs.FilePart, 0, len(names))
	for _, name := range names {
		parts = append(parts, part(name, "content of "+name))
	}
	_, err := fsys.Resource.Upload(context.Background(), user, dir, parts)
	require.NoError(t, err)
}

func readAll(t *testing.T, r io.Reader) string {
	t.Helper()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

// faultyGateway fails selected calls of the wrapped Gateway.
type faultyGateway struct {
	objectfs.Gateway

	mu       sync.Mutex
	putCalls int
	// failPut fails the n-th Put call (1-based) when positive.
	failPut    int
	failCopy   func(srcKey string) bool
	failDelete func(key string) bool
	failGet    func(key string) bool
}

var errInjected = io.ErrUnexpectedEOF

func (g *faultyGateway) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	g.mu.Lock()
	g.putCalls++
	n := g.putCalls
	g.mu.Unlock()
	if g.failPut > 0 && n == g.failPut {
		return errInjected
	}
	return g.Gateway.Put(ctx, key, body, size, contentType)
}

func (g *faultyGateway) Copy(ctx context.Context, srcKey, dstKey string) error {
	if g.failCopy != nil && g.failCopy(srcKey) {
		return errInjected
	}
	return g.Gateway.Copy(ctx, srcKey, dstKey)
}

func (g *faultyGateway) Delete(ctx context.Context, key string) error {
	if g.failDelete != nil && g.failDelete(key) {
		return errInjected
	}
	return g.Gateway.Delete(ctx, key)
}

func (g *faultyGateway) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if g.failGet != nil && g.failGet(key) {
		return nil, errInjected
	}
	return g.Gateway.Get(ctx, key)
}
