package objectfs_test

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/Jumpaku/go-objectfs"
	"github.com/Jumpaku/go-objectfs/store/memstore"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryService_Create(t *testing.T) {
	ctx := context.Background()
	fsys, store := newTestFS(t)

	got, err := fsys.Directory.Create(ctx, alice, "docs")
	require.NoError(t, err)
	assert.Equal(t, objectfs.Resource{ParentPath: "/", Name: "docs/", Kind: objectfs.KindDirectory}, got)
	assert.Equal(t, []string{"user-1-files/docs/"}, store.Keys())

	info, err := store.Stat(ctx, "user-1-files/docs/")
	require.NoError(t, err)
	assert.Zero(t, info.Size)
	assert.Equal(t, objectfs.DirectoryContentType, info.ContentType)

	_, err = fsys.Directory.Create(ctx, alice, "/docs/")
	assert.ErrorIs(t, err, objectfs.ErrAlreadyExists)

	nested, err := fsys.Directory.Create(ctx, alice, "docs/2024/")
	require.NoError(t, err)
	assert.Equal(t, "docs/", nested.ParentPath)
	assert.Equal(t, "2024/", nested.Name)
}

func TestDirectoryService_CreateInvalid(t *testing.T) {
	ctx := context.Background()
	fsys, store := newTestFS(t)

	for _, path := range []string{"", "/", "../x/", "a//b/"} {
		_, err := fsys.Directory.Create(ctx, alice, path)
		assert.ErrorIs(t, err, objectfs.ErrInvalidPath, "Create(%q)", path)
	}
	assert.Zero(t, store.Len())
}

func TestDirectoryService_CreateOverImplicitDirectory(t *testing.T) {
	ctx := context.Background()
	fsys, _ := newTestFS(t)
	upload(t, fsys, alice, "", "implicit/a.txt")

	_, err := fsys.Directory.Create(ctx, alice, "implicit/")
	assert.ErrorIs(t, err, objectfs.ErrAlreadyExists)
}

func TestDirectoryService_List(t *testing.T) {
	ctx := context.Background()
	fsys, _ := newTestFS(t)
	_, err := fsys.Directory.Create(ctx, alice, "docs/")
	require.NoError(t, err)
	upload(t, fsys, alice, "docs/", "a.txt", "sub/b.txt", "sub/deeper/c.txt", "z.txt")

	got, err := fsys.Directory.List(ctx, alice, "docs")
	require.NoError(t, err)
	assert.Equal(t, []objectfs.Resource{
		{ParentPath: "docs/", Name: "a.txt", Size: uint64(len("content of a.txt")), Kind: objectfs.KindFile},
		{ParentPath: "docs/", Name: "sub/", Kind: objectfs.KindDirectory},
		{ParentPath: "docs/", Name: "z.txt", Size: uint64(len("content of z.txt")), Kind: objectfs.KindFile},
	}, got)

	root, err := fsys.Directory.List(ctx, alice, "/")
	require.NoError(t, err)
	assert.Equal(t, []objectfs.Resource{{ParentPath: "/", Name: "docs/", Kind: objectfs.KindDirectory}}, root)
}

func TestDirectoryService_ListEmptyRoot(t *testing.T) {
	fsys, _ := newTestFS(t)

	got, err := fsys.Directory.List(context.Background(), alice, "")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDirectoryService_ListMissing(t *testing.T) {
	fsys, _ := newTestFS(t)

	_, err := fsys.Directory.List(context.Background(), alice, "missing/")
	assert.ErrorIs(t, err, objectfs.ErrNotFound)
}

func TestDirectoryService_ListEmptyDirectory(t *testing.T) {
	ctx := context.Background()
	fsys, _ := newTestFS(t)
	_, err := fsys.Directory.Create(ctx, alice, "empty/")
	require.NoError(t, err)

	got, err := fsys.Directory.List(ctx, alice, "empty/")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDirectoryService_Info(t *testing.T) {
	ctx := context.Background()
	fsys, _ := newTestFS(t)
	upload(t, fsys, alice, "", "implicit/a.txt")

	got, err := fsys.Directory.Info(ctx, alice, "implicit")
	require.NoError(t, err)
	assert.Equal(t, objectfs.Resource{ParentPath: "/", Name: "implicit/", Kind: objectfs.KindDirectory}, got)

	_, err = fsys.Directory.Info(ctx, alice, "missing/")
	assert.ErrorIs(t, err, objectfs.ErrNotFound)

	root, err := fsys.Directory.Info(ctx, bob, "/")
	require.NoError(t, err)
	assert.True(t, root.IsDir())
}

func TestDirectoryService_UsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	fsys, _ := newTestFS(t)
	upload(t, fsys, alice, "docs/", "a.txt")

	root, err := fsys.Directory.List(ctx, bob, "")
	require.NoError(t, err)
	assert.Empty(t, root)

	_, err = fsys.Directory.List(ctx, bob, "docs/")
	assert.ErrorIs(t, err, objectfs.ErrNotFound)

	found, err := fsys.Directory.Exists(ctx, bob, "docs/")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDirectoryService_Move(t *testing.T) {
	ctx := context.Background()
	fsys, store := newTestFS(t, objectfs.WithConcurrency(2))
	_, err := fsys.Directory.Create(ctx, alice, "a/")
	require.NoError(t, err)
	upload(t, fsys, alice, "a/", "f.txt", "s/g.txt")
	upload(t, fsys, alice, "", "ab.txt")

	require.NoError(t, fsys.Directory.Move(ctx, alice, "a/", "b/"))

	assert.Equal(t, []string{
		"user-1-files/ab.txt",
		"user-1-files/b/",
		"user-1-files/b/f.txt",
		"user-1-files/b/s/g.txt",
	}, store.Keys())

	r, _, err := fsys.Resource.Open(ctx, alice, "b/s/g.txt")
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, "content of s/g.txt", readAll(t, r))
}

func TestDirectoryService_MoveRejected(t *testing.T) {
	ctx := context.Background()
	fsys, _ := newTestFS(t)
	upload(t, fsys, alice, "a/", "f.txt")
	upload(t, fsys, alice, "b/", "g.txt")

	cases := []struct {
		name     string
		from, to string
		want     error
	}{
		{"destination-exists", "a/", "b/", objectfs.ErrAlreadyExists},
		{"missing-source", "missing/", "c/", objectfs.ErrNotFound},
		{"into-itself", "a/", "a/x/", objectfs.ErrInvalidPath},
		{"onto-itself", "a/", "a/", objectfs.ErrInvalidPath},
		{"root-source", "/", "c/", objectfs.ErrInvalidPath},
		{"root-destination", "a/", "", objectfs.ErrInvalidPath},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			err := fsys.Directory.Move(ctx, alice, c.from, c.to)
			assert.ErrorIs(t, err, c.want)
		})
	}
}

func TestDirectoryService_MoveCopyFailureKeepsSource(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	gateway := &faultyGateway{
		Gateway:  store,
		failCopy: func(key string) bool { return strings.HasSuffix(key, "/2.txt") },
	}
	fsys := objectfs.New(gateway)
	upload(t, fsys, alice, "src/", "1.txt", "2.txt", "3.txt")

	err := fsys.Directory.Move(ctx, alice, "src/", "dst/")
	require.Error(t, err)
	assert.ErrorIs(t, err, objectfs.ErrOperationFailed)
	assert.ErrorIs(t, err, errInjected)

	keys := store.Keys()
	for _, name := range []string{"1.txt", "2.txt", "3.txt"} {
		assert.Contains(t, keys, "user-1-files/src/"+name)
	}
	assert.NotContains(t, keys, "user-1-files/dst/2.txt")
}

func TestDirectoryService_MoveDeleteFailureKeepsDestination(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	gateway := &faultyGateway{
		Gateway:    store,
		failDelete: func(key string) bool { return key == "user-1-files/src/2.txt" },
	}
	fsys := objectfs.New(gateway)
	upload(t, fsys, alice, "src/", "1.txt", "2.txt")

	err := fsys.Directory.Move(ctx, alice, "src/", "dst/")
	assert.ErrorIs(t, err, objectfs.ErrOperationFailed)

	keys := store.Keys()
	assert.Contains(t, keys, "user-1-files/dst/1.txt")
	assert.Contains(t, keys, "user-1-files/dst/2.txt")
	assert.Contains(t, keys, "user-1-files/src/2.txt")
}

func TestDirectoryService_Delete(t *testing.T) {
	ctx := context.Background()
	fsys, store := newTestFS(t)
	upload(t, fsys, alice, "a/", "f.txt", "s/g.txt")
	upload(t, fsys, alice, "", "ab.txt")
	upload(t, fsys, bob, "a/", "f.txt")

	require.NoError(t, fsys.Directory.Delete(ctx, alice, "a"))

	assert.Equal(t, []string{"user-1-files/ab.txt", "user-2-files/a/f.txt"}, store.Keys())
	_, err := fsys.Directory.Info(ctx, alice, "a/")
	assert.ErrorIs(t, err, objectfs.ErrNotFound)
}

func TestDirectoryService_DeleteMissingIsNoop(t *testing.T) {
	fsys, _ := newTestFS(t)
	assert.NoError(t, fsys.Directory.Delete(context.Background(), alice, "missing/"))
}

func TestDirectoryService_DeleteRoot(t *testing.T) {
	fsys, _ := newTestFS(t)
	upload(t, fsys, alice, "", "a.txt")
	assert.ErrorIs(t, fsys.Directory.Delete(context.Background(), alice, "/"), objectfs.ErrInvalidPath)
}

func zipNames(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	entries := map[string]string{}
	for _, f := range zr.File {
		r, err := f.Open()
		require.NoError(t, err)
		entries[f.Name] = readAll(t, r)
		require.NoError(t, r.Close())
	}
	return entries
}

func TestDirectoryService_DownloadArchive(t *testing.T) {
	ctx := context.Background()
	fsys, _ := newTestFS(t)
	_, err := fsys.Directory.Create(ctx, alice, "docs/")
	require.NoError(t, err)
	_, err = fsys.Directory.Create(ctx, alice, "docs/empty/")
	require.NoError(t, err)
	upload(t, fsys, alice, "docs/", "a.txt", "sub/b.txt")
	upload(t, fsys, alice, "", "top.txt")

	var buf bytes.Buffer
	require.NoError(t, fsys.Directory.DownloadArchive(ctx, alice, "docs", &buf))

	assert.Equal(t, map[string]string{
		"a.txt":     "content of a.txt",
		"sub/b.txt": "content of sub/b.txt",
	}, zipNames(t, buf.Bytes()))

	buf.Reset()
	require.NoError(t, fsys.Directory.DownloadArchive(ctx, alice, "", &buf))
	names := make([]string, 0)
	for name := range zipNames(t, buf.Bytes()) {
		names = append(names, name)
	}
	slices.Sort(names)
	assert.Equal(t, []string{"docs/a.txt", "docs/sub/b.txt", "top.txt"}, names)
}

func TestDirectoryService_DownloadArchiveEmptyRoot(t *testing.T) {
	fsys, _ := newTestFS(t)
	var buf bytes.Buffer
	require.NoError(t, fsys.Directory.DownloadArchive(context.Background(), alice, "/", &buf))
	assert.Empty(t, zipNames(t, buf.Bytes()))
}

func TestDirectoryService_DownloadArchiveMissing(t *testing.T) {
	fsys, _ := newTestFS(t)
	var buf bytes.Buffer
	err := fsys.Directory.DownloadArchive(context.Background(), alice, "missing/", &buf)
	assert.ErrorIs(t, err, objectfs.ErrNotFound)
	assert.Zero(t, buf.Len())
}

func TestDirectoryService_DownloadArchiveSourceFailure(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	gateway := &faultyGateway{
		Gateway: store,
		failGet: func(key string) bool { return strings.HasSuffix(key, "/b.txt") },
	}
	fsys := objectfs.New(gateway)
	upload(t, fsys, alice, "docs/", "a.txt", "b.txt", "c.txt")

	var buf bytes.Buffer
	err := fsys.Directory.DownloadArchive(ctx, alice, "docs/", &buf)
	assert.ErrorIs(t, err, objectfs.ErrArchiveFailed)
	assert.True(t, errors.Is(err, errInjected))

	_, err = zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	assert.Error(t, err)
}

func TestCollapseChild(t *testing.T) {
	cases := []struct {
		key      string
		wantName string
		wantDir  bool
		wantOK   bool
	}{
		{"p/a.txt", "a.txt", false, true},
		{"p/sub/", "sub/", true, true},
		{"p/sub/x/y.txt", "sub/", true, true},
		{"p/", "", false, false},
		{"q/a.txt", "", false, false},
	}

	for _, c := range cases {
		name, dir, ok := objectfs.CollapseChild("p/", c.key, false)
		if name != c.wantName || dir != c.wantDir || ok != c.wantOK {
			t.Errorf("CollapseChild(%q) = (%q, %v, %v), want (%q, %v, %v)", c.key, name, dir, ok, c.wantName, c.wantDir, c.wantOK)
		}
	}
}
