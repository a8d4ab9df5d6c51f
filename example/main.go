package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"

	objectfs "github.com/Jumpaku/go-objectfs"
	"github.com/Jumpaku/go-objectfs/objectfsmust"
	"github.com/Jumpaku/go-objectfs/store/memstore"
	"github.com/Jumpaku/go-objectfs/store/s3store"
	"github.com/sirupsen/logrus"
)

// newGateway connects to MinIO when OBJECTFS_EXAMPLE_ENDPOINT is set and falls back to memory otherwise.
func newGateway(ctx context.Context) objectfs.Gateway {
	endpoint := os.Getenv("OBJECTFS_EXAMPLE_ENDPOINT")
	if endpoint == "" {
		return memstore.New()
	}
	store, err := s3store.New(ctx, s3store.Config{
		Bucket:       "objectfs-example",
		Region:       "us-east-1",
		Endpoint:     endpoint,
		AccessKey:    os.Getenv("OBJECTFS_EXAMPLE_ACCESS_KEY"),
		SecretKey:    os.Getenv("OBJECTFS_EXAMPLE_SECRET_KEY"),
		UsePathStyle: true,
	})
	if err != nil {
		log.Panic(err)
	}
	return store
}

var sc = func() *bufio.Scanner {
	sc := bufio.NewScanner(os.Stdin)
	sc.Split(bufio.ScanLines)
	return sc
}()

func step() {
	sc.Scan()
}

func file(name, content string) objectfs.FilePart {
	return objectfs.FilePart{Filename: name, ContentType: "text/plain", Size: int64(len(content)), Body: strings.NewReader(content)}
}

func main() {
	ctx := context.Background()
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	fsys := objectfs.New(newGateway(ctx), objectfs.WithLogger(logger))
	const user objectfs.UserID = 42
	userFS := objectfsmust.New(fsys, user)

	// Create a directory and upload files into it
	step()
	dir := userFS.Mkdir(ctx, "/path/to/directory")
	fmt.Printf("Created directory: %s%s\n", dir.ParentPath, dir.Name)
	for _, r := range userFS.Upload(ctx, "path/to/directory/", file("example.txt", "Hello, object store!"), file("notes/todo.md", "- write docs")) {
		fmt.Printf("Uploaded: %s%s (%d bytes)\n", r.ParentPath, r.Name, r.Size)
	}

	// Read the file
	step()
	fmt.Printf("File content: %s\n", userFS.ReadFile(ctx, "path/to/directory/example.txt"))

	// List the directory
	step()
	for _, r := range userFS.ReadDir(ctx, "path/to/directory/") {
		fmt.Printf("  %s (%s)\n", r.Name, r.Kind)
	}

	// Move the directory
	step()
	moved := userFS.Move(ctx, "path/to/directory/", "path/to/renamed/")
	fmt.Printf("Moved to: %s%s\n", moved.ParentPath, moved.Name)

	// Search by name
	step()
	for _, r := range userFS.Search(ctx, "TODO") {
		fmt.Printf("Found: %s\n", r.Path())
	}

	// Walk the tree with io/fs
	step()
	err := fs.WalkDir(objectfs.NewUserFS(ctx, fsys, user), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		fmt.Printf("%s (dir: %v)\n", path, d.IsDir())
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	// Download the directory as a ZIP archive
	step()
	var buf bytes.Buffer
	userFS.Download(ctx, "path/", &buf)
	fmt.Printf("Archive %s: %d bytes\n", objectfs.AttachmentName("path/"), buf.Len())

	// Remove everything
	step()
	userFS.Remove(ctx, "path/")
	fmt.Printf("Exists after remove: %v\n", userFS.Exists(ctx, "path/"))
}
