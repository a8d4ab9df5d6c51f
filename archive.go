package objectfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

const archiveBufferSize = 32 << 10

// ArchiveEntry is one object to be written into an archive.
type ArchiveEntry struct {
	// Name is the entry path inside the archive. Names ending with '/' denote directory markers and are skipped.
	Name     string
	Modified time.Time
	// Open opens the entry content. It is called at most once, right before the content is copied.
	Open func(ctx context.Context) (io.ReadCloser, error)
}

// ArchiveBuilder streams entries into a ZIP archive.
type ArchiveBuilder struct {
	method     uint16
	bufferSize int
}

func NewArchiveBuilder() *ArchiveBuilder {
	return &ArchiveBuilder{method: zip.Deflate, bufferSize: archiveBufferSize}
}

// BuildZip writes entries to w in their iteration order.
// Only one entry is open at a time and its content passes through a single fixed-size buffer.
//
// Any failure aborts the archive before the central directory is written, so the bytes already written to w
// are not a valid archive. The returned error matches ErrArchiveFailed.
func (b *ArchiveBuilder) BuildZip(ctx context.Context, entries iter.Seq2[ArchiveEntry, error], w io.Writer) error {
	zw := zip.NewWriter(w)
	buf := make([]byte, b.bufferSize)
	written := map[string]struct{}{}
	for entry, err := range entries {
		if err != nil {
			return newArchiveError(Path(entry.Name), fmt.Errorf("failed to list entries: %w", err))
		}
		if entry.Name == "" || strings.HasSuffix(entry.Name, "/") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return newArchiveError(Path(entry.Name), err)
		}
		if _, ok := written[entry.Name]; ok {
			return newArchiveError(Path(entry.Name), errors.New("duplicate entry"))
		}
		written[entry.Name] = struct{}{}
		if err := b.writeEntry(ctx, zw, entry, buf); err != nil {
			return newArchiveError(Path(entry.Name), err)
		}
	}
	if err := zw.Close(); err != nil {
		return newArchiveError("", fmt.Errorf("failed to finish archive: %w", err))
	}
	return nil
}

func (b *ArchiveBuilder) writeEntry(ctx context.Context, zw *zip.Writer, entry ArchiveEntry, buf []byte) (err error) {
	r, err := entry.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open entry: %w", err)
	}
	defer func() {
		closeErr := r.Close()
		if closeErr != nil {
			closeErr = fmt.Errorf("failed to close entry: %w", closeErr)
		}
		err = errors.Join(err, closeErr)
	}()

	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     entry.Name,
		Method:   b.method,
		Modified: entry.Modified,
	})
	if err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}
	if _, err := io.CopyBuffer(fw, r, buf); err != nil {
		return fmt.Errorf("failed to copy entry: %w", err)
	}
	return nil
}
