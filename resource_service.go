package objectfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

const defaultContentType = "application/octet-stream"

// FilePart is one named payload of an upload.
type FilePart struct {
	// Filename is the name relative to the target directory. It may contain '/' to address sub-directories.
	Filename    string
	ContentType string
	// Size is the payload length in bytes, or -1 if unknown.
	Size int64
	Body io.Reader
}

// ResourceService provides file-level operations and delegates directory paths (ending with '/') to a DirectoryService.
type ResourceService struct {
	gateway   Gateway
	namespace Namespace
	logger    logrus.FieldLogger
	directory *DirectoryService
}

// NewResourceService creates a new ResourceService with the given Gateway and DirectoryService.
func NewResourceService(gateway Gateway, directory *DirectoryService, opts ...Option) *ResourceService {
	o := newOptions(opts)
	return &ResourceService{
		gateway:   gateway,
		namespace: o.namespace,
		logger:    o.logger,
		directory: directory,
	}
}

// normalizeAny normalizes raw as a file or directory path. Blank input and "/" denote the root.
func normalizeAny(raw string) (Path, error) {
	if s := strings.TrimSpace(raw); s == "" || s == "/" {
		return "", nil
	}
	return NormalizePath(raw)
}

// Upload stores files below the directory dir and returns their Resources.
//
// Parts with an empty filename are skipped. Upload stops at the first part whose key already exists (ErrAlreadyExists)
// or whose write fails. Files stored before the failure are kept and returned together with the error.
func (s *ResourceService) Upload(ctx context.Context, user UserID, dir string, files []FilePart) ([]Resource, error) {
	d, err := NormalizeDirPath(dir)
	if err != nil {
		return nil, fmt.Errorf("path validation failed: %w", err)
	}

	stored := []Resource{}
	for _, file := range files {
		if strings.TrimSpace(file.Filename) == "" {
			continue
		}
		name, err := NormalizePath(file.Filename)
		if err != nil {
			return stored, fmt.Errorf("invalid file name '%s': %w", file.Filename, err)
		}
		if name.IsDir() {
			return stored, fmt.Errorf("file name '%s' denotes a directory: %w", file.Filename, ErrInvalidPath)
		}
		p := d.Join(name)
		key := s.namespace.ObjectKey(user, p)

		found, err := s.fileExists(ctx, p, key)
		if err != nil {
			return stored, err
		}
		if found {
			return stored, fmt.Errorf("file '%s': %w", p, ErrAlreadyExists)
		}

		contentType := file.ContentType
		if contentType == "" {
			contentType = defaultContentType
		}
		if err := s.gateway.Put(ctx, key, file.Body, file.Size, contentType); err != nil {
			if len(stored) > 0 {
				s.logger.WithFields(logrus.Fields{"user": user, "path": p, "objects": len(stored)}).
					Warn("upload aborted; earlier files of the batch are kept")
			}
			return stored, newOperationError("upload", p, err)
		}
		stored = append(stored, newResource(p, file.Size))
	}
	s.logger.WithFields(logrus.Fields{"user": user, "path": d, "objects": len(stored)}).Info("files uploaded")
	return stored, nil
}

func (s *ResourceService) fileExists(ctx context.Context, p Path, key string) (bool, error) {
	_, err := s.gateway.Stat(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, newOperationError("stat", p, err)
}

// Info returns the Resource at path. Name and parent are derived from the path, not from the object key.
func (s *ResourceService) Info(ctx context.Context, user UserID, path string) (Resource, error) {
	p, err := normalizeAny(path)
	if err != nil {
		return Resource{}, fmt.Errorf("path validation failed: %w", err)
	}
	if p.IsDir() {
		return s.directory.Info(ctx, user, string(p))
	}
	info, err := s.gateway.Stat(ctx, s.namespace.ObjectKey(user, p))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Resource{}, fmt.Errorf("file '%s': %w", p, ErrNotFound)
		}
		return Resource{}, newOperationError("stat", p, err)
	}
	return newResource(p, info.Size), nil
}

// Delete removes the file at path, or the whole subtree when path denotes a directory.
// Deleting a missing resource is a no-op.
func (s *ResourceService) Delete(ctx context.Context, user UserID, path string) error {
	p, err := normalizeAny(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	if p.IsDir() {
		return s.directory.Delete(ctx, user, string(p))
	}
	if err := s.gateway.Delete(ctx, s.namespace.ObjectKey(user, p)); err != nil && !errors.Is(err, ErrNotFound) {
		return newOperationError("delete", p, err)
	}
	s.logger.WithFields(logrus.Fields{"user": user, "path": p}).Info("file deleted")
	return nil
}

// Move renames the resource at from to to and returns the Resource at the destination.
// Both paths must denote the same kind of resource. Directories are moved by DirectoryService.Move.
//
// A file is copied and then its source is deleted. If the delete fails, the file exists at both paths.
func (s *ResourceService) Move(ctx context.Context, user UserID, from, to string) (Resource, error) {
	fromPath, err := normalizeAny(from)
	if err != nil {
		return Resource{}, fmt.Errorf("source path validation failed: %w", err)
	}
	toPath, err := normalizeAny(to)
	if err != nil {
		return Resource{}, fmt.Errorf("destination path validation failed: %w", err)
	}
	if fromPath.IsDir() != toPath.IsDir() {
		return Resource{}, fmt.Errorf("cannot move '%s' to '%s' of a different kind: %w", fromPath, toPath, ErrInvalidPath)
	}
	if fromPath.IsDir() {
		if err := s.directory.Move(ctx, user, string(fromPath), string(toPath)); err != nil {
			return Resource{}, err
		}
		return newResource(toPath, 0), nil
	}

	toKey := s.namespace.ObjectKey(user, toPath)
	found, err := s.fileExists(ctx, toPath, toKey)
	if err != nil {
		return Resource{}, err
	}
	if found {
		return Resource{}, fmt.Errorf("file '%s': %w", toPath, ErrAlreadyExists)
	}

	fromKey := s.namespace.ObjectKey(user, fromPath)
	info, err := s.gateway.Stat(ctx, fromKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Resource{}, fmt.Errorf("file '%s': %w", fromPath, ErrNotFound)
		}
		return Resource{}, newOperationError("stat", fromPath, err)
	}
	if err := s.gateway.Copy(ctx, fromKey, toKey); err != nil {
		return Resource{}, newOperationError("copy", fromPath, err)
	}
	log := s.logger.WithFields(logrus.Fields{"user": user, "from": fromPath, "to": toPath})
	if err := s.gateway.Delete(ctx, fromKey); err != nil {
		log.WithError(err).Warn("file move aborted after copy; file exists at both paths")
		return Resource{}, newOperationError("delete", fromPath, err)
	}
	log.Info("file moved")
	return newResource(toPath, info.Size), nil
}

// Search returns every resource of user whose decoded path contains query, ignoring case.
// The query must not denote a directory.
func (s *ResourceService) Search(ctx context.Context, user UserID, query string) ([]Resource, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("empty query: %w", ErrInvalidPath)
	}
	if strings.HasSuffix(q, "/") {
		return nil, fmt.Errorf("query '%s' denotes a directory: %w", q, ErrInvalidPath)
	}
	needle := strings.ToLower(q)

	results := []Resource{}
	for info, err := range s.gateway.List(ctx, s.namespace.RootPrefix(user), ListOptions{Recursive: true}) {
		if err != nil {
			return nil, newOperationError("search", "", err)
		}
		rel, err := s.namespace.RelativePath(user, info.Key)
		if err != nil {
			return nil, err
		}
		if rel.IsRoot() {
			continue
		}
		decoded := decodeKey(string(rel))
		if !strings.Contains(strings.ToLower(decoded), needle) {
			continue
		}
		results = append(results, newResource(Path(decoded), info.Size))
	}
	return results, nil
}

// decodeKey reverses percent-encoding of key segments. Keys that are not valid encodings are returned as they are.
func decodeKey(key string) string {
	decoded, err := url.PathUnescape(key)
	if err != nil {
		return key
	}
	return decoded
}

// Open opens the file at path for reading. The caller must close the returned stream.
func (s *ResourceService) Open(ctx context.Context, user UserID, path string) (io.ReadCloser, Resource, error) {
	p, err := NormalizePath(path)
	if err != nil {
		return nil, Resource{}, fmt.Errorf("path validation failed: %w", err)
	}
	if p.IsDir() {
		return nil, Resource{}, fmt.Errorf("'%s' is a directory: %w", p, ErrInvalidPath)
	}
	key := s.namespace.ObjectKey(user, p)
	info, err := s.gateway.Stat(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, Resource{}, fmt.Errorf("file '%s': %w", p, ErrNotFound)
		}
		return nil, Resource{}, newOperationError("stat", p, err)
	}
	body, err := s.gateway.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, Resource{}, fmt.Errorf("file '%s': %w", p, ErrNotFound)
		}
		return nil, Resource{}, newOperationError("get", p, err)
	}
	return body, newResource(p, info.Size), nil
}

// Download writes the file at path to w verbatim, or the subtree as a ZIP archive when path denotes a directory.
// The attachment name for path is given by AttachmentName.
func (s *ResourceService) Download(ctx context.Context, user UserID, path string, w io.Writer) (err error) {
	p, err := normalizeAny(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	if p.IsDir() {
		return s.directory.DownloadArchive(ctx, user, string(p), w)
	}

	body, _, err := s.Open(ctx, user, string(p))
	if err != nil {
		return err
	}
	defer func() {
		closeErr := body.Close()
		if closeErr != nil {
			closeErr = newOperationError("close", p, closeErr)
		}
		err = errors.Join(err, closeErr)
	}()

	if _, err := io.Copy(w, body); err != nil {
		return newOperationError("download", p, err)
	}
	s.logger.WithFields(logrus.Fields{"user": user, "path": p}).Info("file downloaded")
	return nil
}
