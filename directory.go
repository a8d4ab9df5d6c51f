package objectfs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/sirupsen/logrus"
)

// DirectoryService emulates directories on top of a Gateway.
//
// A directory exists iff at least one key starts with its prefix. Existence checks and the writes that follow them
// are separate round-trips: two concurrent calls creating or moving to the same destination may both pass the check.
type DirectoryService struct {
	gateway     Gateway
	namespace   Namespace
	logger      logrus.FieldLogger
	concurrency int
	archiver    *ArchiveBuilder
}

// NewDirectoryService creates a new DirectoryService with the given Gateway.
func NewDirectoryService(gateway Gateway, opts ...Option) *DirectoryService {
	o := newOptions(opts)
	return &DirectoryService{
		gateway:     gateway,
		namespace:   o.namespace,
		logger:      o.logger,
		concurrency: o.concurrency,
		archiver:    NewArchiveBuilder(),
	}
}

// Exists reports whether the directory at path contains at least one object, its own marker included.
func (s *DirectoryService) Exists(ctx context.Context, user UserID, path string) (bool, error) {
	p, err := NormalizeDirPath(path)
	if err != nil {
		return false, fmt.Errorf("path validation failed: %w", err)
	}
	return s.exists(ctx, user, p)
}

func (s *DirectoryService) exists(ctx context.Context, user UserID, p Path) (bool, error) {
	for _, err := range s.gateway.List(ctx, s.namespace.ObjectKey(user, p), ListOptions{Recursive: true, Limit: 1}) {
		if err != nil {
			return false, newOperationError("list", p, err)
		}
		return true, nil
	}
	return false, nil
}

// Info returns the Resource of the directory at path.
func (s *DirectoryService) Info(ctx context.Context, user UserID, path string) (Resource, error) {
	p, err := NormalizeDirPath(path)
	if err != nil {
		return Resource{}, fmt.Errorf("path validation failed: %w", err)
	}
	if !p.IsRoot() {
		found, err := s.exists(ctx, user, p)
		if err != nil {
			return Resource{}, err
		}
		if !found {
			return Resource{}, fmt.Errorf("directory '%s': %w", p, ErrNotFound)
		}
	}
	return newResource(p, 0), nil
}

// Create writes the marker object of the directory at path and returns its Resource.
// It fails with ErrAlreadyExists if the directory already exists, so a second call on the same path fails.
func (s *DirectoryService) Create(ctx context.Context, user UserID, path string) (Resource, error) {
	p, err := NormalizeDirPath(path)
	if err != nil {
		return Resource{}, fmt.Errorf("path validation failed: %w", err)
	}
	if p.IsRoot() {
		return Resource{}, fmt.Errorf("root directory cannot be created: %w", ErrInvalidPath)
	}
	found, err := s.exists(ctx, user, p)
	if err != nil {
		return Resource{}, err
	}
	if found {
		return Resource{}, fmt.Errorf("directory '%s': %w", p, ErrAlreadyExists)
	}
	if err := s.gateway.Put(ctx, s.namespace.ObjectKey(user, p), bytes.NewReader(nil), 0, DirectoryContentType); err != nil {
		return Resource{}, newOperationError("create directory", p, err)
	}
	s.logger.WithFields(logrus.Fields{"user": user, "path": p}).Info("directory created")
	return newResource(p, 0), nil
}

// List returns the immediate children of the directory at path in listing order.
// Deeper keys are collapsed into one directory child per first segment.
// Listing the root always succeeds; any other directory without objects is reported as ErrNotFound.
func (s *DirectoryService) List(ctx context.Context, user UserID, path string) ([]Resource, error) {
	p, err := NormalizeDirPath(path)
	if err != nil {
		return nil, fmt.Errorf("path validation failed: %w", err)
	}
	prefix := s.namespace.ObjectKey(user, p)

	found := false
	seen := map[string]struct{}{}
	children := []Resource{}
	for info, err := range s.gateway.List(ctx, prefix, ListOptions{}) {
		if err != nil {
			return nil, newOperationError("list", p, err)
		}
		found = true
		name, isDir, ok := collapseChild(prefix, info.Key, info.IsDir)
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		size := info.Size
		if isDir {
			size = 0
		}
		children = append(children, newResource(p.Join(Path(name)), size))
	}
	if !found && !p.IsRoot() {
		return nil, fmt.Errorf("directory '%s': %w", p, ErrNotFound)
	}
	return children, nil
}

// collapseChild maps a listed key to the name of the immediate child of prefix it belongs to.
// ok is false for keys outside prefix and for the marker of prefix itself.
func collapseChild(prefix, key string, isDir bool) (name string, dir bool, ok bool) {
	rest, found := strings.CutPrefix(key, prefix)
	if !found || rest == "" {
		return "", false, false
	}
	if i := strings.Index(rest, "/"); i >= 0 {
		return rest[:i+1], true, true
	}
	return rest, false, true
}

// Move moves every object below from to the same relative key below to.
//
// Objects are copied first and deleted only after all copies succeeded. If copying fails, the source is untouched
// and the copies already made remain at the destination. If deleting fails, both trees are partially present.
// In both cases the caller must treat the move as failed; nothing is rolled back.
func (s *DirectoryService) Move(ctx context.Context, user UserID, from, to string) error {
	fromPath, err := NormalizeDirPath(from)
	if err != nil {
		return fmt.Errorf("source path validation failed: %w", err)
	}
	toPath, err := NormalizeDirPath(to)
	if err != nil {
		return fmt.Errorf("destination path validation failed: %w", err)
	}
	if fromPath.IsRoot() || toPath.IsRoot() {
		return fmt.Errorf("root directory cannot be moved: %w", ErrInvalidPath)
	}
	if toPath.HasPrefix(fromPath) {
		return fmt.Errorf("directory '%s' cannot be moved into '%s': %w", fromPath, toPath, ErrInvalidPath)
	}

	found, err := s.exists(ctx, user, toPath)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("directory '%s': %w", toPath, ErrAlreadyExists)
	}

	fromPrefix := s.namespace.ObjectKey(user, fromPath)
	toPrefix := s.namespace.ObjectKey(user, toPath)
	objects, err := s.collect(ctx, fromPath, fromPrefix)
	if err != nil {
		return err
	}
	if len(objects) == 0 {
		return fmt.Errorf("directory '%s': %w", fromPath, ErrNotFound)
	}

	log := s.logger.WithFields(logrus.Fields{"user": user, "from": fromPath, "to": toPath, "objects": len(objects)})
	err = forEachBounded(ctx, s.concurrency, objects, func(ctx context.Context, info ObjectInfo) error {
		suffix := strings.TrimPrefix(info.Key, fromPrefix)
		if err := s.gateway.Copy(ctx, info.Key, toPrefix+suffix); err != nil {
			return newOperationError("copy", fromPath.Join(Path(suffix)), err)
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("directory move aborted during copy; destination may hold partial copies")
		return err
	}

	if err := s.deleteAll(ctx, fromPath, fromPrefix, objects); err != nil {
		log.WithError(err).Warn("directory move aborted during delete; source is partially removed")
		return err
	}
	log.Info("directory moved")
	return nil
}

// Delete removes every object below path. Deleting a directory without objects is a no-op.
func (s *DirectoryService) Delete(ctx context.Context, user UserID, path string) error {
	p, err := NormalizeDirPath(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	if p.IsRoot() {
		return fmt.Errorf("root directory cannot be deleted: %w", ErrInvalidPath)
	}
	prefix := s.namespace.ObjectKey(user, p)
	objects, err := s.collect(ctx, p, prefix)
	if err != nil {
		return err
	}
	if err := s.deleteAll(ctx, p, prefix, objects); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"user": user, "path": p, "objects": len(objects)}).Info("directory deleted")
	return nil
}

func (s *DirectoryService) deleteAll(ctx context.Context, p Path, prefix string, objects []ObjectInfo) error {
	return forEachBounded(ctx, s.concurrency, objects, func(ctx context.Context, info ObjectInfo) error {
		if err := s.gateway.Delete(ctx, info.Key); err != nil {
			return newOperationError("delete", p.Join(Path(strings.TrimPrefix(info.Key, prefix))), err)
		}
		return nil
	})
}

// collect lists every object below prefix.
func (s *DirectoryService) collect(ctx context.Context, p Path, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	for info, err := range s.gateway.List(ctx, prefix, ListOptions{Recursive: true}) {
		if err != nil {
			return nil, newOperationError("list", p, err)
		}
		objects = append(objects, info)
	}
	return objects, nil
}

// DownloadArchive writes the subtree at path to w as a ZIP archive whose entry names are relative to path.
// Directory markers are not written. Nothing is written when the directory does not exist.
func (s *DirectoryService) DownloadArchive(ctx context.Context, user UserID, path string, w io.Writer) error {
	p, err := NormalizeDirPath(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	if !p.IsRoot() {
		found, err := s.exists(ctx, user, p)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("directory '%s': %w", p, ErrNotFound)
		}
	}

	prefix := s.namespace.ObjectKey(user, p)
	if err := s.archiver.BuildZip(ctx, s.archiveEntries(ctx, prefix), w); err != nil {
		s.logger.WithFields(logrus.Fields{"user": user, "path": p}).WithError(err).Warn("directory archive aborted")
		return err
	}
	s.logger.WithFields(logrus.Fields{"user": user, "path": p}).Info("directory archived")
	return nil
}

func (s *DirectoryService) archiveEntries(ctx context.Context, prefix string) iter.Seq2[ArchiveEntry, error] {
	return func(yield func(ArchiveEntry, error) bool) {
		for info, err := range s.gateway.List(ctx, prefix, ListOptions{Recursive: true}) {
			if err != nil {
				yield(ArchiveEntry{}, err)
				return
			}
			if info.IsDir {
				continue
			}
			key := info.Key
			entry := ArchiveEntry{
				Name:     strings.TrimPrefix(key, prefix),
				Modified: info.LastModified,
				Open: func(ctx context.Context) (io.ReadCloser, error) {
					return s.gateway.Get(ctx, key)
				},
			}
			if !yield(entry, nil) {
				return
			}
		}
	}
}
