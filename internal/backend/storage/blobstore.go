package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

var (
	// ErrNotFound indicates the requested artifact does not exist on disk.
	ErrNotFound = errors.New("blob not found")
	// ErrConflict indicates an original already exists for the id. Ids are
	// store-assigned and never reused, so this signals a data-integrity fault.
	ErrConflict = errors.New("original already exists")
)

// FileStore keeps two artifacts per image id in a single directory:
// the immutable original (<id>.jpg) and its derived thumbnail (<id>_thumb.jpg).
type FileStore struct {
	baseDir string
}

func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create images directory %s: %w", baseDir, err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) OriginalPath(id int64) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%d.jpg", id))
}

func (s *FileStore) ThumbnailPath(id int64) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%d_thumb.jpg", id))
}

// WriteOriginal stores the raw uploaded bytes for an id. Originals are
// write-once: an occupied path yields ErrConflict and the existing bytes
// are left untouched.
func (s *FileStore) WriteOriginal(id int64, data []byte) error {
	path := s.OriginalPath(id)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: id %d", ErrConflict, id)
		}
		return fmt.Errorf("failed to create original %s: %w", path, err)
	}

	_, err = file.Write(data)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		slog.Error("failed to write original", "path", path, "error", err)
		return fmt.Errorf("failed to write original %s: %w", path, err)
	}
	return nil
}

func (s *FileStore) ReadOriginal(id int64) ([]byte, error) {
	return s.readFile(s.OriginalPath(id))
}

// WriteThumbnail replaces the thumbnail for an id. The write goes through a
// temp file and rename so a concurrent reader never observes a torn file.
func (s *FileStore) WriteThumbnail(id int64, data []byte) error {
	path := s.ThumbnailPath(id)
	tmp, err := os.CreateTemp(s.baseDir, fmt.Sprintf(".%d_thumb-*", id))
	if err != nil {
		return fmt.Errorf("failed to create temp thumbnail for id %d: %w", id, err)
	}

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write thumbnail %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to place thumbnail %s: %w", path, err)
	}
	return nil
}

func (s *FileStore) ReadThumbnail(id int64) ([]byte, error) {
	return s.readFile(s.ThumbnailPath(id))
}

func (s *FileStore) ThumbnailExists(id int64) bool {
	info, err := os.Stat(s.ThumbnailPath(id))
	return err == nil && info.Mode().IsRegular()
}

// OpenOriginal returns a reader over the original bytes for streaming
// responses; the caller owns closing it.
func (s *FileStore) OpenOriginal(id int64) (io.ReadCloser, error) {
	file, err := os.Open(s.OriginalPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: original for id %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to open original for id %d: %w", id, err)
	}
	return file, nil
}

func (s *FileStore) readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
