package storage

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()

	store, err := NewFileStore(filepath.Join(t.TempDir(), "images"))
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	return store
}

func TestFileStore_WriteReadOriginal(t *testing.T) {
	store := newTestStore(t)

	want := []byte{0xff, 0xd8, 0xff, 0x01, 0x02}
	if err := store.WriteOriginal(1, want); err != nil {
		t.Fatalf("WriteOriginal error: %v", err)
	}

	got, err := store.ReadOriginal(1)
	if err != nil {
		t.Fatalf("ReadOriginal error: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("ReadOriginal mismatch: got %v, want %v", got, want)
	}
}

func TestFileStore_WriteOriginal_ConflictKeepsFirstBytes(t *testing.T) {
	store := newTestStore(t)

	first := []byte("first upload")
	if err := store.WriteOriginal(7, first); err != nil {
		t.Fatalf("WriteOriginal #1 error: %v", err)
	}

	err := store.WriteOriginal(7, []byte("second upload"))
	if err == nil {
		t.Fatalf("expected conflict on second write, got nil")
	}
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	got, err := store.ReadOriginal(7)
	if err != nil {
		t.Fatalf("ReadOriginal error: %v", err)
	}
	if !bytes.Equal(got, first) {
		t.Fatalf("first-written bytes altered: got %q", string(got))
	}
}

func TestFileStore_ReadOriginal_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ReadOriginal(42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStore_ThumbnailOverwriteAllowed(t *testing.T) {
	store := newTestStore(t)

	if store.ThumbnailExists(3) {
		t.Fatalf("thumbnail should not exist before write")
	}

	if err := store.WriteThumbnail(3, []byte("v1")); err != nil {
		t.Fatalf("WriteThumbnail #1 error: %v", err)
	}
	if err := store.WriteThumbnail(3, []byte("v2")); err != nil {
		t.Fatalf("WriteThumbnail #2 error: %v", err)
	}

	if !store.ThumbnailExists(3) {
		t.Fatalf("expected thumbnail to exist")
	}
	got, err := store.ReadThumbnail(3)
	if err != nil {
		t.Fatalf("ReadThumbnail error: %v", err)
	}
	if string(got) != "v2" {
		t.Fatalf("expected overwritten thumbnail %q, got %q", "v2", string(got))
	}
}

func TestFileStore_ReadThumbnail_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ReadThumbnail(9)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStore_OpenOriginal(t *testing.T) {
	store := newTestStore(t)

	want := []byte("streamable")
	if err := store.WriteOriginal(5, want); err != nil {
		t.Fatalf("WriteOriginal error: %v", err)
	}

	reader, err := store.OpenOriginal(5)
	if err != nil {
		t.Fatalf("OpenOriginal error: %v", err)
	}
	defer func() { _ = reader.Close() }()

	got, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll error: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("streamed bytes mismatch: got %q", string(got))
	}

	if _, err := store.OpenOriginal(6); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent id, got %v", err)
	}
}
