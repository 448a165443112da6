package imageprocessing

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jo-hoe/imagebed/internal/backend/storage"
)

func newTestDeriver(t *testing.T) (*Deriver, *storage.FileStore) {
	t.Helper()

	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "images"))
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	command := newTestCommand(t)
	return NewDeriver(store, command), store
}

func TestDeriver_WritesThumbnail(t *testing.T) {
	deriver, store := newTestDeriver(t)

	if err := store.WriteOriginal(1, encodeTestJPEG(t, 200, 320)); err != nil {
		t.Fatalf("WriteOriginal error: %v", err)
	}

	if err := deriver.Derive(1); err != nil {
		t.Fatalf("Derive error: %v", err)
	}

	if !store.ThumbnailExists(1) {
		t.Fatalf("expected thumbnail to exist after derivation")
	}
	thumb, err := store.ReadThumbnail(1)
	if err != nil {
		t.Fatalf("ReadThumbnail error: %v", err)
	}
	width, height := decodeJPEGDims(t, thumb)
	if width > 100 || height > 100 {
		t.Fatalf("thumbnail exceeds bounding box: %dx%d", width, height)
	}
}

func TestDeriver_Idempotent(t *testing.T) {
	deriver, store := newTestDeriver(t)

	if err := store.WriteOriginal(2, encodeTestJPEG(t, 200, 320)); err != nil {
		t.Fatalf("WriteOriginal error: %v", err)
	}

	if err := deriver.Derive(2); err != nil {
		t.Fatalf("Derive #1 error: %v", err)
	}
	first, err := store.ReadThumbnail(2)
	if err != nil {
		t.Fatalf("ReadThumbnail error: %v", err)
	}

	if err := deriver.Derive(2); err != nil {
		t.Fatalf("Derive #2 error: %v", err)
	}
	second, err := store.ReadThumbnail(2)
	if err != nil {
		t.Fatalf("ReadThumbnail error: %v", err)
	}

	if !store.ThumbnailExists(2) {
		t.Fatalf("expected thumbnail to still exist")
	}
	// Same unchanged original, deterministic pipeline: identical output.
	if !bytes.Equal(first, second) {
		t.Fatalf("expected repeated derivation to produce identical bytes")
	}
}

func TestDeriver_MissingOriginal(t *testing.T) {
	deriver, store := newTestDeriver(t)

	err := deriver.Derive(99)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected storage.ErrNotFound, got %v", err)
	}
	if store.ThumbnailExists(99) {
		t.Fatalf("no thumbnail should be written for a missing original")
	}
}

func TestDeriver_CorruptOriginal(t *testing.T) {
	deriver, store := newTestDeriver(t)

	if err := store.WriteOriginal(3, []byte("not an image")); err != nil {
		t.Fatalf("WriteOriginal error: %v", err)
	}

	err := deriver.Derive(3)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if store.ThumbnailExists(3) {
		t.Fatalf("no thumbnail should be written for a corrupt original")
	}
}
