package imageprocessing

import (
	"fmt"
	"log/slog"
)

// BlobStore is the subset of the blob store the deriver needs.
type BlobStore interface {
	ReadOriginal(id int64) ([]byte, error)
	WriteThumbnail(id int64, data []byte) error
}

// Deriver turns a stored original into its thumbnail artifact.
type Deriver struct {
	store   BlobStore
	command *ThumbnailCommand
}

func NewDeriver(store BlobStore, command *ThumbnailCommand) *Deriver {
	return &Deriver{
		store:   store,
		command: command,
	}
}

// Derive reads the original for id, produces a thumbnail and writes it,
// unconditionally overwriting any prior thumbnail. Idempotent: a second
// derivation from the same original leaves the store in the same observable
// state. A missing original (storage.ErrNotFound) and undecodable bytes
// (ErrDecode) are propagated, not retried.
func (d *Deriver) Derive(id int64) error {
	original, err := d.store.ReadOriginal(id)
	if err != nil {
		return fmt.Errorf("derive thumbnail for id %d: %w", id, err)
	}

	thumbnail, err := d.command.Execute(original)
	if err != nil {
		return fmt.Errorf("derive thumbnail for id %d: %w", id, err)
	}

	if err := d.store.WriteThumbnail(id, thumbnail); err != nil {
		return fmt.Errorf("derive thumbnail for id %d: %w", id, err)
	}

	slog.Debug("derived thumbnail", "image_id", id, "size_bytes", len(thumbnail))
	return nil
}
