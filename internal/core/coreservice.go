package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jo-hoe/imagebed/internal/backend/cache"
	"github.com/jo-hoe/imagebed/internal/backend/database"
	"github.com/jo-hoe/imagebed/internal/backend/imageprocessing"
	"github.com/jo-hoe/imagebed/internal/backend/storage"
)

// ErrValidation marks malformed upload input. Surfaced as a client error,
// never as a server fault, and raised before any store mutation.
var ErrValidation = errors.New("invalid upload")

// CoreService owns the ingestion pipeline: metadata insert, durable original
// placement and thumbnail derivation, plus the startup reconciliation pass
// and the read-only retrieval surface.
type CoreService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	store           *storage.FileStore
	deriver         *imageprocessing.Deriver
	cacheClient     *cache.Client
}

func NewCoreService(config *ServiceConfig) (*CoreService, error) {
	databaseService, err := database.NewDatabase(
		config.Database.Type, config.Database.ConnectionString, config.CaseSensitiveSearch)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)

	store, err := storage.NewFileStore(config.ImagesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}

	command, err := imageprocessing.NewThumbnailCommand(
		config.ThumbnailMaxWidth, config.ThumbnailMaxHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize thumbnail command: %w", err)
	}

	cacheClient := cache.Nop()
	if config.Redis.Addr != "" {
		cacheClient, err = cache.NewClient(config.Redis.Addr, config.Redis.Password, config.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
	}

	return &CoreService{
		config:          config,
		databaseService: databaseService,
		store:           store,
		deriver:         imageprocessing.NewDeriver(store, command),
		cacheClient:     cacheClient,
	}, nil
}

func (service *CoreService) Close() error {
	cacheErr := service.cacheClient.Close()
	if err := service.databaseService.Close(); err != nil {
		return err
	}
	return cacheErr
}

// AddImage runs the ingestion pipeline for one upload and returns the
// store-assigned id once record, original and thumbnail all exist.
func (service *CoreService) AddImage(ctx context.Context, tags string, image []byte) (int64, error) {
	// Must fail before any store mutation; no partial record for bad input.
	if len(image) == 0 {
		return 0, fmt.Errorf("%w: missing image data", ErrValidation)
	}

	id, err := service.databaseService.CreateImage(tags)
	if err != nil {
		return 0, err
	}
	service.cacheClient.InvalidateCount(ctx)

	if err := service.store.WriteOriginal(id, image); err != nil {
		// The metadata record is now orphaned; there is no repair path for a
		// missing original, so this needs operator attention.
		slog.Error("original write failed; metadata record is orphaned",
			"image_id", id, "error", err)
		return 0, err
	}

	if err := service.deriver.Derive(id); err != nil {
		// Record and original persist; the reconciliation pass retries on
		// the next startup.
		slog.Warn("thumbnail derivation failed during ingest",
			"image_id", id, "error", err)
		return 0, err
	}
	service.cacheClient.InvalidateThumbnail(ctx, id)

	slog.Info("ingested image", "image_id", id, "tags", tags, "size_bytes", len(image))
	return id, nil
}

// Reconcile scans all records in ascending id order and derives any missing
// thumbnail. Runs once at startup, before the service accepts traffic.
// Per-record failures are reported and never abort the pass.
func (service *CoreService) Reconcile(ctx context.Context) error {
	records, err := service.databaseService.GetAllImages()
	if err != nil {
		return fmt.Errorf("reconciliation failed to list records: %w", err)
	}

	var repaired, failed int
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("reconciliation aborted: %w", err)
		}
		if service.store.ThumbnailExists(record.ID) {
			continue
		}

		if err := service.deriver.Derive(record.ID); err != nil {
			failed++
			switch {
			case errors.Is(err, storage.ErrNotFound):
				slog.Error("reconciliation found record without original; cannot repair",
					"image_id", record.ID, "error", err)
			case errors.Is(err, imageprocessing.ErrDecode):
				slog.Warn("reconciliation skipped undecodable original",
					"image_id", record.ID, "error", err)
			default:
				slog.Error("reconciliation failed to derive thumbnail",
					"image_id", record.ID, "error", err)
			}
			continue
		}
		repaired++
		service.cacheClient.InvalidateThumbnail(ctx, record.ID)
	}

	slog.Info("reconciliation pass complete",
		"records", len(records), "repaired", repaired, "failed", failed)
	return nil
}

func (service *CoreService) GetOriginal(id int64) ([]byte, error) {
	return service.store.ReadOriginal(id)
}

func (service *CoreService) GetThumbnail(ctx context.Context, id int64) ([]byte, error) {
	if data, ok := service.cacheClient.GetThumbnail(ctx, id); ok {
		return data, nil
	}

	data, err := service.store.ReadThumbnail(id)
	if err != nil {
		return nil, err
	}
	service.cacheClient.SetThumbnail(ctx, id, data)
	return data, nil
}

func (service *CoreService) ListImages() ([]*database.ImageRecord, error) {
	return service.databaseService.GetAllImages()
}

func (service *CoreService) SearchImages(substring string) ([]*database.ImageRecord, error) {
	return service.databaseService.SearchImages(substring)
}

func (service *CoreService) CountImages(ctx context.Context) (int64, error) {
	if count, ok := service.cacheClient.GetCount(ctx); ok {
		return count, nil
	}

	count, err := service.databaseService.CountImages()
	if err != nil {
		return 0, err
	}
	service.cacheClient.SetCount(ctx, count)
	return count, nil
}
