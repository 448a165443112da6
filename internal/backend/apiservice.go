package backend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jo-hoe/imagebed/internal/backend/database"
	"github.com/jo-hoe/imagebed/internal/backend/imageprocessing"
	"github.com/jo-hoe/imagebed/internal/backend/storage"
	"github.com/jo-hoe/imagebed/internal/core"
	"github.com/labstack/echo/v4"
)

const mimeJPEG = "image/jpeg"

type APIService struct {
	coreService *core.CoreService
}

func NewAPIService(coreService *core.CoreService) *APIService {
	return &APIService{
		coreService: coreService,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Probe route for liveness checks
	e.GET("/probe", func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, "API Service is running")
	})

	e.POST("/upload", s.uploadHandler)
	e.GET("/image/:id", s.getImageHandler)
	e.GET("/thumb/:id", s.getThumbnailHandler)
	e.GET("/images", s.listImagesHandler)
	e.GET("/search", s.searchImagesHandler)
	e.POST("/search", s.searchImagesHandler)
	e.GET("/image-count", s.imageCountHandler)
}

func (s *APIService) uploadHandler(ctx echo.Context) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		slog.Warn("uploadHandler: invalid multipart body",
			"status", http.StatusBadRequest, "error", err)
		return ctx.String(http.StatusBadRequest, "Invalid multipart body")
	}

	// Both parts must be present before anything is persisted.
	tagsValues, ok := form.Value["tags"]
	if !ok || len(tagsValues) == 0 {
		slog.Warn("uploadHandler: missing tags field", "status", http.StatusBadRequest)
		return ctx.String(http.StatusBadRequest, "Missing tags field")
	}
	tags := tagsValues[0]

	fileHeaders, ok := form.File["image"]
	if !ok || len(fileHeaders) == 0 {
		slog.Warn("uploadHandler: missing image field", "status", http.StatusBadRequest)
		return ctx.String(http.StatusBadRequest, "Missing image field")
	}

	src, err := fileHeaders[0].Open()
	if err != nil {
		slog.Error("uploadHandler: failed to open uploaded file",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to open uploaded file")
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("uploadHandler: failed to close uploaded file reader", "error", cerr)
		}
	}()

	image, err := io.ReadAll(src)
	if err != nil {
		slog.Error("uploadHandler: failed to read uploaded file",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to read uploaded file")
	}

	id, err := s.coreService.AddImage(ctx.Request().Context(), tags, image)
	if err != nil {
		return s.writeError(ctx, "uploadHandler", err)
	}

	return ctx.JSON(http.StatusOK, &database.ImageRecord{ID: id, Tags: tags})
}

func (s *APIService) getImageHandler(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return ctx.String(http.StatusBadRequest, "Invalid image ID")
	}

	image, err := s.coreService.GetOriginal(id)
	if err != nil {
		return s.writeError(ctx, "getImageHandler", err)
	}

	setAttachmentHeader(ctx, id)
	return ctx.Blob(http.StatusOK, mimeJPEG, image)
}

func (s *APIService) getThumbnailHandler(ctx echo.Context) error {
	id, err := parseID(ctx)
	if err != nil {
		return ctx.String(http.StatusBadRequest, "Invalid image ID")
	}

	thumbnail, err := s.coreService.GetThumbnail(ctx.Request().Context(), id)
	if err != nil {
		return s.writeError(ctx, "getThumbnailHandler", err)
	}

	setAttachmentHeader(ctx, id)
	return ctx.Blob(http.StatusOK, mimeJPEG, thumbnail)
}

func (s *APIService) listImagesHandler(ctx echo.Context) error {
	records, err := s.coreService.ListImages()
	if err != nil {
		return s.writeError(ctx, "listImagesHandler", err)
	}
	if records == nil {
		records = []*database.ImageRecord{}
	}
	return ctx.JSON(http.StatusOK, records)
}

type searchRequest struct {
	Tags string `query:"tags" form:"tags"`
}

func (s *APIService) searchImagesHandler(ctx echo.Context) error {
	request := new(searchRequest)
	if err := ctx.Bind(request); err != nil {
		slog.Warn("searchImagesHandler: failed to bind request",
			"status", http.StatusBadRequest, "error", err)
		return ctx.String(http.StatusBadRequest, "Invalid search request")
	}

	records, err := s.coreService.SearchImages(request.Tags)
	if err != nil {
		return s.writeError(ctx, "searchImagesHandler", err)
	}
	if records == nil {
		records = []*database.ImageRecord{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (s *APIService) imageCountHandler(ctx echo.Context) error {
	count, err := s.coreService.CountImages(ctx.Request().Context())
	if err != nil {
		return s.writeError(ctx, "imageCountHandler", err)
	}
	return ctx.String(http.StatusOK, fmt.Sprintf("%d images in the database", count))
}

// writeError maps the error taxonomy onto HTTP status classes. Internal
// failures yield a 5xx response; they never terminate the process.
func (s *APIService) writeError(ctx echo.Context, handler string, err error) error {
	switch {
	case errors.Is(err, core.ErrValidation):
		slog.Warn(handler+": invalid upload", "status", http.StatusBadRequest, "error", err)
		return ctx.String(http.StatusBadRequest, "Missing or invalid upload fields")
	case errors.Is(err, storage.ErrNotFound):
		slog.Warn(handler+": image not available", "status", http.StatusNotFound, "error", err)
		return ctx.String(http.StatusNotFound, "Image not available")
	case errors.Is(err, storage.ErrConflict):
		// Ids are store-assigned and never reused; a conflict means the blob
		// directory and the database disagree.
		slog.Error(handler+": data integrity fault",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Internal storage conflict")
	case errors.Is(err, imageprocessing.ErrDecode):
		slog.Error(handler+": image could not be decoded",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to process uploaded image")
	default:
		slog.Error(handler+": internal error",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Internal server error")
	}
}

func parseID(ctx echo.Context) (int64, error) {
	return strconv.ParseInt(ctx.Param("id"), 10, 64)
}

func setAttachmentHeader(ctx echo.Context, id int64) {
	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%d.jpg", id))
}
