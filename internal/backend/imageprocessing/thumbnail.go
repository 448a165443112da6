package imageprocessing

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// ErrDecode indicates the input bytes could not be decoded as an image in
// any supported format. Fatal to one derivation, never to the service.
var ErrDecode = errors.New("unable to decode image")

// ThumbnailCommand produces a JPEG thumbnail fitting within a bounding box
// while preserving aspect ratio. Originals smaller than the box are never
// upscaled.
type ThumbnailCommand struct {
	name      string
	maxWidth  int
	maxHeight int
}

func NewThumbnailCommand(maxWidth, maxHeight int) (*ThumbnailCommand, error) {
	if maxWidth <= 0 {
		return nil, fmt.Errorf("maxWidth must be positive, got %d", maxWidth)
	}
	if maxHeight <= 0 {
		return nil, fmt.Errorf("maxHeight must be positive, got %d", maxHeight)
	}

	return &ThumbnailCommand{
		name:      "ThumbnailCommand",
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
	}, nil
}

// Name returns the command name
func (c *ThumbnailCommand) Name() string {
	return c.name
}

// Execute decodes the image, scales it into the bounding box and encodes the
// result as JPEG.
func (c *ThumbnailCommand) Execute(imageData []byte) ([]byte, error) {
	slog.Debug("ThumbnailCommand: decoding image",
		"input_size_bytes", len(imageData))

	img, err := c.decode(imageData)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	originalWidth := bounds.Dx()
	originalHeight := bounds.Dy()

	scaledWidth, scaledHeight := fitBoundingBox(originalWidth, originalHeight, c.maxWidth, c.maxHeight)

	slog.Debug("ThumbnailCommand: scaled dimensions calculated",
		"original_width", originalWidth,
		"original_height", originalHeight,
		"scaled_width", scaledWidth,
		"scaled_height", scaledHeight)

	if scaledWidth != originalWidth || scaledHeight != originalHeight {
		scaled := image.NewRGBA(image.Rect(0, 0, scaledWidth, scaledHeight))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, xdraw.Src, nil)
		img = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		slog.Error("ThumbnailCommand: failed to encode thumbnail", "error", err)
		return nil, fmt.Errorf("failed to encode thumbnail to JPEG: %w", err)
	}

	slog.Debug("ThumbnailCommand: thumbnail complete",
		"output_size_bytes", buf.Len())

	return buf.Bytes(), nil
}

// decode attempts format detection from magic bytes first, then generic
// auto-detection, then an SVG rasterization fallback.
func (c *ThumbnailCommand) decode(imageData []byte) (image.Image, error) {
	if format, ok := detectFormat(imageData); ok {
		img, err := decodeAs(format, imageData)
		if err == nil {
			return img, nil
		}
		slog.Debug("ThumbnailCommand: sniffed format failed to decode; falling back",
			"sniffed_format", format, "error", err)
	}

	// Generic auto-detect across all registered decoders.
	img, genericFormat, err := image.Decode(bytes.NewReader(imageData))
	if err == nil {
		slog.Debug("ThumbnailCommand: generic decode succeeded", "format", genericFormat)
		return img, nil
	}

	if isSVGData(imageData) {
		return c.renderSVG(imageData)
	}

	slog.Error("ThumbnailCommand: failed to decode image", "error", err)
	return nil, fmt.Errorf("%w: %v", ErrDecode, err)
}

// renderSVG rasterizes SVG input onto a white canvas of bounding-box size.
func (c *ThumbnailCommand) renderSVG(svgData []byte) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, fmt.Errorf("%w: parse SVG: %v", ErrDecode, err)
	}

	icon.SetTarget(0, 0, float64(c.maxWidth), float64(c.maxHeight))

	dst := image.NewRGBA(image.Rect(0, 0, c.maxWidth, c.maxHeight))
	white := color.RGBA{255, 255, 255, 255}
	xdraw.Draw(dst, dst.Bounds(), &image.Uniform{white}, image.Point{}, xdraw.Src)

	scanner := rasterx.NewScannerGV(c.maxWidth, c.maxHeight, dst, dst.Bounds())
	dasher := rasterx.NewDasher(c.maxWidth, c.maxHeight, scanner)
	icon.Draw(dasher, 1.0)

	slog.Debug("ThumbnailCommand: rasterized SVG input",
		"width", c.maxWidth, "height", c.maxHeight)
	return dst, nil
}

// fitBoundingBox scales (width, height) to fit within (maxWidth, maxHeight)
// preserving aspect ratio, never enlarging, never returning zero dimensions.
func fitBoundingBox(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	widthRatio := float64(maxWidth) / float64(width)
	heightRatio := float64(maxHeight) / float64(height)
	ratio := widthRatio
	if heightRatio < ratio {
		ratio = heightRatio
	}

	scaledWidth := int(float64(width) * ratio)
	scaledHeight := int(float64(height) * ratio)
	if scaledWidth < 1 {
		scaledWidth = 1
	}
	if scaledHeight < 1 {
		scaledHeight = 1
	}
	return scaledWidth, scaledHeight
}

func decodeAs(format string, data []byte) (image.Image, error) {
	reader := bytes.NewReader(data)
	switch format {
	case "jpeg":
		return jpeg.Decode(reader)
	case "png":
		return png.Decode(reader)
	case "gif":
		return gif.Decode(reader)
	case "bmp":
		return bmp.Decode(reader)
	case "tiff":
		return tiff.Decode(reader)
	case "webp":
		return webp.Decode(reader)
	default:
		return nil, fmt.Errorf("no decoder for format %s", format)
	}
}

// detectFormat sniffs the image format from magic bytes.
func detectFormat(data []byte) (string, bool) {
	switch {
	case len(data) >= 3 && bytes.Equal(data[:3], []byte{0xff, 0xd8, 0xff}):
		return "jpeg", true
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}):
		return "png", true
	case len(data) >= 4 && bytes.Equal(data[:4], []byte("GIF8")):
		return "gif", true
	case len(data) >= 2 && bytes.Equal(data[:2], []byte("BM")):
		return "bmp", true
	case len(data) >= 4 && (bytes.Equal(data[:4], []byte("II*\x00")) || bytes.Equal(data[:4], []byte("MM\x00*"))):
		return "tiff", true
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "webp", true
	default:
		return "", false
	}
}

// isSVGData performs a lightweight detection of SVG content from raw bytes.
// It checks for "<svg" tag or SVG namespace in the initial portion of the data.
func isSVGData(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	// Only inspect the first ~4KB for detection
	n := len(data)
	if n > 4096 {
		n = 4096
	}
	header := bytes.ToLower(bytes.TrimSpace(data[:n]))
	return bytes.HasPrefix(header, []byte("<svg")) ||
		bytes.Contains(header, []byte("<svg")) ||
		bytes.Contains(header, []byte("xmlns=\"http://www.w3.org/2000/svg\"")) ||
		bytes.Contains(header, []byte("xmlns='http://www.w3.org/2000/svg'"))
}
