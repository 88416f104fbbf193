package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"log/slog"
	"math"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
	"golang.org/x/image/draw"
)

// Sentinel errors for the two terminal failure modes of a compression
// attempt. Both abort the single upload attempt; there is no retry.
var (
	ErrDecode = errors.New("cannot decode source image")
	ErrEncode = errors.New("cannot encode compressed image")
)

const (
	// DefaultMaxWidth bounds the pixel width of stored receipt images.
	DefaultMaxWidth = 1200
	// DefaultQuality is the JPEG re-encoding fidelity in (0,1].
	DefaultQuality = 0.8
)

// Compressor downsamples and re-encodes receipt photos to bound upload size.
// Output is always JPEG regardless of the input format.
type Compressor struct {
	MaxWidth int
	Quality  float64
}

// NewCompressor creates a Compressor, applying defaults for out-of-range
// parameters.
func NewCompressor(maxWidth int, quality float64) *Compressor {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	if quality <= 0 || quality > 1 {
		quality = DefaultQuality
	}
	return &Compressor{MaxWidth: maxWidth, Quality: quality}
}

// Compress decodes the source image, scales it down to MaxWidth preserving
// aspect ratio when it is wider, and re-encodes it as JPEG at the configured
// quality. Images at or below MaxWidth are never upscaled.
func (c *Compressor) Compress(data []byte, contentType string) (*CompressedImage, error) {
	img, err := decodeSource(data, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > c.MaxWidth {
		scaledHeight := int(math.Round(float64(height) * float64(c.MaxWidth) / float64(width)))
		scaled := image.NewRGBA(image.Rect(0, 0, c.MaxWidth, scaledHeight))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Src, nil)
		img = scaled
		width = c.MaxWidth
		height = scaledHeight
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: int(math.Round(c.Quality * 100))}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrEncode)
	}

	slog.Debug("compressed receipt image",
		"input_bytes", len(data),
		"output_bytes", buf.Len(),
		"width", width,
		"height", height,
	)

	return &CompressedImage{
		Data:        buf.Bytes(),
		Width:       width,
		Height:      height,
		ContentType: "image/jpeg",
	}, nil
}

// decodeSource decodes an arbitrary-format receipt into an image. PDFs are
// rendered at their first page (most receipts are single page) and HEIC, the
// default iPhone format, is handled by a dedicated decoder since Go's image
// package does not support it.
func decodeSource(data []byte, contentType string) (image.Image, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))

	if mimeType == "application/pdf" || isPDFData(data) {
		doc, err := fitz.NewFromMemory(data)
		if err != nil {
			return nil, fmt.Errorf("opening PDF: %w", err)
		}
		defer doc.Close()

		img, err := doc.Image(0)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page: %w", err)
		}
		return img, nil
	}

	if isHEICData(data) || isHEICMimeType(mimeType) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// isPDFData checks for the PDF magic header.
func isPDFData(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}

// isHEICData checks the ftyp box brands HEIC containers start with.
func isHEICData(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF.
func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
