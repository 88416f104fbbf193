package recognition

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// transcribePrompt asks the vision model for a literal transcription. The
// layered field extraction happens locally on the returned text, so the
// model is told not to interpret anything.
const transcribePrompt = `You are reading a photographed receipt or invoice. Transcribe ALL visible text exactly as printed, line by line, preserving the original line order from top to bottom.

Rules:
- Output plain text only: no markdown, no code blocks, no commentary.
- Keep currency markers, punctuation and digits exactly as printed (e.g. "R$ 1.234,56").
- Keep dates exactly as printed (e.g. "05/03/2024").
- One receipt line per output line.
- Do not translate, summarize or interpret anything.`

// languageHint appends the expected document language to the prompt.
// Language codes follow the OCR convention, e.g. "por" for Portuguese.
func languageHint(language string) string {
	if language == "" {
		return transcribePrompt
	}
	return transcribePrompt + fmt.Sprintf("\n\nThe receipt text is most likely in language %q.", language)
}

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// pdfToImage renders the first page of a PDF as PNG. Most receipts are
// single page.
func pdfToImage(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// imageToPNG converts any supported image format to PNG.
func imageToPNG(imageData []byte) ([]byte, error) {
	var img image.Image
	var err error

	// HEIC/HEIF (common on iPhones) is not supported by Go's standard
	// image package.
	if isHEICFormat(imageData) {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isPDFFormat checks for the PDF magic header.
func isPDFFormat(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}

// isHEICFormat checks the ftyp box brands HEIC containers start with.
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// prepareImageData normalizes the input to PNG so every provider receives a
// format it understands. The format is sniffed from the bytes themselves.
func prepareImageData(imageData []byte) ([]byte, error) {
	switch {
	case isPDFFormat(imageData):
		pngData, err := pdfToImage(imageData)
		if err != nil {
			return nil, fmt.Errorf("converting PDF to image: %w", err)
		}
		return pngData, nil
	case bytes.HasPrefix(imageData, pngMagic):
		return imageData, nil
	default:
		pngData, err := imageToPNG(imageData)
		if err != nil {
			return nil, fmt.Errorf("converting image to PNG: %w", err)
		}
		return pngData, nil
	}
}
