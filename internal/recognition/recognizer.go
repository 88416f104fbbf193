package recognition

import "context"

// Recognizer converts a receipt image into a best-effort plain-text
// transcription. The progress callback reports completion in [0,1]; it is
// invoked from the recognizing goroutine and may be nil.
type Recognizer interface {
	Recognize(ctx context.Context, imageData []byte, language string, progress func(float64)) (string, error)

	// Close releases any client resources.
	Close() error
}
