package receipt

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// SignedURLTTL is the retrieval window for stored receipts. The bucket is
// private, so ten years is treated as effectively permanent.
const SignedURLTTL = 10 * 365 * 24 * time.Hour

// Sentinel errors for the upload workflow. Callers only ever see
// ErrUploadFailed; the specific cause is logged for diagnostics.
var (
	ErrUploadFailed = errors.New("receipt upload failed")
	ErrNoIdentity   = errors.New("no authenticated user")
)

// Identity supplies a stable actor identifier. Absence is a precondition
// failure for upload.
type Identity interface {
	CurrentUserID() (string, error)
}

// StaticIdentity is a fixed single-user identity configured at startup.
type StaticIdentity string

func (s StaticIdentity) CurrentUserID() (string, error) {
	if s == "" {
		return "", ErrNoIdentity
	}
	return string(s), nil
}

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time.
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Uploader runs the receipt upload workflow: identity check, compression,
// object storage and URL signing.
type Uploader struct {
	identity   Identity
	storage    ObjectStorage
	compressor *Compressor
	timeSource TimeSource
}

// NewUploader creates an Uploader with the real clock.
func NewUploader(identity Identity, storage ObjectStorage, compressor *Compressor) *Uploader {
	return NewUploaderWithDeps(identity, storage, compressor, &defaultTimeSource{})
}

// NewUploaderWithDeps creates an Uploader with a custom time source for
// testing.
func NewUploaderWithDeps(identity Identity, storage ObjectStorage, compressor *Compressor, timeSource TimeSource) *Uploader {
	if compressor == nil {
		compressor = NewCompressor(DefaultMaxWidth, DefaultQuality)
	}
	return &Uploader{
		identity:   identity,
		storage:    storage,
		compressor: compressor,
		timeSource: timeSource,
	}
}

// Upload compresses the image, stores it under {userID}/{unixMillis}.jpg
// (always .jpg, since the compressor always emits JPEG) without overwriting,
// and returns a long-lived signed URL. Any failure along the way aborts the
// whole workflow: the cause is logged and collapsed into ErrUploadFailed.
// There is no partial-success state and no automatic retry.
func (u *Uploader) Upload(data []byte, contentType, ocrText string) (*UploadResult, error) {
	userID, err := u.identity.CurrentUserID()
	if err != nil {
		slog.Error("upload precondition failed", "error", err)
		return nil, ErrUploadFailed
	}

	compressed, err := u.compressor.Compress(data, contentType)
	if err != nil {
		slog.Error("failed to compress receipt image",
			"user_id", userID,
			"content_type", contentType,
			"input_bytes", len(data),
			"error", err,
		)
		return nil, ErrUploadFailed
	}

	key := fmt.Sprintf("%s/%d.jpg", userID, u.timeSource.Now().UnixMilli())

	if err := u.storage.Put(key, compressed.Data, compressed.ContentType, false); err != nil {
		slog.Error("failed to store receipt image", "key", key, "error", err)
		return nil, ErrUploadFailed
	}

	url, err := u.storage.SignedURL(key, SignedURLTTL)
	if err != nil {
		slog.Error("failed to sign receipt URL", "key", key, "error", err)
		// Don't leave an unreachable object behind.
		if rmErr := u.storage.Remove(key); rmErr != nil {
			slog.Warn("failed to remove orphaned object", "key", key, "error", rmErr)
		}
		return nil, ErrUploadFailed
	}

	slog.Info("receipt uploaded",
		"key", key,
		"original_bytes", len(data),
		"stored_bytes", len(compressed.Data),
	)

	return &UploadResult{
		URL:        url,
		Key:        key,
		OCRText:    ocrText,
		Compressed: compressed,
	}, nil
}
