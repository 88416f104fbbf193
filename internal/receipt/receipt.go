package receipt

// ExtractedReceipt holds the fields recovered from recognized receipt text.
// Every derived field is optional; RawText is always retained as the audit
// trail of record.
type ExtractedReceipt struct {
	AmountCents *int64  `json:"amount_cents,omitempty"` // Amount in centavos
	Date        *string `json:"date,omitempty"`         // Normalized YYYY-MM-DD
	Merchant    *string `json:"merchant,omitempty"`
	RawText     string  `json:"raw_text"`
}

// CompressedImage is the bounded-size JPEG produced for a single upload
// attempt. It is transient and not retained beyond the upload call.
type CompressedImage struct {
	Data        []byte
	Width       int
	Height      int
	ContentType string
}

// UploadResult is returned by the upload workflow on success.
type UploadResult struct {
	URL     string `json:"url"`
	Key     string `json:"key"`
	OCRText string `json:"ocr_text,omitempty"`

	// Compressed is the stored image, kept in memory so the caller can
	// feed the same bytes to the recognizer without re-reading storage.
	Compressed *CompressedImage `json:"-"`
}
