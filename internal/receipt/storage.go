package receipt

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ObjectStorage defines the interface for the receipt object bucket.
type ObjectStorage interface {
	// Put stores an object under key. Unless overwrite is set, an
	// existing object under the same key is an error.
	Put(key string, data []byte, contentType string, overwrite bool) error

	// SignedURL issues a time-limited capability URL for an otherwise
	// private object.
	SignedURL(key string, ttl time.Duration) (string, error)

	// Remove deletes an object.
	Remove(key string) error
}

// LocalObjectStorage implements ObjectStorage on the local filesystem.
// Signed URLs carry an HMAC-SHA256 token over the key and expiry, verified
// by the HTTP layer before serving the object.
type LocalObjectStorage struct {
	basePath string
	baseURL  string
	secret   []byte
	now      func() time.Time
}

// NewLocalObjectStorage creates the bucket directory if needed. baseURL is
// the externally visible prefix signed URLs are issued under.
func NewLocalObjectStorage(basePath, baseURL string, secret []byte) (*LocalObjectStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("signing secret is required")
	}

	return &LocalObjectStorage{
		basePath: basePath,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		secret:   secret,
		now:      time.Now,
	}, nil
}

// validKey rejects empty keys and path traversal.
func validKey(key string) bool {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return false
	}
	return true
}

// Put stores an object under key, refusing to clobber an existing object
// unless overwrite is set.
func (l *LocalObjectStorage) Put(key string, data []byte, contentType string, overwrite bool) error {
	if !validKey(key) {
		return fmt.Errorf("invalid object key %q", key)
	}

	path := filepath.Join(l.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating object directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return fmt.Errorf("writing object: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing object: %w", err)
	}
	return f.Close()
}

// Get retrieves an object by key.
func (l *LocalObjectStorage) Get(key string) ([]byte, error) {
	if !validKey(key) {
		return nil, fmt.Errorf("invalid object key %q", key)
	}
	data, err := os.ReadFile(filepath.Join(l.basePath, filepath.FromSlash(key)))
	if err != nil {
		return nil, fmt.Errorf("reading object: %w", err)
	}
	return data, nil
}

// Remove deletes an object.
func (l *LocalObjectStorage) Remove(key string) error {
	if !validKey(key) {
		return fmt.Errorf("invalid object key %q", key)
	}
	if err := os.Remove(filepath.Join(l.basePath, filepath.FromSlash(key))); err != nil {
		return fmt.Errorf("removing object: %w", err)
	}
	return nil
}

// SignedURL issues a capability URL of the form
// {base}/files/{key}?exp={unix}&sig={hex}.
func (l *LocalObjectStorage) SignedURL(key string, ttl time.Duration) (string, error) {
	if !validKey(key) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	exp := l.now().Add(ttl).Unix()
	sig := l.sign(key, exp)
	return fmt.Sprintf("%s/files/%s?exp=%d&sig=%s", l.baseURL, key, exp, sig), nil
}

// VerifySignedQuery checks the signature and expiry carried by a signed URL
// before the object is served.
func (l *LocalObjectStorage) VerifySignedQuery(key string, query url.Values) bool {
	exp, err := strconv.ParseInt(query.Get("exp"), 10, 64)
	if err != nil {
		return false
	}
	if l.now().Unix() > exp {
		return false
	}
	expected := l.sign(key, exp)
	return hmac.Equal([]byte(expected), []byte(query.Get("sig")))
}

func (l *LocalObjectStorage) sign(key string, exp int64) string {
	mac := hmac.New(sha256.New, l.secret)
	fmt.Fprintf(mac, "%s\n%d", key, exp)
	return hex.EncodeToString(mac.Sum(nil))
}
