// Package uploads stores product images. The default driver hands the file to
// the backend's file endpoint; an S3-compatible bucket can be used instead.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"path/filepath"
	"strings"
)

// MaxImageBytes caps an uploaded image.
const MaxImageBytes = 5 << 20

var (
	ErrUnsupportedType = errors.New("uploads: unsupported image type")
	ErrTooLarge        = errors.New("uploads: image too large")
)

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

func init() {
	ensureMimeType(".webp", "image/webp")
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		log.Printf("uploads: failed to register MIME type for %s: %v", ext, err)
	}
}

// Uploader stores an image and returns the URL the product should reference.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

// CheckImage validates name and size before any bytes leave the console.
func CheckImage(filename string, size int64) error {
	if !allowedExt[strings.ToLower(filepath.Ext(filename))] {
		return ErrUnsupportedType
	}
	if size > MaxImageBytes {
		return ErrTooLarge
	}
	return nil
}

// ContentType guesses the MIME type from the file extension.
func ContentType(filename string) string {
	if typ := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); typ != "" {
		return typ
	}
	return "application/octet-stream"
}

// BackendFiles is the file endpoint of the backend API.
type BackendFiles interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
	ResolveURL(ref string) string
}

// Backend uploads through POST /files/upload.
type Backend struct {
	files BackendFiles
}

func NewBackend(files BackendFiles) *Backend {
	return &Backend{files: files}
}

// Upload returns an absolute URL; the backend answers with a path relative to
// its own origin.
func (b *Backend) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	ref, err := b.files.Upload(ctx, filename, r)
	if err != nil {
		return "", fmt.Errorf("uploads: backend: %w", err)
	}
	return b.files.ResolveURL(ref), nil
}
