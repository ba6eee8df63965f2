// Package media stores uploaded product images.
package media

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/fjod/natal_store/internal/apperr"
	"github.com/fjod/natal_store/internal/config"
	"github.com/oklog/ulid/v2"
)

var (
	ErrUnsupportedType = apperr.Invalid("unsupported_media_type", "Envie apenas imagens (JPG, PNG, GIF ou WebP).")
	ErrEmptyFile       = apperr.Invalid("empty_file", "Arquivo vazio.")
)

// Storage saves an object and returns the URL it is served from.
type Storage interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// NewStorage returns S3 storage when a bucket is configured and inline data
// URLs otherwise.
func NewStorage(ctx context.Context, cfg config.S3Config) (Storage, error) {
	if !cfg.Enabled() {
		return DataURLStorage{}, nil
	}
	s, err := NewS3Storage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// DetectImageType sniffs data and accepts it only if it is an image.
func DetectImageType(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrUnsupportedType
	}
	return contentType, nil
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// ProductImageKey builds a unique object key, keeping the uploaded file's
// extension when the content type does not imply one.
func ProductImageKey(filename, contentType string) string {
	ext, ok := extensions[contentType]
	if !ok {
		ext = strings.ToLower(path.Ext(filename))
	}
	return "products/" + strings.ToLower(ulid.Make().String()) + ext
}

// Upload validates data and stores it under a fresh product image key.
func Upload(ctx context.Context, storage Storage, filename string, data []byte) (string, error) {
	contentType, err := DetectImageType(data)
	if err != nil {
		return "", err
	}
	return storage.Put(ctx, ProductImageKey(filename, contentType), contentType, data)
}

// Uploader binds Upload to one Storage.
type Uploader struct {
	Storage Storage
}

func (u Uploader) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	return Upload(ctx, u.Storage, filename, data)
}
