// Package mediastore stores binary media: uploaded fridge photos, generated
// dish illustrations and chef-tip audio.
package mediastore

import (
	"context"
	"errors"
	"io"
	"mime"
	"strings"
)

// ErrNotFound is returned by Get and Delete for unknown keys.
var ErrNotFound = errors.New("media not found")

type Store interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (storageKey string, err error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, storageKey string) error
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"audio/mpeg": ".mp3",
	"audio/wav":  ".wav",
	"audio/ogg":  ".ogg",
}

// ExtensionFor maps a MIME type to the file extension used in keys.
func ExtensionFor(mimeType string) string {
	if ext, ok := extensions[mimeType]; ok {
		return ext
	}
	return ".bin"
}

// MimeTypeFor maps a key's extension back to its MIME type.
func MimeTypeFor(key string) string {
	idx := strings.LastIndexByte(key, '.')
	if idx < 0 {
		return "application/octet-stream"
	}
	ext := strings.ToLower(key[idx:])
	for m, e := range extensions {
		if e == ext {
			return m
		}
	}
	if m := mime.TypeByExtension(ext); m != "" {
		return m
	}
	return "application/octet-stream"
}
