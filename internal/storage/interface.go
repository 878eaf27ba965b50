package storage

import (
	"context"
	"io"
)

// ObjectStore defines the interface for persisting generated media.
// Keys are unique per call; no overwrite semantics are relied on.
type ObjectStore interface {
	// Upload writes an object and returns its public URL.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)

	// Download reads an object back from storage.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// PublicURL returns the URL for accessing an object.
	PublicURL(key string) string

	// Exists checks if an object exists.
	Exists(ctx context.Context, key string) (bool, error)
}
