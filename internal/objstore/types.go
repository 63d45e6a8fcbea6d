package objstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrUnknownBackend is returned by factories for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Store provides the object storage operations the gallery relies on.
// This interface enables swapping backends and mocking storage in tests.
type Store interface {
	// Put writes body under key. size may be -1 when unknown.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error

	// List returns the full keys of every object under prefix, in the order
	// the backend enumerates them.
	List(ctx context.Context, prefix string) ([]string, error)

	// Close releases the underlying client.
	Close() error
}

// Signer is implemented by backends able to mint time-limited read URLs.
type Signer interface {
	// SignedURL returns a GET URL for key that expires after ttl.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
