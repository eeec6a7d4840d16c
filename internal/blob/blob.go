// Package blob defines the storage boundary export files are written
// through.
package blob

import "context"

// Storage stores export artifacts under opaque keys.
type Storage interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// Presign returns a URL-or-path a caller can hand out to download the
	// blob. Implementations without signed URLs return a direct location.
	Presign(ctx context.Context, key string) (string, error)
}
