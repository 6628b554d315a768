// Package storage defines the object-store contract for rendered PDFs and
// its S3-backed implementation. Objects are addressed by deterministic keys;
// nothing in this system lists or enumerates the bucket.
package storage

import "context"

// ObjectStore stores and retrieves opaque byte blobs by key.
type ObjectStore interface {
	// Upload stores data under key, overwriting any previous object.
	Upload(ctx context.Context, key string, data []byte) error

	// Get fetches the object stored under key. A missing key yields
	// common.ErrorNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// URL returns the public URL of the object stored under key. It does
	// not check existence.
	URL(key string) string
}
