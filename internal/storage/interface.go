// Package storage provides the narrow client for the decentralized blob
// store (upload/fetch of opaque byte blobs by content identifier) and the
// content-locator normalizer that keeps stored URLs portable across
// storage-network topology changes.
package storage

import (
	"context"
)

// BlobStore is the pipeline's view of the decentralized storage network.
// Both operations are opaque, idempotent, and at-least-once; transient
// failures surface wrapped in errors.ErrUnavailable and are safe to retry.
type BlobStore interface {
	// Upload stores a blob and returns its content identifier.
	Upload(ctx context.Context, data []byte, mimeType string) (string, error)

	// Fetch retrieves a blob by URL or root-relative locator.
	Fetch(ctx context.Context, url string) ([]byte, error)
}
