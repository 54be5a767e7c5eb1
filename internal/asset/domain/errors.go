package domain

import (
	"github.com/allisson/streamvault/internal/errors"
)

var (
	// ErrAssetNotFound indicates the asset does not exist in the metadata store.
	ErrAssetNotFound = errors.Wrap(errors.ErrNotFound, "asset not found")

	// ErrSegmentNotFound indicates no segment record matches the requested
	// (asset, rendition, index) coordinates.
	ErrSegmentNotFound = errors.Wrap(errors.ErrNotFound, "segment not found")

	// ErrRenditionNotFound indicates the asset has no rendition with the requested name.
	ErrRenditionNotFound = errors.Wrap(errors.ErrNotFound, "rendition not found")

	// ErrManifestNotCached indicates the publish step found no cached
	// encrypted-asset manifest for the asset: either encryption never ran on
	// this instance or the cache entry expired.
	ErrManifestNotCached = errors.Wrap(errors.ErrNotFound, "encrypted manifest not cached")

	// ErrAssetAlreadyPublished indicates a duplicate publish attempt.
	ErrAssetAlreadyPublished = errors.Wrap(errors.ErrConflict, "asset already published")

	// ErrEmptyTranscodeResult indicates the transcoder output has no renditions
	// or a rendition with no segments.
	ErrEmptyTranscodeResult = errors.Wrap(errors.ErrInvalidInput, "empty transcode result")
)
