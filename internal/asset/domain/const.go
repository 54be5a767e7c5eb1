package domain

// InitSegmentIndex is the derivation coordinate for a rendition's
// fragmented-MP4 init segment. A dedicated sentinel keeps the init segment's
// DEK distinct from segment 0's; index 0 is never reused.
const InitSegmentIndex = -1

// AssetStatus tracks an asset through the ingest flow.
type AssetStatus string

const (
	// AssetStatusPending marks an asset whose manifest is encrypted and cached
	// but not yet published.
	AssetStatusPending AssetStatus = "pending"

	// AssetStatusPublished marks an asset whose encrypted segments and records
	// are durably persisted.
	AssetStatusPublished AssetStatus = "published"
)

// MIME types for encrypted media served by the playback path. The stored
// value follows the segment container, not the encryption (ciphertext is
// served with the plaintext's type after decryption).
const (
	MimeTypeMPEGTS   = "video/mp2t"
	MimeTypeMP4      = "video/mp4"
	MimeTypePlaylist = "application/vnd.apple.mpegurl"
	MimeTypeJPEG     = "image/jpeg"
)
