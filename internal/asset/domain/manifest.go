// Package domain defines the asset domain model: transcoder output, the
// encrypted-asset manifest produced by the segment encryptor, and the
// persisted asset/rendition/segment records.
package domain

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/streamvault/internal/crypto/domain"
)

// EncryptedSegment is one AEAD-encrypted media segment. The ciphertext
// carries the 16-byte authentication tag; the nonce and wrapped DEK are held
// out-of-band so serving a segment is a single record lookup.
//
// Invariant: decrypting Ciphertext with the correctly derived DEK and Nonce
// reproduces the transcoder's output byte-for-byte.
type EncryptedSegment struct {
	// Index is the derivation coordinate: the playback position, or
	// InitSegmentIndex for the init segment.
	Index int

	Ciphertext []byte
	Nonce      []byte

	// WrappedKey is the segment's DEK envelope-encrypted under the master key.
	WrappedKey cryptoDomain.WrappedKey

	OriginalSize  int64
	EncryptedSize int64
	MimeType      string
}

// EncryptedRendition is one quality variant with its segments encrypted.
// Segment order equals playback order and is significant.
type EncryptedRendition struct {
	Name            string
	Resolution      string
	Bitrate         int
	SegmentDuration float64

	// InitSegment is present for fragmented-MP4 renditions, encrypted
	// identically to a media segment under its own DEK.
	InitSegment *EncryptedSegment

	Segments []EncryptedSegment

	// Playlist is the rendition's media playlist text, rewritten to encrypted
	// segment locators at publish time.
	Playlist []byte
}

// EncryptedAssetManifest is the atomic output of encrypting one asset: it
// exists only when every rendition and segment encrypted successfully.
// Held in the result cache between the encrypt and publish steps.
type EncryptedAssetManifest struct {
	AssetID         uuid.UUID
	Duration        float64
	Poster          []byte
	Renditions      []EncryptedRendition
	EnvelopeVersion uint8
	CreatedAt       time.Time
}

// EncryptionStats aggregates manifest-wide encryption statistics. AEAD
// overhead is fixed per segment (one 16-byte tag each; nonces and wrapped
// keys live out-of-band), so the overhead percentage stays small and bounded
// regardless of segment sizes.
type EncryptionStats struct {
	SegmentCount       int     `json:"segment_count"`
	TotalOriginalSize  int64   `json:"total_original_size"`
	TotalEncryptedSize int64   `json:"total_encrypted_size"`
	OverheadPercentage float64 `json:"overhead_percentage"`
}

// CalculateEncryptionStats computes aggregate statistics over a manifest,
// init segments included.
func CalculateEncryptionStats(manifest *EncryptedAssetManifest) EncryptionStats {
	var stats EncryptionStats

	for _, rendition := range manifest.Renditions {
		segments := rendition.Segments
		if rendition.InitSegment != nil {
			segments = append([]EncryptedSegment{*rendition.InitSegment}, segments...)
		}
		for _, segment := range segments {
			stats.SegmentCount++
			stats.TotalOriginalSize += segment.OriginalSize
			stats.TotalEncryptedSize += segment.EncryptedSize
		}
	}

	if stats.TotalOriginalSize > 0 {
		overhead := stats.TotalEncryptedSize - stats.TotalOriginalSize
		stats.OverheadPercentage = float64(overhead) / float64(stats.TotalOriginalSize) * 100
	}

	return stats
}
