package domain

import (
	"time"

	"github.com/google/uuid"
)

// Asset is the persisted record for one published media asset. The pipeline
// writes these records at publish time; their lifecycle (deletion, listing)
// belongs to the metadata store's owners.
type Asset struct {
	ID                uuid.UUID
	Status            AssetStatus
	Duration          float64
	MasterPlaylistCID string
	PosterCID         string

	// EnvelopeVersion records the wrapping scheme: 1 for legacy root-secret
	// envelopes, 2 for per-segment DEK envelopes.
	EnvelopeVersion uint8

	// WrappedRootSecret holds the marshaled version-1 envelope for legacy
	// assets; empty once migrated to per-segment wrapping.
	WrappedRootSecret []byte

	SegmentCount  int
	OriginalSize  int64
	EncryptedSize int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Rendition is the persisted record for one quality variant of an asset.
type Rendition struct {
	ID              uuid.UUID
	AssetID         uuid.UUID
	Name            string
	Resolution      string
	Bitrate         int
	SegmentDuration float64
	PlaylistCID     string
	CreatedAt       time.Time
}

// Segment is the persisted record for one encrypted segment: the storage
// content identifier plus everything needed to decrypt at serve time. Only
// the wrapped form of the DEK ever reaches this record.
type Segment struct {
	ID           uuid.UUID
	AssetID      uuid.UUID
	Rendition    string
	SegmentIndex int
	ContentCID   string

	// WrappedKey is the marshaled at-rest envelope of the segment's DEK.
	WrappedKey []byte

	// Nonce is the 12-byte AES-GCM nonce used to encrypt the segment.
	Nonce []byte

	MimeType      string
	OriginalSize  int64
	EncryptedSize int64
	CreatedAt     time.Time
}
