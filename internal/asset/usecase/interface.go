// Package usecase defines the interfaces and implementations for the asset
// pipeline use cases: ingest (encrypt and publish), playback serving, and
// the envelope migration for legacy assets.
package usecase

import (
	"context"

	"github.com/google/uuid"

	assetDomain "github.com/allisson/streamvault/internal/asset/domain"
)

// AssetRepository defines the interface for asset persistence operations.
type AssetRepository interface {
	Create(ctx context.Context, asset *assetDomain.Asset) error
	Get(ctx context.Context, assetID uuid.UUID) (*assetDomain.Asset, error)
	UpdateStatus(ctx context.Context, assetID uuid.UUID, status assetDomain.AssetStatus) error
	UpdateEnvelope(ctx context.Context, assetID uuid.UUID, envelopeVersion uint8, wrappedRootSecret []byte) error
	List(ctx context.Context, offset, limit int) ([]*assetDomain.Asset, error)
	ListByEnvelopeVersion(ctx context.Context, envelopeVersion uint8) ([]*assetDomain.Asset, error)
}

// RenditionRepository defines the interface for rendition persistence operations.
type RenditionRepository interface {
	Create(ctx context.Context, rendition *assetDomain.Rendition) error
	GetByName(ctx context.Context, assetID uuid.UUID, name string) (*assetDomain.Rendition, error)
	List(ctx context.Context, assetID uuid.UUID) ([]*assetDomain.Rendition, error)
}

// SegmentRepository defines the interface for encrypted segment persistence operations.
type SegmentRepository interface {
	Create(ctx context.Context, segment *assetDomain.Segment) error
	Get(ctx context.Context, assetID uuid.UUID, rendition string, segmentIndex int) (*assetDomain.Segment, error)
	List(ctx context.Context, assetID uuid.UUID) ([]*assetDomain.Segment, error)
	UpdateWrappedKey(ctx context.Context, segmentID uuid.UUID, wrappedKey []byte) error
}

// SegmentEncryptor produces an encrypted-asset manifest from transcoder output.
type SegmentEncryptor interface {
	EncryptTranscodeResult(ctx context.Context, result assetDomain.TranscodeResult, assetID uuid.UUID) (*assetDomain.EncryptedAssetManifest, error)
}

// ResultCache holds encrypted-asset manifests between the encrypt and
// publish steps of the ingest flow.
type ResultCache interface {
	Put(assetID uuid.UUID, manifest *assetDomain.EncryptedAssetManifest)
	Take(assetID uuid.UUID) (*assetDomain.EncryptedAssetManifest, bool)
	Peek(assetID uuid.UUID) (*assetDomain.EncryptedAssetManifest, bool)
}

// IngestUseCase defines the two-step ingest flow: encrypt the transcoder's
// output into the result cache, then publish the cached manifest to storage
// and the metadata store.
type IngestUseCase interface {
	Encrypt(ctx context.Context, assetID uuid.UUID, result assetDomain.TranscodeResult) (assetDomain.EncryptionStats, error)
	Publish(ctx context.Context, assetID uuid.UUID) (*assetDomain.Asset, error)
}

// SegmentMedia is a decrypted media payload ready to serve.
type SegmentMedia struct {
	Data     []byte
	MimeType string
}

// PlaybackUseCase defines the serving path: decrypt stored segments,
// normalize playlists for clients, and expose asset metadata.
type PlaybackUseCase interface {
	ServeSegment(ctx context.Context, assetID uuid.UUID, rendition string, segmentIndex int) (*SegmentMedia, error)
	ServePlaylist(ctx context.Context, assetID uuid.UUID, rendition string) (*SegmentMedia, error)
	ServeMasterPlaylist(ctx context.Context, assetID uuid.UUID) (*SegmentMedia, error)
	GetAsset(ctx context.Context, assetID uuid.UUID) (*assetDomain.Asset, error)
	ListAssets(ctx context.Context, offset, limit int) ([]*assetDomain.Asset, error)
}

// MigrationReport summarizes one envelope migration run.
type MigrationReport struct {
	AssetsMigrated    int
	SegmentsRewrapped int
	AssetsSkipped     int
}

// MigrationUseCase rewraps legacy root-secret envelopes into per-segment
// DEK envelopes under the current master key.
type MigrationUseCase interface {
	MigrateEnvelopes(ctx context.Context) (MigrationReport, error)
}
