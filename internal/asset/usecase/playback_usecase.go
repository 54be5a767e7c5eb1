package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	assetDomain "github.com/allisson/streamvault/internal/asset/domain"
	cryptoDomain "github.com/allisson/streamvault/internal/crypto/domain"
	cryptoService "github.com/allisson/streamvault/internal/crypto/service"
	"github.com/allisson/streamvault/internal/storage"
)

// playbackUseCase implements the PlaybackUseCase interface.
type playbackUseCase struct {
	assetRepo     AssetRepository
	renditionRepo RenditionRepository
	segmentRepo   SegmentRepository
	envelope      cryptoService.Envelope
	blobStore     storage.BlobStore
	normalizer    *storage.LocatorNormalizer
	logger        *slog.Logger
}

// ServeSegment reverses the encryption of one stored segment: unwrap the
// DEK, fetch the ciphertext from storage, and AEAD-decrypt. An
// authentication failure surfaces as ErrAuthenticationFailed, never as
// corrupted media bytes.
func (p *playbackUseCase) ServeSegment(
	ctx context.Context,
	assetID uuid.UUID,
	rendition string,
	segmentIndex int,
) (*SegmentMedia, error) {
	segment, err := p.segmentRepo.Get(ctx, assetID, rendition, segmentIndex)
	if err != nil {
		return nil, err
	}

	dek, err := p.unwrapSegmentDek(segment)
	if err != nil {
		p.logger.Warn(
			"segment key unwrap failed",
			slog.String("asset_id", assetID.String()),
			slog.String("rendition", rendition),
			slog.Int("segment_index", segmentIndex),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer cryptoDomain.Zero(dek)

	ciphertext, err := p.blobStore.Fetch(ctx, p.normalizer.NormalizeURL(segment.ContentCID))
	if err != nil {
		return nil, err
	}

	cipher, err := cryptoService.NewAESGCM(dek)
	if err != nil {
		return nil, err
	}

	plaintext, err := cipher.Decrypt(ciphertext, segment.Nonce, nil)
	if err != nil {
		return nil, err
	}

	return &SegmentMedia{Data: plaintext, MimeType: segment.MimeType}, nil
}

// unwrapSegmentDek recovers the segment's plaintext DEK. Version-2 envelopes
// hold the DEK directly; legacy version-1 envelopes hold the asset's root
// secret, from which the DEK is re-derived at the segment's coordinates.
func (p *playbackUseCase) unwrapSegmentDek(segment *assetDomain.Segment) ([]byte, error) {
	wrapped, err := cryptoDomain.UnmarshalWrappedKey(segment.WrappedKey)
	if err != nil {
		return nil, err
	}

	switch wrapped.Version {
	case cryptoDomain.EnvelopeVersionSegmentDEK:
		return p.envelope.UnwrapDek(wrapped)

	case cryptoDomain.EnvelopeVersionRootSecret:
		rootSecret, err := p.envelope.UnwrapRootSecret(wrapped)
		if err != nil {
			return nil, err
		}
		defer cryptoDomain.Zero(rootSecret)

		return cryptoService.DeriveSegmentDEK(
			rootSecret,
			segment.AssetID.String(),
			segment.Rendition,
			segment.SegmentIndex,
		)

	default:
		return nil, fmt.Errorf("%w: envelope version %d", cryptoDomain.ErrMalformedWrappedKey, wrapped.Version)
	}
}

// ServePlaylist fetches a rendition's published playlist and normalizes its
// locators for the current storage topology.
func (p *playbackUseCase) ServePlaylist(
	ctx context.Context,
	assetID uuid.UUID,
	rendition string,
) (*SegmentMedia, error) {
	record, err := p.renditionRepo.GetByName(ctx, assetID, rendition)
	if err != nil {
		return nil, err
	}

	return p.servePlaylistBlob(ctx, record.PlaylistCID)
}

// ServeMasterPlaylist fetches the asset's master playlist, normalized.
func (p *playbackUseCase) ServeMasterPlaylist(ctx context.Context, assetID uuid.UUID) (*SegmentMedia, error) {
	asset, err := p.assetRepo.Get(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset.MasterPlaylistCID == "" {
		return nil, assetDomain.ErrAssetNotFound
	}

	return p.servePlaylistBlob(ctx, asset.MasterPlaylistCID)
}

func (p *playbackUseCase) servePlaylistBlob(ctx context.Context, cid string) (*SegmentMedia, error) {
	body, err := p.blobStore.Fetch(ctx, p.normalizer.NormalizeURL(cid))
	if err != nil {
		return nil, err
	}

	normalized := p.normalizer.NormalizePlaylist(string(body))

	return &SegmentMedia{Data: []byte(normalized), MimeType: assetDomain.MimeTypePlaylist}, nil
}

// GetAsset retrieves one asset's metadata record.
func (p *playbackUseCase) GetAsset(ctx context.Context, assetID uuid.UUID) (*assetDomain.Asset, error) {
	return p.assetRepo.Get(ctx, assetID)
}

// ListAssets retrieves a page of asset metadata records, newest first.
func (p *playbackUseCase) ListAssets(ctx context.Context, offset, limit int) ([]*assetDomain.Asset, error) {
	return p.assetRepo.List(ctx, offset, limit)
}

// NewPlaybackUseCase creates a new playback use case instance with the provided dependencies.
func NewPlaybackUseCase(
	assetRepo AssetRepository,
	renditionRepo RenditionRepository,
	segmentRepo SegmentRepository,
	envelope cryptoService.Envelope,
	blobStore storage.BlobStore,
	normalizer *storage.LocatorNormalizer,
	logger *slog.Logger,
) PlaybackUseCase {
	return &playbackUseCase{
		assetRepo:     assetRepo,
		renditionRepo: renditionRepo,
		segmentRepo:   segmentRepo,
		envelope:      envelope,
		blobStore:     blobStore,
		normalizer:    normalizer,
		logger:        logger,
	}
}
