package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	assetDomain "github.com/allisson/streamvault/internal/asset/domain"
	"github.com/allisson/streamvault/internal/database"
	apperrors "github.com/allisson/streamvault/internal/errors"
	"github.com/allisson/streamvault/internal/playlist"
	"github.com/allisson/streamvault/internal/storage"
)

// ingestUseCase implements the IngestUseCase interface.
type ingestUseCase struct {
	txManager     database.TxManager
	assetRepo     AssetRepository
	renditionRepo RenditionRepository
	segmentRepo   SegmentRepository
	encryptor     SegmentEncryptor
	cache         ResultCache
	blobStore     storage.BlobStore
	normalizer    *storage.LocatorNormalizer
	logger        *slog.Logger
}

// Encrypt runs the transcoder output through the segment encryptor and parks
// the manifest in the result cache until Publish confirms it.
func (i *ingestUseCase) Encrypt(
	ctx context.Context,
	assetID uuid.UUID,
	result assetDomain.TranscodeResult,
) (assetDomain.EncryptionStats, error) {
	existing, err := i.assetRepo.Get(ctx, assetID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return assetDomain.EncryptionStats{}, err
	}
	if existing != nil && existing.Status == assetDomain.AssetStatusPublished {
		return assetDomain.EncryptionStats{}, assetDomain.ErrAssetAlreadyPublished
	}

	manifest, err := i.encryptor.EncryptTranscodeResult(ctx, result, assetID)
	if err != nil {
		return assetDomain.EncryptionStats{}, err
	}

	i.cache.Put(assetID, manifest)

	return assetDomain.CalculateEncryptionStats(manifest), nil
}

// Publish uploads the cached encrypted manifest to the blob store, rewrites
// playlists to the uploaded content identifiers, and persists all metadata
// records in one transaction.
//
// The cache entry is consumed up front; if any later step fails the manifest
// is put back so the caller can retry without re-encrypting. Blob uploads are
// idempotent by content address, so a retried publish re-uploading the same
// bytes is harmless.
func (i *ingestUseCase) Publish(ctx context.Context, assetID uuid.UUID) (*assetDomain.Asset, error) {
	existing, err := i.assetRepo.Get(ctx, assetID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status == assetDomain.AssetStatusPublished {
		return nil, assetDomain.ErrAssetAlreadyPublished
	}

	manifest, ok := i.cache.Take(assetID)
	if !ok {
		return nil, assetDomain.ErrManifestNotCached
	}

	asset, err := i.publishManifest(ctx, manifest)
	if err != nil {
		i.cache.Put(assetID, manifest)
		return nil, err
	}

	return asset, nil
}

// uploadedRendition carries one rendition's upload results into the metadata
// transaction.
type uploadedRendition struct {
	rendition   assetDomain.EncryptedRendition
	playlistCID string
	initCID     string
	segmentCIDs []string
}

func (i *ingestUseCase) publishManifest(
	ctx context.Context,
	manifest *assetDomain.EncryptedAssetManifest,
) (*assetDomain.Asset, error) {
	started := time.Now()

	uploaded := make([]uploadedRendition, 0, len(manifest.Renditions))
	masterRefs := make([]playlist.Rendition, 0, len(manifest.Renditions))

	for _, rendition := range manifest.Renditions {
		up, err := i.uploadRendition(ctx, rendition)
		if err != nil {
			return nil, fmt.Errorf("failed to upload rendition %s: %w", rendition.Name, err)
		}
		uploaded = append(uploaded, up)
		masterRefs = append(masterRefs, playlist.Rendition{
			Name:            rendition.Name,
			Resolution:      rendition.Resolution,
			Bitrate:         rendition.Bitrate,
			PlaylistLocator: i.normalizer.NormalizeURL(up.playlistCID),
		})
	}

	masterPlaylist, err := playlist.BuildMasterPlaylist(masterRefs)
	if err != nil {
		return nil, err
	}
	masterCID, err := i.blobStore.Upload(ctx, masterPlaylist, assetDomain.MimeTypePlaylist)
	if err != nil {
		return nil, fmt.Errorf("failed to upload master playlist: %w", err)
	}

	var posterCID string
	if len(manifest.Poster) > 0 {
		posterCID, err = i.blobStore.Upload(ctx, manifest.Poster, assetDomain.MimeTypeJPEG)
		if err != nil {
			return nil, fmt.Errorf("failed to upload poster: %w", err)
		}
	}

	stats := assetDomain.CalculateEncryptionStats(manifest)
	now := time.Now().UTC()
	asset := &assetDomain.Asset{
		ID:                manifest.AssetID,
		Status:            assetDomain.AssetStatusPublished,
		Duration:          manifest.Duration,
		MasterPlaylistCID: masterCID,
		PosterCID:         posterCID,
		EnvelopeVersion:   manifest.EnvelopeVersion,
		SegmentCount:      stats.SegmentCount,
		OriginalSize:      stats.TotalOriginalSize,
		EncryptedSize:     stats.TotalEncryptedSize,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = i.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := i.assetRepo.Create(txCtx, asset); err != nil {
			return err
		}

		for _, up := range uploaded {
			record := &assetDomain.Rendition{
				ID:              uuid.Must(uuid.NewV7()),
				AssetID:         asset.ID,
				Name:            up.rendition.Name,
				Resolution:      up.rendition.Resolution,
				Bitrate:         up.rendition.Bitrate,
				SegmentDuration: up.rendition.SegmentDuration,
				PlaylistCID:     up.playlistCID,
				CreatedAt:       now,
			}
			if err := i.renditionRepo.Create(txCtx, record); err != nil {
				return err
			}

			if up.rendition.InitSegment != nil {
				if err := i.createSegmentRecord(txCtx, asset.ID, up.rendition.Name, *up.rendition.InitSegment, up.initCID, now); err != nil {
					return err
				}
			}
			for idx, segment := range up.rendition.Segments {
				if err := i.createSegmentRecord(txCtx, asset.ID, up.rendition.Name, segment, up.segmentCIDs[idx], now); err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	i.logger.Info(
		"asset published",
		slog.String("asset_id", asset.ID.String()),
		slog.Int("renditions", len(uploaded)),
		slog.Int("segments", stats.SegmentCount),
		slog.Int64("encrypted_bytes", stats.TotalEncryptedSize),
		slog.Duration("elapsed", time.Since(started)),
	)

	return asset, nil
}

// uploadRendition uploads every encrypted blob of a rendition and its
// rewritten playlist, returning the content identifiers.
func (i *ingestUseCase) uploadRendition(
	ctx context.Context,
	rendition assetDomain.EncryptedRendition,
) (uploadedRendition, error) {
	up := uploadedRendition{
		rendition:   rendition,
		segmentCIDs: make([]string, len(rendition.Segments)),
	}

	if rendition.InitSegment != nil {
		cid, err := i.blobStore.Upload(ctx, rendition.InitSegment.Ciphertext, rendition.InitSegment.MimeType)
		if err != nil {
			return up, err
		}
		up.initCID = cid
	}

	segmentLocators := make([]string, len(rendition.Segments))
	for idx, segment := range rendition.Segments {
		cid, err := i.blobStore.Upload(ctx, segment.Ciphertext, segment.MimeType)
		if err != nil {
			return up, err
		}
		up.segmentCIDs[idx] = cid
		segmentLocators[idx] = i.normalizer.NormalizeURL(cid)
	}

	var initLocator string
	if up.initCID != "" {
		initLocator = i.normalizer.NormalizeURL(up.initCID)
	}

	rewritten, err := playlist.RewriteMediaPlaylist(rendition.Playlist, initLocator, segmentLocators)
	if err != nil {
		return up, err
	}

	playlistCID, err := i.blobStore.Upload(ctx, rewritten, assetDomain.MimeTypePlaylist)
	if err != nil {
		return up, err
	}
	up.playlistCID = playlistCID

	return up, nil
}

func (i *ingestUseCase) createSegmentRecord(
	ctx context.Context,
	assetID uuid.UUID,
	renditionName string,
	segment assetDomain.EncryptedSegment,
	cid string,
	now time.Time,
) error {
	record := &assetDomain.Segment{
		ID:            uuid.Must(uuid.NewV7()),
		AssetID:       assetID,
		Rendition:     renditionName,
		SegmentIndex:  segment.Index,
		ContentCID:    cid,
		WrappedKey:    segment.WrappedKey.Marshal(),
		Nonce:         segment.Nonce,
		MimeType:      segment.MimeType,
		OriginalSize:  segment.OriginalSize,
		EncryptedSize: segment.EncryptedSize,
		CreatedAt:     now,
	}
	return i.segmentRepo.Create(ctx, record)
}

// NewIngestUseCase creates a new ingest use case instance with the provided dependencies.
func NewIngestUseCase(
	txManager database.TxManager,
	assetRepo AssetRepository,
	renditionRepo RenditionRepository,
	segmentRepo SegmentRepository,
	encryptor SegmentEncryptor,
	cache ResultCache,
	blobStore storage.BlobStore,
	normalizer *storage.LocatorNormalizer,
	logger *slog.Logger,
) IngestUseCase {
	return &ingestUseCase{
		txManager:     txManager,
		assetRepo:     assetRepo,
		renditionRepo: renditionRepo,
		segmentRepo:   segmentRepo,
		encryptor:     encryptor,
		cache:         cache,
		blobStore:     blobStore,
		normalizer:    normalizer,
		logger:        logger,
	}
}
