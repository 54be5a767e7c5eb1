package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	assetDomain "github.com/allisson/streamvault/internal/asset/domain"
	"github.com/allisson/streamvault/internal/metrics"
)

// ingestUseCaseWithMetrics decorates IngestUseCase with metrics instrumentation.
type ingestUseCaseWithMetrics struct {
	next    IngestUseCase
	metrics metrics.BusinessMetrics
}

// NewIngestUseCaseWithMetrics wraps an IngestUseCase with metrics recording.
func NewIngestUseCaseWithMetrics(useCase IngestUseCase, m metrics.BusinessMetrics) IngestUseCase {
	return &ingestUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Encrypt records metrics for asset encryption operations.
func (i *ingestUseCaseWithMetrics) Encrypt(
	ctx context.Context,
	assetID uuid.UUID,
	result assetDomain.TranscodeResult,
) (assetDomain.EncryptionStats, error) {
	start := time.Now()
	stats, err := i.next.Encrypt(ctx, assetID, result)

	status := "success"
	if err != nil {
		status = "error"
	}

	i.metrics.RecordOperation(ctx, "ingest", "asset_encrypt", status)
	i.metrics.RecordDuration(ctx, "ingest", "asset_encrypt", time.Since(start), status)

	return stats, err
}

// Publish records metrics for asset publish operations.
func (i *ingestUseCaseWithMetrics) Publish(ctx context.Context, assetID uuid.UUID) (*assetDomain.Asset, error) {
	start := time.Now()
	asset, err := i.next.Publish(ctx, assetID)

	status := "success"
	if err != nil {
		status = "error"
	}

	i.metrics.RecordOperation(ctx, "ingest", "asset_publish", status)
	i.metrics.RecordDuration(ctx, "ingest", "asset_publish", time.Since(start), status)

	return asset, err
}

// playbackUseCaseWithMetrics decorates PlaybackUseCase with metrics instrumentation.
type playbackUseCaseWithMetrics struct {
	next    PlaybackUseCase
	metrics metrics.BusinessMetrics
}

// NewPlaybackUseCaseWithMetrics wraps a PlaybackUseCase with metrics recording.
func NewPlaybackUseCaseWithMetrics(useCase PlaybackUseCase, m metrics.BusinessMetrics) PlaybackUseCase {
	return &playbackUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// ServeSegment records metrics for segment serving operations.
func (p *playbackUseCaseWithMetrics) ServeSegment(
	ctx context.Context,
	assetID uuid.UUID,
	rendition string,
	segmentIndex int,
) (*SegmentMedia, error) {
	start := time.Now()
	media, err := p.next.ServeSegment(ctx, assetID, rendition, segmentIndex)

	status := "success"
	if err != nil {
		status = "error"
	}

	p.metrics.RecordOperation(ctx, "playback", "segment_serve", status)
	p.metrics.RecordDuration(ctx, "playback", "segment_serve", time.Since(start), status)

	return media, err
}

// ServePlaylist records metrics for rendition playlist serving operations.
func (p *playbackUseCaseWithMetrics) ServePlaylist(
	ctx context.Context,
	assetID uuid.UUID,
	rendition string,
) (*SegmentMedia, error) {
	start := time.Now()
	media, err := p.next.ServePlaylist(ctx, assetID, rendition)

	status := "success"
	if err != nil {
		status = "error"
	}

	p.metrics.RecordOperation(ctx, "playback", "playlist_serve", status)
	p.metrics.RecordDuration(ctx, "playback", "playlist_serve", time.Since(start), status)

	return media, err
}

// ServeMasterPlaylist records metrics for master playlist serving operations.
func (p *playbackUseCaseWithMetrics) ServeMasterPlaylist(ctx context.Context, assetID uuid.UUID) (*SegmentMedia, error) {
	start := time.Now()
	media, err := p.next.ServeMasterPlaylist(ctx, assetID)

	status := "success"
	if err != nil {
		status = "error"
	}

	p.metrics.RecordOperation(ctx, "playback", "master_playlist_serve", status)
	p.metrics.RecordDuration(ctx, "playback", "master_playlist_serve", time.Since(start), status)

	return media, err
}

// GetAsset passes through without recording: metadata reads are not a
// playback-path signal worth a series.
func (p *playbackUseCaseWithMetrics) GetAsset(ctx context.Context, assetID uuid.UUID) (*assetDomain.Asset, error) {
	return p.next.GetAsset(ctx, assetID)
}

// ListAssets passes through without recording.
func (p *playbackUseCaseWithMetrics) ListAssets(ctx context.Context, offset, limit int) ([]*assetDomain.Asset, error) {
	return p.next.ListAssets(ctx, offset, limit)
}
