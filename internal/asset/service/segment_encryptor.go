// Package service implements the segment encryption pipeline: per-asset root
// secret generation, per-segment DEK derivation and AEAD encryption, and
// envelope wrapping of key material for the encrypted-asset manifest.
package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	assetDomain "github.com/allisson/streamvault/internal/asset/domain"
	cryptoDomain "github.com/allisson/streamvault/internal/crypto/domain"
	cryptoService "github.com/allisson/streamvault/internal/crypto/service"
)

// maxParallelSegments bounds concurrent segment encryptions per rendition.
const maxParallelSegments = 8

// SegmentEncryptor encrypts transcoded rendition sets into encrypted-asset
// manifests. Stateless; safe for concurrent use across assets.
type SegmentEncryptor struct {
	envelope cryptoService.Envelope
	logger   *slog.Logger
}

// NewSegmentEncryptor creates a segment encryptor using the given envelope
// service for DEK wrapping.
func NewSegmentEncryptor(envelope cryptoService.Envelope, logger *slog.Logger) *SegmentEncryptor {
	return &SegmentEncryptor{
		envelope: envelope,
		logger:   logger,
	}
}

// EncryptTranscodeResult encrypts every segment of every rendition of a
// transcoded asset and assembles the encrypted-asset manifest.
//
// A fresh 32-byte root secret is generated per asset and zeroed before
// return; each segment's DEK is derived from it, used once, wrapped under the
// master key, and zeroed. Segments within a rendition are encrypted in
// parallel: the per-segment operations are independent (own DEK, own random
// nonce) and write only to their own index of the output slice.
//
// Failure policy: the first segment error cancels the remaining work and the
// whole asset fails. Partial manifests are never returned; downstream
// consumers assume manifest completeness.
func (e *SegmentEncryptor) EncryptTranscodeResult(
	ctx context.Context,
	result assetDomain.TranscodeResult,
	assetID uuid.UUID,
) (*assetDomain.EncryptedAssetManifest, error) {
	if err := result.Validate(); err != nil {
		return nil, err
	}

	rootSecret := make([]byte, cryptoDomain.RootSecretSize)
	if _, err := rand.Read(rootSecret); err != nil {
		return nil, fmt.Errorf("failed to generate root secret: %w", err)
	}
	defer cryptoDomain.Zero(rootSecret)

	started := time.Now()
	manifest := &assetDomain.EncryptedAssetManifest{
		AssetID:         assetID,
		Duration:        result.Duration,
		Poster:          result.Poster,
		Renditions:      make([]assetDomain.EncryptedRendition, 0, len(result.Renditions)),
		EnvelopeVersion: cryptoDomain.EnvelopeVersionSegmentDEK,
		CreatedAt:       time.Now().UTC(),
	}

	for _, rendition := range result.Renditions {
		encrypted, err := e.encryptRendition(ctx, rootSecret, assetID, rendition)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt rendition %s: %w", rendition.Name, err)
		}
		manifest.Renditions = append(manifest.Renditions, encrypted)
	}

	stats := assetDomain.CalculateEncryptionStats(manifest)
	e.logger.Info("asset encrypted",
		slog.String("asset_id", assetID.String()),
		slog.Int("renditions", len(manifest.Renditions)),
		slog.Int("segments", stats.SegmentCount),
		slog.Int64("original_bytes", stats.TotalOriginalSize),
		slog.Int64("encrypted_bytes", stats.TotalEncryptedSize),
		slog.Duration("elapsed", time.Since(started)),
	)

	return manifest, nil
}

// encryptRendition encrypts one rendition's init segment and media segments.
func (e *SegmentEncryptor) encryptRendition(
	ctx context.Context,
	rootSecret []byte,
	assetID uuid.UUID,
	rendition assetDomain.TranscodedRendition,
) (assetDomain.EncryptedRendition, error) {
	encrypted := assetDomain.EncryptedRendition{
		Name:            rendition.Name,
		Resolution:      rendition.Resolution,
		Bitrate:         rendition.Bitrate,
		SegmentDuration: rendition.SegmentDuration,
		Playlist:        rendition.Playlist,
		Segments:        make([]assetDomain.EncryptedSegment, len(rendition.Segments)),
	}

	mimeType := assetDomain.MimeTypeMPEGTS
	if len(rendition.InitSegment) > 0 {
		mimeType = assetDomain.MimeTypeMP4
	}

	if len(rendition.InitSegment) > 0 {
		segment, err := e.encryptSegment(
			rootSecret, assetID, rendition.Name,
			assetDomain.InitSegmentIndex, rendition.InitSegment, assetDomain.MimeTypeMP4,
		)
		if err != nil {
			return assetDomain.EncryptedRendition{}, err
		}
		encrypted.InitSegment = &segment
	}

	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(maxParallelSegments)

	for index, payload := range rendition.Segments {
		group.Go(func() error {
			segment, err := e.encryptSegment(rootSecret, assetID, rendition.Name, index, payload, mimeType)
			if err != nil {
				return err
			}
			encrypted.Segments[index] = segment
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return assetDomain.EncryptedRendition{}, err
	}

	return encrypted, nil
}

// encryptSegment derives the segment's DEK, encrypts the payload with a fresh
// random nonce, and wraps the DEK for storage. The plaintext DEK is zeroed
// before return.
func (e *SegmentEncryptor) encryptSegment(
	rootSecret []byte,
	assetID uuid.UUID,
	renditionName string,
	index int,
	payload []byte,
	mimeType string,
) (assetDomain.EncryptedSegment, error) {
	dek, err := cryptoService.DeriveSegmentDEK(rootSecret, assetID.String(), renditionName, index)
	if err != nil {
		return assetDomain.EncryptedSegment{}, err
	}
	defer cryptoDomain.Zero(dek)

	aead, err := cryptoService.NewAESGCM(dek)
	if err != nil {
		return assetDomain.EncryptedSegment{}, err
	}

	ciphertext, nonce, err := aead.Encrypt(payload, nil)
	if err != nil {
		return assetDomain.EncryptedSegment{}, fmt.Errorf("segment %d: %w", index, err)
	}

	wrapped, err := e.envelope.WrapDek(dek)
	if err != nil {
		return assetDomain.EncryptedSegment{}, fmt.Errorf("segment %d: %w", index, err)
	}

	return assetDomain.EncryptedSegment{
		Index:         index,
		Ciphertext:    ciphertext,
		Nonce:         nonce,
		WrappedKey:    wrapped,
		OriginalSize:  int64(len(payload)),
		EncryptedSize: int64(len(ciphertext)),
		MimeType:      mimeType,
	}, nil
}
