package usecase

import (
	"context"
	"fmt"
	"log/slog"

	assetDomain "github.com/allisson/streamvault/internal/asset/domain"
	cryptoDomain "github.com/allisson/streamvault/internal/crypto/domain"
	cryptoService "github.com/allisson/streamvault/internal/crypto/service"
	"github.com/allisson/streamvault/internal/database"
)

// migrationUseCase implements the MigrationUseCase interface.
type migrationUseCase struct {
	txManager   database.TxManager
	assetRepo   AssetRepository
	segmentRepo SegmentRepository
	envelope    cryptoService.Envelope
	logger      *slog.Logger
}

// MigrateEnvelopes rewraps every legacy root-secret asset into per-segment
// DEK envelopes: unwrap the asset's root secret, re-derive each segment's
// DEK at its coordinates, wrap it under the active master key, and replace
// the stored envelope. Each asset migrates in its own transaction, so a
// failure leaves earlier assets migrated and the failed asset untouched.
func (m *migrationUseCase) MigrateEnvelopes(ctx context.Context) (MigrationReport, error) {
	var report MigrationReport

	assets, err := m.assetRepo.ListByEnvelopeVersion(ctx, cryptoDomain.EnvelopeVersionRootSecret)
	if err != nil {
		return report, err
	}

	for _, asset := range assets {
		rewrapped, err := m.migrateAsset(ctx, asset)
		if err != nil {
			m.logger.Error(
				"asset envelope migration failed",
				slog.String("asset_id", asset.ID.String()),
				slog.String("error", err.Error()),
			)
			report.AssetsSkipped++
			continue
		}

		report.AssetsMigrated++
		report.SegmentsRewrapped += rewrapped

		m.logger.Info(
			"asset envelope migrated",
			slog.String("asset_id", asset.ID.String()),
			slog.Int("segments_rewrapped", rewrapped),
		)
	}

	return report, nil
}

func (m *migrationUseCase) migrateAsset(ctx context.Context, asset *assetDomain.Asset) (int, error) {
	if len(asset.WrappedRootSecret) == 0 {
		return 0, fmt.Errorf("asset %s has no wrapped root secret", asset.ID)
	}

	wrapped, err := cryptoDomain.UnmarshalWrappedKey(asset.WrappedRootSecret)
	if err != nil {
		return 0, err
	}

	rootSecret, err := m.envelope.UnwrapRootSecret(wrapped)
	if err != nil {
		return 0, err
	}
	defer cryptoDomain.Zero(rootSecret)

	segments, err := m.segmentRepo.List(ctx, asset.ID)
	if err != nil {
		return 0, err
	}

	rewrapped := 0
	err = m.txManager.WithTx(ctx, func(txCtx context.Context) error {
		for _, segment := range segments {
			dek, err := cryptoService.DeriveSegmentDEK(
				rootSecret,
				segment.AssetID.String(),
				segment.Rendition,
				segment.SegmentIndex,
			)
			if err != nil {
				return err
			}

			envelope, err := m.envelope.WrapDek(dek)
			cryptoDomain.Zero(dek)
			if err != nil {
				return err
			}

			if err := m.segmentRepo.UpdateWrappedKey(txCtx, segment.ID, envelope.Marshal()); err != nil {
				return err
			}
			rewrapped++
		}

		// Drop the legacy envelope; the root secret is no longer recoverable
		// from the metadata store once this commits.
		return m.assetRepo.UpdateEnvelope(txCtx, asset.ID, cryptoDomain.EnvelopeVersionSegmentDEK, nil)
	})
	if err != nil {
		return 0, err
	}

	return rewrapped, nil
}

// NewMigrationUseCase creates a new envelope migration use case instance.
func NewMigrationUseCase(
	txManager database.TxManager,
	assetRepo AssetRepository,
	segmentRepo SegmentRepository,
	envelope cryptoService.Envelope,
	logger *slog.Logger,
) MigrationUseCase {
	return &migrationUseCase{
		txManager:   txManager,
		assetRepo:   assetRepo,
		segmentRepo: segmentRepo,
		envelope:    envelope,
		logger:      logger,
	}
}
