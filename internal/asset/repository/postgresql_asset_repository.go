// Package repository implements metadata persistence for published assets,
// their renditions, and their encrypted segments. Repositories support both
// PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	assetDomain "github.com/allisson/streamvault/internal/asset/domain"
	"github.com/allisson/streamvault/internal/database"
	apperrors "github.com/allisson/streamvault/internal/errors"
)

// PostgreSQLAssetRepository implements asset persistence for PostgreSQL databases.
type PostgreSQLAssetRepository struct {
	db *sql.DB
}

// Create inserts a new asset into the PostgreSQL database.
func (p *PostgreSQLAssetRepository) Create(ctx context.Context, asset *assetDomain.Asset) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO assets (id, status, duration, master_playlist_cid, poster_cid, envelope_version,
				  wrapped_root_secret, segment_count, original_size, encrypted_size, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := querier.ExecContext(
		ctx,
		query,
		asset.ID,
		asset.Status,
		asset.Duration,
		asset.MasterPlaylistCID,
		asset.PosterCID,
		asset.EnvelopeVersion,
		asset.WrappedRootSecret,
		asset.SegmentCount,
		asset.OriginalSize,
		asset.EncryptedSize,
		asset.CreatedAt,
		asset.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create asset")
	}
	return nil
}

// Get retrieves an asset by its ID.
func (p *PostgreSQLAssetRepository) Get(ctx context.Context, assetID uuid.UUID) (*assetDomain.Asset, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, status, duration, master_playlist_cid, poster_cid, envelope_version,
				  wrapped_root_secret, segment_count, original_size, encrypted_size, created_at, updated_at
			  FROM assets
			  WHERE id = $1`

	var asset assetDomain.Asset
	err := querier.QueryRowContext(ctx, query, assetID).Scan(
		&asset.ID,
		&asset.Status,
		&asset.Duration,
		&asset.MasterPlaylistCID,
		&asset.PosterCID,
		&asset.EnvelopeVersion,
		&asset.WrappedRootSecret,
		&asset.SegmentCount,
		&asset.OriginalSize,
		&asset.EncryptedSize,
		&asset.CreatedAt,
		&asset.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, assetDomain.ErrAssetNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get asset")
	}

	return &asset, nil
}

// UpdateStatus changes an asset's lifecycle status.
func (p *PostgreSQLAssetRepository) UpdateStatus(ctx context.Context, assetID uuid.UUID, status assetDomain.AssetStatus) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE assets
			  SET status = $1, updated_at = $2
			  WHERE id = $3`

	_, err := querier.ExecContext(ctx, query, status, time.Now().UTC(), assetID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update asset status")
	}

	return nil
}

// UpdateEnvelope rewrites the asset's envelope bookkeeping after a key
// migration: the new envelope version and the cleared legacy root secret.
func (p *PostgreSQLAssetRepository) UpdateEnvelope(ctx context.Context, assetID uuid.UUID, envelopeVersion uint8, wrappedRootSecret []byte) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE assets
			  SET envelope_version = $1, wrapped_root_secret = $2, updated_at = $3
			  WHERE id = $4`

	_, err := querier.ExecContext(ctx, query, envelopeVersion, wrappedRootSecret, time.Now().UTC(), assetID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update asset envelope")
	}

	return nil
}

// List retrieves a page of assets, newest first.
func (p *PostgreSQLAssetRepository) List(ctx context.Context, offset, limit int) ([]*assetDomain.Asset, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, status, duration, master_playlist_cid, poster_cid, envelope_version,
				  wrapped_root_secret, segment_count, original_size, encrypted_size, created_at, updated_at
			  FROM assets
			  ORDER BY created_at DESC
			  OFFSET $1 LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list assets")
	}
	defer func() { _ = rows.Close() }()

	var assets []*assetDomain.Asset
	for rows.Next() {
		var asset assetDomain.Asset
		err := rows.Scan(
			&asset.ID,
			&asset.Status,
			&asset.Duration,
			&asset.MasterPlaylistCID,
			&asset.PosterCID,
			&asset.EnvelopeVersion,
			&asset.WrappedRootSecret,
			&asset.SegmentCount,
			&asset.OriginalSize,
			&asset.EncryptedSize,
			&asset.CreatedAt,
			&asset.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan asset")
		}
		assets = append(assets, &asset)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate assets")
	}

	return assets, nil
}

// ListByEnvelopeVersion retrieves all assets persisted under the given
// wrapping scheme, oldest first.
func (p *PostgreSQLAssetRepository) ListByEnvelopeVersion(ctx context.Context, envelopeVersion uint8) ([]*assetDomain.Asset, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, status, duration, master_playlist_cid, poster_cid, envelope_version,
				  wrapped_root_secret, segment_count, original_size, encrypted_size, created_at, updated_at
			  FROM assets
			  WHERE envelope_version = $1
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, envelopeVersion)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list assets by envelope version")
	}
	defer func() { _ = rows.Close() }()

	var assets []*assetDomain.Asset
	for rows.Next() {
		var asset assetDomain.Asset
		err := rows.Scan(
			&asset.ID,
			&asset.Status,
			&asset.Duration,
			&asset.MasterPlaylistCID,
			&asset.PosterCID,
			&asset.EnvelopeVersion,
			&asset.WrappedRootSecret,
			&asset.SegmentCount,
			&asset.OriginalSize,
			&asset.EncryptedSize,
			&asset.CreatedAt,
			&asset.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan asset")
		}
		assets = append(assets, &asset)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate assets")
	}

	return assets, nil
}

// NewPostgreSQLAssetRepository creates a new PostgreSQL asset repository instance.
func NewPostgreSQLAssetRepository(db *sql.DB) *PostgreSQLAssetRepository {
	return &PostgreSQLAssetRepository{db: db}
}

// PostgreSQLRenditionRepository implements rendition persistence for PostgreSQL databases.
type PostgreSQLRenditionRepository struct {
	db *sql.DB
}

// Create inserts a new rendition into the PostgreSQL database.
func (p *PostgreSQLRenditionRepository) Create(ctx context.Context, rendition *assetDomain.Rendition) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO renditions (id, asset_id, name, resolution, bitrate, segment_duration, playlist_cid, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		rendition.ID,
		rendition.AssetID,
		rendition.Name,
		rendition.Resolution,
		rendition.Bitrate,
		rendition.SegmentDuration,
		rendition.PlaylistCID,
		rendition.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create rendition")
	}
	return nil
}

// GetByName retrieves one rendition of an asset by its name.
func (p *PostgreSQLRenditionRepository) GetByName(ctx context.Context, assetID uuid.UUID, name string) (*assetDomain.Rendition, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, asset_id, name, resolution, bitrate, segment_duration, playlist_cid, created_at
			  FROM renditions
			  WHERE asset_id = $1 AND name = $2
			  LIMIT 1`

	var rendition assetDomain.Rendition
	err := querier.QueryRowContext(ctx, query, assetID, name).Scan(
		&rendition.ID,
		&rendition.AssetID,
		&rendition.Name,
		&rendition.Resolution,
		&rendition.Bitrate,
		&rendition.SegmentDuration,
		&rendition.PlaylistCID,
		&rendition.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, assetDomain.ErrRenditionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get rendition by name")
	}

	return &rendition, nil
}

// List retrieves all renditions of an asset ordered by bitrate descending.
func (p *PostgreSQLRenditionRepository) List(ctx context.Context, assetID uuid.UUID) ([]*assetDomain.Rendition, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, asset_id, name, resolution, bitrate, segment_duration, playlist_cid, created_at
			  FROM renditions
			  WHERE asset_id = $1
			  ORDER BY bitrate DESC`

	rows, err := querier.QueryContext(ctx, query, assetID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list renditions")
	}
	defer func() { _ = rows.Close() }()

	var renditions []*assetDomain.Rendition
	for rows.Next() {
		var rendition assetDomain.Rendition
		err := rows.Scan(
			&rendition.ID,
			&rendition.AssetID,
			&rendition.Name,
			&rendition.Resolution,
			&rendition.Bitrate,
			&rendition.SegmentDuration,
			&rendition.PlaylistCID,
			&rendition.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan rendition")
		}
		renditions = append(renditions, &rendition)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate renditions")
	}

	return renditions, nil
}

// NewPostgreSQLRenditionRepository creates a new PostgreSQL rendition repository instance.
func NewPostgreSQLRenditionRepository(db *sql.DB) *PostgreSQLRenditionRepository {
	return &PostgreSQLRenditionRepository{db: db}
}

// PostgreSQLSegmentRepository implements encrypted segment persistence for PostgreSQL databases.
type PostgreSQLSegmentRepository struct {
	db *sql.DB
}

// Create inserts a new segment record into the PostgreSQL database.
func (p *PostgreSQLSegmentRepository) Create(ctx context.Context, segment *assetDomain.Segment) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO segments (id, asset_id, rendition, segment_index, content_cid, wrapped_key,
				  nonce, mime_type, original_size, encrypted_size, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := querier.ExecContext(
		ctx,
		query,
		segment.ID,
		segment.AssetID,
		segment.Rendition,
		segment.SegmentIndex,
		segment.ContentCID,
		segment.WrappedKey,
		segment.Nonce,
		segment.MimeType,
		segment.OriginalSize,
		segment.EncryptedSize,
		segment.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create segment")
	}
	return nil
}

// Get retrieves one segment by its playback coordinates.
func (p *PostgreSQLSegmentRepository) Get(ctx context.Context, assetID uuid.UUID, rendition string, segmentIndex int) (*assetDomain.Segment, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, asset_id, rendition, segment_index, content_cid, wrapped_key,
				  nonce, mime_type, original_size, encrypted_size, created_at
			  FROM segments
			  WHERE asset_id = $1 AND rendition = $2 AND segment_index = $3
			  LIMIT 1`

	var segment assetDomain.Segment
	err := querier.QueryRowContext(ctx, query, assetID, rendition, segmentIndex).Scan(
		&segment.ID,
		&segment.AssetID,
		&segment.Rendition,
		&segment.SegmentIndex,
		&segment.ContentCID,
		&segment.WrappedKey,
		&segment.Nonce,
		&segment.MimeType,
		&segment.OriginalSize,
		&segment.EncryptedSize,
		&segment.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, assetDomain.ErrSegmentNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get segment")
	}

	return &segment, nil
}

// List retrieves all segments of an asset ordered by rendition and index.
func (p *PostgreSQLSegmentRepository) List(ctx context.Context, assetID uuid.UUID) ([]*assetDomain.Segment, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, asset_id, rendition, segment_index, content_cid, wrapped_key,
				  nonce, mime_type, original_size, encrypted_size, created_at
			  FROM segments
			  WHERE asset_id = $1
			  ORDER BY rendition ASC, segment_index ASC`

	rows, err := querier.QueryContext(ctx, query, assetID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list segments")
	}
	defer func() { _ = rows.Close() }()

	var segments []*assetDomain.Segment
	for rows.Next() {
		var segment assetDomain.Segment
		err := rows.Scan(
			&segment.ID,
			&segment.AssetID,
			&segment.Rendition,
			&segment.SegmentIndex,
			&segment.ContentCID,
			&segment.WrappedKey,
			&segment.Nonce,
			&segment.MimeType,
			&segment.OriginalSize,
			&segment.EncryptedSize,
			&segment.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan segment")
		}
		segments = append(segments, &segment)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate segments")
	}

	return segments, nil
}

// UpdateWrappedKey replaces a segment's at-rest key envelope. Used by the
// envelope migration to rewrap keys under the current scheme.
func (p *PostgreSQLSegmentRepository) UpdateWrappedKey(ctx context.Context, segmentID uuid.UUID, wrappedKey []byte) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE segments
			  SET wrapped_key = $1
			  WHERE id = $2`

	_, err := querier.ExecContext(ctx, query, wrappedKey, segmentID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update segment wrapped key")
	}

	return nil
}

// NewPostgreSQLSegmentRepository creates a new PostgreSQL segment repository instance.
func NewPostgreSQLSegmentRepository(db *sql.DB) *PostgreSQLSegmentRepository {
	return &PostgreSQLSegmentRepository{db: db}
}
