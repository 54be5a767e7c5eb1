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

// MySQLAssetRepository implements asset persistence for MySQL databases.
type MySQLAssetRepository struct {
	db *sql.DB
}

// Create inserts a new asset into the MySQL database.
func (m *MySQLAssetRepository) Create(ctx context.Context, asset *assetDomain.Asset) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO assets (id, status, duration, master_playlist_cid, poster_cid, envelope_version,
				  wrapped_root_secret, segment_count, original_size, encrypted_size, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := asset.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal asset id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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
func (m *MySQLAssetRepository) Get(ctx context.Context, assetID uuid.UUID) (*assetDomain.Asset, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, status, duration, master_playlist_cid, poster_cid, envelope_version,
				  wrapped_root_secret, segment_count, original_size, encrypted_size, created_at, updated_at
			  FROM assets
			  WHERE id = ?`

	queryID, err := assetID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal asset id")
	}

	var asset assetDomain.Asset
	var id []byte

	err = querier.QueryRowContext(ctx, query, queryID).Scan(
		&id,
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

	if err := asset.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal asset id")
	}

	return &asset, nil
}

// UpdateStatus changes an asset's lifecycle status.
func (m *MySQLAssetRepository) UpdateStatus(ctx context.Context, assetID uuid.UUID, status assetDomain.AssetStatus) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE assets
			  SET status = ?, updated_at = ?
			  WHERE id = ?`

	id, err := assetID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal asset id")
	}

	_, err = querier.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update asset status")
	}

	return nil
}

// UpdateEnvelope rewrites the asset's envelope bookkeeping after a key
// migration: the new envelope version and the cleared legacy root secret.
func (m *MySQLAssetRepository) UpdateEnvelope(ctx context.Context, assetID uuid.UUID, envelopeVersion uint8, wrappedRootSecret []byte) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE assets
			  SET envelope_version = ?, wrapped_root_secret = ?, updated_at = ?
			  WHERE id = ?`

	id, err := assetID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal asset id")
	}

	_, err = querier.ExecContext(ctx, query, envelopeVersion, wrappedRootSecret, time.Now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update asset envelope")
	}

	return nil
}

// List retrieves a page of assets, newest first.
func (m *MySQLAssetRepository) List(ctx context.Context, offset, limit int) ([]*assetDomain.Asset, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, status, duration, master_playlist_cid, poster_cid, envelope_version,
				  wrapped_root_secret, segment_count, original_size, encrypted_size, created_at, updated_at
			  FROM assets
			  ORDER BY created_at DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list assets")
	}
	defer func() { _ = rows.Close() }()

	var assets []*assetDomain.Asset
	for rows.Next() {
		var asset assetDomain.Asset
		var id []byte

		err := rows.Scan(
			&id,
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

		if err := asset.ID.UnmarshalBinary(id); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal asset id")
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
func (m *MySQLAssetRepository) ListByEnvelopeVersion(ctx context.Context, envelopeVersion uint8) ([]*assetDomain.Asset, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, status, duration, master_playlist_cid, poster_cid, envelope_version,
				  wrapped_root_secret, segment_count, original_size, encrypted_size, created_at, updated_at
			  FROM assets
			  WHERE envelope_version = ?
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, envelopeVersion)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list assets by envelope version")
	}
	defer func() { _ = rows.Close() }()

	var assets []*assetDomain.Asset
	for rows.Next() {
		var asset assetDomain.Asset
		var id []byte

		err := rows.Scan(
			&id,
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

		if err := asset.ID.UnmarshalBinary(id); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal asset id")
		}

		assets = append(assets, &asset)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate assets")
	}

	return assets, nil
}

// NewMySQLAssetRepository creates a new MySQL asset repository instance.
func NewMySQLAssetRepository(db *sql.DB) *MySQLAssetRepository {
	return &MySQLAssetRepository{db: db}
}

// MySQLRenditionRepository implements rendition persistence for MySQL databases.
type MySQLRenditionRepository struct {
	db *sql.DB
}

// Create inserts a new rendition into the MySQL database.
func (m *MySQLRenditionRepository) Create(ctx context.Context, rendition *assetDomain.Rendition) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO renditions (id, asset_id, name, resolution, bitrate, segment_duration, playlist_cid, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := rendition.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal rendition id")
	}

	assetID, err := rendition.AssetID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal asset id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		assetID,
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
func (m *MySQLRenditionRepository) GetByName(ctx context.Context, assetID uuid.UUID, name string) (*assetDomain.Rendition, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, asset_id, name, resolution, bitrate, segment_duration, playlist_cid, created_at
			  FROM renditions
			  WHERE asset_id = ? AND name = ?
			  LIMIT 1`

	queryAssetID, err := assetID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal asset id")
	}

	var rendition assetDomain.Rendition
	var id, scannedAssetID []byte

	err = querier.QueryRowContext(ctx, query, queryAssetID, name).Scan(
		&id,
		&scannedAssetID,
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

	if err := rendition.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal rendition id")
	}

	if err := rendition.AssetID.UnmarshalBinary(scannedAssetID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal asset id")
	}

	return &rendition, nil
}

// List retrieves all renditions of an asset ordered by bitrate descending.
func (m *MySQLRenditionRepository) List(ctx context.Context, assetID uuid.UUID) ([]*assetDomain.Rendition, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, asset_id, name, resolution, bitrate, segment_duration, playlist_cid, created_at
			  FROM renditions
			  WHERE asset_id = ?
			  ORDER BY bitrate DESC`

	queryAssetID, err := assetID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal asset id")
	}

	rows, err := querier.QueryContext(ctx, query, queryAssetID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list renditions")
	}
	defer func() { _ = rows.Close() }()

	var renditions []*assetDomain.Rendition
	for rows.Next() {
		var rendition assetDomain.Rendition
		var id, scannedAssetID []byte

		err := rows.Scan(
			&id,
			&scannedAssetID,
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

		if err := rendition.ID.UnmarshalBinary(id); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal rendition id")
		}

		if err := rendition.AssetID.UnmarshalBinary(scannedAssetID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal asset id")
		}

		renditions = append(renditions, &rendition)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate renditions")
	}

	return renditions, nil
}

// NewMySQLRenditionRepository creates a new MySQL rendition repository instance.
func NewMySQLRenditionRepository(db *sql.DB) *MySQLRenditionRepository {
	return &MySQLRenditionRepository{db: db}
}

// MySQLSegmentRepository implements encrypted segment persistence for MySQL databases.
type MySQLSegmentRepository struct {
	db *sql.DB
}

// Create inserts a new segment record into the MySQL database.
func (m *MySQLSegmentRepository) Create(ctx context.Context, segment *assetDomain.Segment) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO segments (id, asset_id, rendition, segment_index, content_cid, wrapped_key,
				  nonce, mime_type, original_size, encrypted_size, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := segment.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal segment id")
	}

	assetID, err := segment.AssetID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal asset id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		assetID,
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
func (m *MySQLSegmentRepository) Get(ctx context.Context, assetID uuid.UUID, rendition string, segmentIndex int) (*assetDomain.Segment, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, asset_id, rendition, segment_index, content_cid, wrapped_key,
				  nonce, mime_type, original_size, encrypted_size, created_at
			  FROM segments
			  WHERE asset_id = ? AND rendition = ? AND segment_index = ?
			  LIMIT 1`

	queryAssetID, err := assetID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal asset id")
	}

	var segment assetDomain.Segment
	var id, scannedAssetID []byte

	err = querier.QueryRowContext(ctx, query, queryAssetID, rendition, segmentIndex).Scan(
		&id,
		&scannedAssetID,
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

	if err := segment.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal segment id")
	}

	if err := segment.AssetID.UnmarshalBinary(scannedAssetID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal asset id")
	}

	return &segment, nil
}

// List retrieves all segments of an asset ordered by rendition and index.
func (m *MySQLSegmentRepository) List(ctx context.Context, assetID uuid.UUID) ([]*assetDomain.Segment, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, asset_id, rendition, segment_index, content_cid, wrapped_key,
				  nonce, mime_type, original_size, encrypted_size, created_at
			  FROM segments
			  WHERE asset_id = ?
			  ORDER BY rendition ASC, segment_index ASC`

	queryAssetID, err := assetID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal asset id")
	}

	rows, err := querier.QueryContext(ctx, query, queryAssetID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list segments")
	}
	defer func() { _ = rows.Close() }()

	var segments []*assetDomain.Segment
	for rows.Next() {
		var segment assetDomain.Segment
		var id, scannedAssetID []byte

		err := rows.Scan(
			&id,
			&scannedAssetID,
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

		if err := segment.ID.UnmarshalBinary(id); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal segment id")
		}

		if err := segment.AssetID.UnmarshalBinary(scannedAssetID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal asset id")
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
func (m *MySQLSegmentRepository) UpdateWrappedKey(ctx context.Context, segmentID uuid.UUID, wrappedKey []byte) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE segments
			  SET wrapped_key = ?
			  WHERE id = ?`

	id, err := segmentID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal segment id")
	}

	_, err = querier.ExecContext(ctx, query, wrappedKey, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update segment wrapped key")
	}

	return nil
}

// NewMySQLSegmentRepository creates a new MySQL segment repository instance.
func NewMySQLSegmentRepository(db *sql.DB) *MySQLSegmentRepository {
	return &MySQLSegmentRepository{db: db}
}
