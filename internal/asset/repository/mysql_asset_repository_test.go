package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assetDomain "github.com/allisson/streamvault/internal/asset/domain"
)

func mustMarshalUUID(t *testing.T, id uuid.UUID) []byte {
	t.Helper()
	raw, err := id.MarshalBinary()
	require.NoError(t, err)
	return raw
}

func TestMySQLAssetRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewMySQLAssetRepository(db)
	now := time.Now().UTC()
	asset := &assetDomain.Asset{
		ID:              uuid.Must(uuid.NewV7()),
		Status:          assetDomain.AssetStatusPending,
		Duration:        120.5,
		EnvelopeVersion: 2,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assets")).
		WithArgs(
			mustMarshalUUID(t, asset.ID),
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
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Create(context.Background(), asset)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLAssetRepository_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		repo := NewMySQLAssetRepository(db)
		assetID := uuid.Must(uuid.NewV7())
		now := time.Now().UTC()

		rows := sqlmock.NewRows([]string{
			"id", "status", "duration", "master_playlist_cid", "poster_cid", "envelope_version",
			"wrapped_root_secret", "segment_count", "original_size", "encrypted_size", "created_at", "updated_at",
		}).AddRow(
			mustMarshalUUID(t, assetID), "published", 120.5, "bafyplaylist", "", 2,
			[]byte{}, 4, int64(4096), int64(4160), now, now,
		)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status, duration")).
			WithArgs(mustMarshalUUID(t, assetID)).
			WillReturnRows(rows)

		asset, err := repo.Get(context.Background(), assetID)
		require.NoError(t, err)
		assert.Equal(t, assetID, asset.ID)
		assert.Equal(t, assetDomain.AssetStatusPublished, asset.Status)
		assert.Equal(t, uint8(2), asset.EnvelopeVersion)
		assert.Equal(t, "bafyplaylist", asset.MasterPlaylistCID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		repo := NewMySQLAssetRepository(db)
		assetID := uuid.Must(uuid.NewV7())

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, status, duration")).
			WithArgs(mustMarshalUUID(t, assetID)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err = repo.Get(context.Background(), assetID)
		assert.ErrorIs(t, err, assetDomain.ErrAssetNotFound)
	})
}

func TestMySQLAssetRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewMySQLAssetRepository(db)
	assetID := uuid.Must(uuid.NewV7())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE assets")).
		WithArgs(assetDomain.AssetStatusPublished, sqlmock.AnyArg(), mustMarshalUUID(t, assetID)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.UpdateStatus(context.Background(), assetID, assetDomain.AssetStatusPublished)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLAssetRepository_UpdateEnvelope(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewMySQLAssetRepository(db)
	assetID := uuid.Must(uuid.NewV7())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE assets")).
		WithArgs(uint8(2), []byte{}, sqlmock.AnyArg(), mustMarshalUUID(t, assetID)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.UpdateEnvelope(context.Background(), assetID, 2, []byte{})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLAssetRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewMySQLAssetRepository(db)
	firstID := uuid.Must(uuid.NewV7())
	secondID := uuid.Must(uuid.NewV7())
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "status", "duration", "master_playlist_cid", "poster_cid", "envelope_version",
		"wrapped_root_secret", "segment_count", "original_size", "encrypted_size", "created_at", "updated_at",
	}).
		AddRow(mustMarshalUUID(t, firstID), "published", 60.0, "bafyone", "", 2, []byte{0x01}, 2, int64(2048), int64(2080), now, now).
		AddRow(mustMarshalUUID(t, secondID), "pending", 0.0, "", "", 2, nil, 0, int64(0), int64(0), now, now)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).
		WithArgs(50, 0).
		WillReturnRows(rows)

	assets, err := repo.List(context.Background(), 0, 50)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, firstID, assets[0].ID)
	assert.Equal(t, secondID, assets[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLAssetRepository_ListByEnvelopeVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewMySQLAssetRepository(db)
	firstID := uuid.Must(uuid.NewV7())
	secondID := uuid.Must(uuid.NewV7())
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "status", "duration", "master_playlist_cid", "poster_cid", "envelope_version",
		"wrapped_root_secret", "segment_count", "original_size", "encrypted_size", "created_at", "updated_at",
	}).
		AddRow(mustMarshalUUID(t, firstID), "published", 60.0, "bafyone", "", 1, []byte{0x01}, 2, int64(2048), int64(2080), now, now).
		AddRow(mustMarshalUUID(t, secondID), "published", 90.0, "bafytwo", "", 1, []byte{0x02}, 3, int64(3072), int64(3120), now, now)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE envelope_version = ?")).
		WithArgs(uint8(1)).
		WillReturnRows(rows)

	assets, err := repo.ListByEnvelopeVersion(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, firstID, assets[0].ID)
	assert.Equal(t, secondID, assets[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLRenditionRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewMySQLRenditionRepository(db)
	now := time.Now().UTC()
	rendition := &assetDomain.Rendition{
		ID:              uuid.Must(uuid.NewV7()),
		AssetID:         uuid.Must(uuid.NewV7()),
		Name:            "720p",
		Resolution:      "1280x720",
		Bitrate:         2800000,
		SegmentDuration: 6.0,
		PlaylistCID:     "bafyrendition",
		CreatedAt:       now,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO renditions")).
		WithArgs(
			mustMarshalUUID(t, rendition.ID),
			mustMarshalUUID(t, rendition.AssetID),
			rendition.Name,
			rendition.Resolution,
			rendition.Bitrate,
			rendition.SegmentDuration,
			rendition.PlaylistCID,
			rendition.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Create(context.Background(), rendition)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLRenditionRepository_GetByName(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		repo := NewMySQLRenditionRepository(db)
		assetID := uuid.Must(uuid.NewV7())

		mock.ExpectQuery(regexp.QuoteMeta("FROM renditions")).
			WithArgs(mustMarshalUUID(t, assetID), "1080p").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err = repo.GetByName(context.Background(), assetID, "1080p")
		assert.ErrorIs(t, err, assetDomain.ErrRenditionNotFound)
	})
}

func TestMySQLSegmentRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewMySQLSegmentRepository(db)
	now := time.Now().UTC()
	segment := &assetDomain.Segment{
		ID:            uuid.Must(uuid.NewV7()),
		AssetID:       uuid.Must(uuid.NewV7()),
		Rendition:     "720p",
		SegmentIndex:  0,
		ContentCID:    "bafysegment",
		WrappedKey:    []byte{0x01, 0x02},
		Nonce:         []byte{0x03, 0x04},
		MimeType:      "video/mp2t",
		OriginalSize:  1024,
		EncryptedSize: 1040,
		CreatedAt:     now,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO segments")).
		WithArgs(
			mustMarshalUUID(t, segment.ID),
			mustMarshalUUID(t, segment.AssetID),
			segment.Rendition,
			segment.SegmentIndex,
			segment.ContentCID,
			segment.WrappedKey,
			segment.Nonce,
			segment.MimeType,
			segment.OriginalSize,
			segment.EncryptedSize,
			segment.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Create(context.Background(), segment)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLSegmentRepository_Get_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	repo := NewMySQLSegmentRepository(db)
	assetID := uuid.Must(uuid.NewV7())

	mock.ExpectQuery(regexp.QuoteMeta("FROM segments")).
		WithArgs(mustMarshalUUID(t, assetID), "720p", 3).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.Get(context.Background(), assetID, "720p", 3)
	assert.ErrorIs(t, err, assetDomain.ErrSegmentNotFound)
}
