package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assetDomain "github.com/allisson/streamvault/internal/asset/domain"
	"github.com/allisson/streamvault/internal/database"
	"github.com/allisson/streamvault/internal/testutil"
)

func TestNewPostgreSQLAssetRepository(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLAssetRepository(db)
	assert.NotNil(t, repo)
	assert.IsType(t, &PostgreSQLAssetRepository{}, repo)
}

func TestPostgreSQLAssetRepository_Create(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLAssetRepository(db)
	ctx := context.Background()

	asset := &assetDomain.Asset{
		ID:                uuid.Must(uuid.NewV7()),
		Status:            assetDomain.AssetStatusPublished,
		Duration:          634.5,
		MasterPlaylistCID: "bafymaster",
		PosterCID:         "bafyposter",
		EnvelopeVersion:   2,
		SegmentCount:      106,
		OriginalSize:      1037312,
		EncryptedSize:     1037312 + 106*16,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}

	err := repo.Create(ctx, asset)
	require.NoError(t, err)

	read, err := repo.Get(ctx, asset.ID)
	require.NoError(t, err)

	assert.Equal(t, asset.ID, read.ID)
	assert.Equal(t, asset.Status, read.Status)
	assert.Equal(t, asset.Duration, read.Duration)
	assert.Equal(t, asset.MasterPlaylistCID, read.MasterPlaylistCID)
	assert.Equal(t, asset.PosterCID, read.PosterCID)
	assert.Equal(t, asset.EnvelopeVersion, read.EnvelopeVersion)
	assert.Equal(t, asset.SegmentCount, read.SegmentCount)
	assert.Equal(t, asset.OriginalSize, read.OriginalSize)
	assert.Equal(t, asset.EncryptedSize, read.EncryptedSize)
	assert.WithinDuration(t, asset.CreatedAt, read.CreatedAt, time.Second)
}

func TestPostgreSQLAssetRepository_Get_NotFound(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLAssetRepository(db)

	asset, err := repo.Get(context.Background(), uuid.Must(uuid.NewV7()))

	assert.Error(t, err)
	assert.Nil(t, asset)
	assert.ErrorIs(t, err, assetDomain.ErrAssetNotFound)
}

func TestPostgreSQLAssetRepository_UpdateStatus(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLAssetRepository(db)
	ctx := context.Background()

	assetID := testutil.CreateTestAsset(t, db, "postgres")

	err := repo.UpdateStatus(ctx, assetID, assetDomain.AssetStatusPublished)
	require.NoError(t, err)

	read, err := repo.Get(ctx, assetID)
	require.NoError(t, err)
	assert.Equal(t, assetDomain.AssetStatusPublished, read.Status)
}

func TestPostgreSQLAssetRepository_UpdateEnvelope(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLAssetRepository(db)
	ctx := context.Background()

	// Simulate a legacy asset still carrying a wrapped root secret
	asset := &assetDomain.Asset{
		ID:                uuid.Must(uuid.NewV7()),
		Status:            assetDomain.AssetStatusPublished,
		EnvelopeVersion:   1,
		WrappedRootSecret: []byte("legacy-envelope-blob"),
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, asset))

	err := repo.UpdateEnvelope(ctx, asset.ID, 2, nil)
	require.NoError(t, err)

	read, err := repo.Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), read.EnvelopeVersion)
	assert.Empty(t, read.WrappedRootSecret)
}

func TestPostgreSQLAssetRepository_ListByEnvelopeVersion(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLAssetRepository(db)
	ctx := context.Background()

	for i, version := range []uint8{1, 1, 2} {
		time.Sleep(time.Millisecond)
		asset := &assetDomain.Asset{
			ID:              uuid.Must(uuid.NewV7()),
			Status:          assetDomain.AssetStatusPublished,
			EnvelopeVersion: version,
			SegmentCount:    i,
			CreatedAt:       time.Now().UTC(),
			UpdatedAt:       time.Now().UTC(),
		}
		require.NoError(t, repo.Create(ctx, asset))
	}

	legacy, err := repo.ListByEnvelopeVersion(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, legacy, 2)

	current, err := repo.ListByEnvelopeVersion(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, current, 1)

	// Oldest first
	if len(legacy) == 2 {
		assert.True(t, !legacy[0].CreatedAt.After(legacy[1].CreatedAt))
	}
}

func TestPostgreSQLAssetRepository_List(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLAssetRepository(db)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		time.Sleep(time.Millisecond)
		asset := &assetDomain.Asset{
			ID:              uuid.Must(uuid.NewV7()),
			Status:          assetDomain.AssetStatusPublished,
			EnvelopeVersion: 2,
			SegmentCount:    i,
			CreatedAt:       time.Now().UTC(),
			UpdatedAt:       time.Now().UTC(),
		}
		require.NoError(t, repo.Create(ctx, asset))
		ids = append(ids, asset.ID)
	}

	// Newest first
	assets, err := repo.List(ctx, 0, 50)
	require.NoError(t, err)
	require.Len(t, assets, 3)
	assert.Equal(t, ids[2], assets[0].ID)
	assert.Equal(t, ids[0], assets[2].ID)

	page, err := repo.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)

	empty, err := repo.List(ctx, 10, 50)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPostgreSQLRenditionRepository(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRenditionRepository(db)
	ctx := context.Background()

	assetID := testutil.CreateTestAsset(t, db, "postgres")

	r720 := &assetDomain.Rendition{
		ID:              uuid.Must(uuid.NewV7()),
		AssetID:         assetID,
		Name:            "720p",
		Resolution:      "1280x720",
		Bitrate:         2500000,
		SegmentDuration: 6,
		PlaylistCID:     "bafy720playlist",
		CreatedAt:       time.Now().UTC(),
	}
	r480 := &assetDomain.Rendition{
		ID:              uuid.Must(uuid.NewV7()),
		AssetID:         assetID,
		Name:            "480p",
		Resolution:      "854x480",
		Bitrate:         1200000,
		SegmentDuration: 6,
		PlaylistCID:     "bafy480playlist",
		CreatedAt:       time.Now().UTC(),
	}

	require.NoError(t, repo.Create(ctx, r720))
	require.NoError(t, repo.Create(ctx, r480))

	t.Run("get by name", func(t *testing.T) {
		read, err := repo.GetByName(ctx, assetID, "720p")
		require.NoError(t, err)
		assert.Equal(t, r720.ID, read.ID)
		assert.Equal(t, "1280x720", read.Resolution)
		assert.Equal(t, "bafy720playlist", read.PlaylistCID)
	})

	t.Run("get by name not found", func(t *testing.T) {
		read, err := repo.GetByName(ctx, assetID, "1080p")
		assert.Nil(t, read)
		assert.ErrorIs(t, err, assetDomain.ErrRenditionNotFound)
	})

	t.Run("list ordered by bitrate", func(t *testing.T) {
		renditions, err := repo.List(ctx, assetID)
		require.NoError(t, err)
		require.Len(t, renditions, 2)
		assert.Equal(t, "720p", renditions[0].Name)
		assert.Equal(t, "480p", renditions[1].Name)
	})

	t.Run("duplicate name rejected", func(t *testing.T) {
		dup := &assetDomain.Rendition{
			ID:        uuid.Must(uuid.NewV7()),
			AssetID:   assetID,
			Name:      "720p",
			CreatedAt: time.Now().UTC(),
		}
		assert.Error(t, repo.Create(ctx, dup))
	})
}

func TestPostgreSQLSegmentRepository(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLSegmentRepository(db)
	ctx := context.Background()

	assetID := testutil.CreateTestAsset(t, db, "postgres")

	segment := &assetDomain.Segment{
		ID:            uuid.Must(uuid.NewV7()),
		AssetID:       assetID,
		Rendition:     "720p",
		SegmentIndex:  0,
		ContentCID:    "bafyseg0",
		WrappedKey:    []byte{0x02, 0x01, 0xAA, 0xBB, 0xCC},
		Nonce:         []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
		MimeType:      assetDomain.MimeTypeMPEGTS,
		OriginalSize:  524288,
		EncryptedSize: 524304,
		CreatedAt:     time.Now().UTC(),
	}

	require.NoError(t, repo.Create(ctx, segment))

	t.Run("get by coordinates", func(t *testing.T) {
		read, err := repo.Get(ctx, assetID, "720p", 0)
		require.NoError(t, err)
		assert.Equal(t, segment.ID, read.ID)
		assert.Equal(t, segment.ContentCID, read.ContentCID)
		assert.Equal(t, segment.WrappedKey, read.WrappedKey)
		assert.Equal(t, segment.Nonce, read.Nonce)
		assert.Equal(t, segment.MimeType, read.MimeType)
		assert.Equal(t, segment.OriginalSize, read.OriginalSize)
		assert.Equal(t, segment.EncryptedSize, read.EncryptedSize)
	})

	t.Run("init segment sentinel index", func(t *testing.T) {
		initSegment := &assetDomain.Segment{
			ID:            uuid.Must(uuid.NewV7()),
			AssetID:       assetID,
			Rendition:     "720p",
			SegmentIndex:  assetDomain.InitSegmentIndex,
			ContentCID:    "bafyinit",
			WrappedKey:    []byte{0x02, 0x01},
			Nonce:         []byte{11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0},
			MimeType:      assetDomain.MimeTypeMP4,
			OriginalSize:  1024,
			EncryptedSize: 1040,
			CreatedAt:     time.Now().UTC(),
		}
		require.NoError(t, repo.Create(ctx, initSegment))

		read, err := repo.Get(ctx, assetID, "720p", assetDomain.InitSegmentIndex)
		require.NoError(t, err)
		assert.Equal(t, initSegment.ID, read.ID)
		assert.Equal(t, assetDomain.InitSegmentIndex, read.SegmentIndex)
	})

	t.Run("get not found", func(t *testing.T) {
		read, err := repo.Get(ctx, assetID, "720p", 999)
		assert.Nil(t, read)
		assert.ErrorIs(t, err, assetDomain.ErrSegmentNotFound)
	})

	t.Run("list ordered by rendition and index", func(t *testing.T) {
		testutil.CreateTestSegment(t, db, "postgres", assetID, "480p", 1)
		testutil.CreateTestSegment(t, db, "postgres", assetID, "480p", 0)

		segments, err := repo.List(ctx, assetID)
		require.NoError(t, err)
		require.Len(t, segments, 4)
		assert.Equal(t, "480p", segments[0].Rendition)
		assert.Equal(t, 0, segments[0].SegmentIndex)
		assert.Equal(t, "480p", segments[1].Rendition)
		assert.Equal(t, 1, segments[1].SegmentIndex)
		assert.Equal(t, "720p", segments[2].Rendition)
		assert.Equal(t, assetDomain.InitSegmentIndex, segments[2].SegmentIndex)
	})

	t.Run("update wrapped key", func(t *testing.T) {
		rewrapped := []byte{0x02, 0x02, 0xDE, 0xAD, 0xBE, 0xEF}
		require.NoError(t, repo.UpdateWrappedKey(ctx, segment.ID, rewrapped))

		read, err := repo.Get(ctx, assetID, "720p", 0)
		require.NoError(t, err)
		assert.Equal(t, rewrapped, read.WrappedKey)
	})

	t.Run("duplicate coordinates rejected", func(t *testing.T) {
		dup := &assetDomain.Segment{
			ID:           uuid.Must(uuid.NewV7()),
			AssetID:      assetID,
			Rendition:    "720p",
			SegmentIndex: 0,
			ContentCID:   "bafydup",
			WrappedKey:   []byte{0x02},
			Nonce:        []byte{0},
			MimeType:     assetDomain.MimeTypeMPEGTS,
			CreatedAt:    time.Now().UTC(),
		}
		assert.Error(t, repo.Create(ctx, dup))
	})
}

func TestPostgreSQLSegmentRepository_WithTransaction(t *testing.T) {
	testutil.SkipIfNoPostgres(t)
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLSegmentRepository(db)
	ctx := context.Background()

	assetID := testutil.CreateTestAsset(t, db, "postgres")

	// A failing transaction must leave no segment rows behind
	txManager := database.NewTxManager(db)
	err := txManager.WithTx(ctx, func(txCtx context.Context) error {
		segment := &assetDomain.Segment{
			ID:           uuid.Must(uuid.NewV7()),
			AssetID:      assetID,
			Rendition:    "720p",
			SegmentIndex: 0,
			ContentCID:   "bafyrollback",
			WrappedKey:   []byte{0x02},
			Nonce:        []byte{0},
			MimeType:     assetDomain.MimeTypeMPEGTS,
			CreatedAt:    time.Now().UTC(),
		}
		if err := repo.Create(txCtx, segment); err != nil {
			return err
		}
		return assetDomain.ErrEmptyTranscodeResult
	})
	require.Error(t, err)

	segments, err := repo.List(ctx, assetID)
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestMySQLAssetRepository(t *testing.T) {
	testutil.SkipIfNoMySQL(t)
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLAssetRepository(db)
	ctx := context.Background()

	asset := &assetDomain.Asset{
		ID:              uuid.Must(uuid.NewV7()),
		Status:          assetDomain.AssetStatusPublished,
		Duration:        42.0,
		EnvelopeVersion: 2,
		SegmentCount:    7,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}

	require.NoError(t, repo.Create(ctx, asset))

	read, err := repo.Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.ID, read.ID)
	assert.Equal(t, asset.Status, read.Status)
	assert.Equal(t, asset.SegmentCount, read.SegmentCount)

	_, err = repo.Get(ctx, uuid.Must(uuid.NewV7()))
	assert.ErrorIs(t, err, assetDomain.ErrAssetNotFound)
}

func TestMySQLSegmentRepository(t *testing.T) {
	testutil.SkipIfNoMySQL(t)
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLSegmentRepository(db)
	ctx := context.Background()

	assetID := testutil.CreateTestAsset(t, db, "mysql")

	segment := &assetDomain.Segment{
		ID:            uuid.Must(uuid.NewV7()),
		AssetID:       assetID,
		Rendition:     "720p",
		SegmentIndex:  3,
		ContentCID:    "bafyseg3",
		WrappedKey:    []byte{0x02, 0x01, 0xAA},
		Nonce:         []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
		MimeType:      assetDomain.MimeTypeMPEGTS,
		OriginalSize:  512000,
		EncryptedSize: 512016,
		CreatedAt:     time.Now().UTC(),
	}

	require.NoError(t, repo.Create(ctx, segment))

	read, err := repo.Get(ctx, assetID, "720p", 3)
	require.NoError(t, err)
	assert.Equal(t, segment.ID, read.ID)
	assert.Equal(t, segment.AssetID, read.AssetID)
	assert.Equal(t, segment.WrappedKey, read.WrappedKey)

	_, err = repo.Get(ctx, assetID, "720p", 4)
	assert.ErrorIs(t, err, assetDomain.ErrSegmentNotFound)
}
