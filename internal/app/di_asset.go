package app

import (
	"fmt"
	"strings"

	assetHTTP "github.com/allisson/streamvault/internal/asset/http"
	assetRepository "github.com/allisson/streamvault/internal/asset/repository"
	assetService "github.com/allisson/streamvault/internal/asset/service"
	assetUseCase "github.com/allisson/streamvault/internal/asset/usecase"
	"github.com/allisson/streamvault/internal/resultcache"
	"github.com/allisson/streamvault/internal/storage"
)

// AssetRepository returns the asset repository for the configured database driver.
func (c *Container) AssetRepository() (assetUseCase.AssetRepository, error) {
	var err error
	c.assetRepoInit.Do(func() {
		db, dbErr := c.DB()
		if dbErr != nil {
			err = fmt.Errorf("failed to get database for asset repository: %w", dbErr)
			c.initErrors["assetRepo"] = err
			return
		}
		switch c.config.DBDriver {
		case "mysql":
			c.assetRepo = assetRepository.NewMySQLAssetRepository(db)
		default:
			c.assetRepo = assetRepository.NewPostgreSQLAssetRepository(db)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["assetRepo"]; exists {
		return nil, storedErr
	}
	return c.assetRepo, nil
}

// RenditionRepository returns the rendition repository for the configured database driver.
func (c *Container) RenditionRepository() (assetUseCase.RenditionRepository, error) {
	var err error
	c.renditionRepoInit.Do(func() {
		db, dbErr := c.DB()
		if dbErr != nil {
			err = fmt.Errorf("failed to get database for rendition repository: %w", dbErr)
			c.initErrors["renditionRepo"] = err
			return
		}
		switch c.config.DBDriver {
		case "mysql":
			c.renditionRepo = assetRepository.NewMySQLRenditionRepository(db)
		default:
			c.renditionRepo = assetRepository.NewPostgreSQLRenditionRepository(db)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["renditionRepo"]; exists {
		return nil, storedErr
	}
	return c.renditionRepo, nil
}

// SegmentRepository returns the segment repository for the configured database driver.
func (c *Container) SegmentRepository() (assetUseCase.SegmentRepository, error) {
	var err error
	c.segmentRepoInit.Do(func() {
		db, dbErr := c.DB()
		if dbErr != nil {
			err = fmt.Errorf("failed to get database for segment repository: %w", dbErr)
			c.initErrors["segmentRepo"] = err
			return
		}
		switch c.config.DBDriver {
		case "mysql":
			c.segmentRepo = assetRepository.NewMySQLSegmentRepository(db)
		default:
			c.segmentRepo = assetRepository.NewPostgreSQLSegmentRepository(db)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["segmentRepo"]; exists {
		return nil, storedErr
	}
	return c.segmentRepo, nil
}

// SegmentEncryptor returns the segment encryption service.
func (c *Container) SegmentEncryptor() (*assetService.SegmentEncryptor, error) {
	var err error
	c.segmentEncryptorInit.Do(func() {
		envelope, envErr := c.EnvelopeService()
		if envErr != nil {
			err = fmt.Errorf("failed to get envelope service for segment encryptor: %w", envErr)
			c.initErrors["segmentEncryptor"] = err
			return
		}
		c.segmentEncryptor = assetService.NewSegmentEncryptor(envelope, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["segmentEncryptor"]; exists {
		return nil, storedErr
	}
	return c.segmentEncryptor, nil
}

// ResultCache returns the in-memory encrypted-manifest cache.
func (c *Container) ResultCache() *resultcache.Cache {
	c.resultCacheInit.Do(func() {
		c.resultCache = resultcache.New(c.config.ResultCacheMaxEntries, c.config.ResultCacheTTL)
	})
	return c.resultCache
}

// BlobStore returns the blob storage gateway client.
func (c *Container) BlobStore() storage.BlobStore {
	c.blobStoreInit.Do(func() {
		c.blobStore = storage.NewGatewayClient(
			c.config.StorageGatewayURL,
			c.Logger(),
			storage.WithMaxRetries(c.config.StorageMaxRetries),
			storage.WithRetryBackoff(c.config.StorageRetryBackoff),
		)
	})
	return c.blobStore
}

// LocatorNormalizer returns the content locator normalizer.
func (c *Container) LocatorNormalizer() *storage.LocatorNormalizer {
	c.normalizerInit.Do(func() {
		var legacyHosts []string
		for _, host := range strings.Split(c.config.StorageLegacyHosts, ",") {
			if trimmed := strings.TrimSpace(host); trimmed != "" {
				legacyHosts = append(legacyHosts, trimmed)
			}
		}
		c.normalizer = storage.NewLocatorNormalizer(
			c.config.StorageAggregatorHost,
			legacyHosts,
			c.config.StorageFetchPrefix,
		)
	})
	return c.normalizer
}

// IngestUseCase returns the ingest use case wrapped with business metrics.
func (c *Container) IngestUseCase() (assetUseCase.IngestUseCase, error) {
	var err error
	c.ingestUseCaseInit.Do(func() {
		c.ingestUseCase, err = c.initIngestUseCase()
		if err != nil {
			c.initErrors["ingestUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["ingestUseCase"]; exists {
		return nil, storedErr
	}
	return c.ingestUseCase, nil
}

// PlaybackUseCase returns the playback use case wrapped with business metrics.
func (c *Container) PlaybackUseCase() (assetUseCase.PlaybackUseCase, error) {
	var err error
	c.playbackUseCaseInit.Do(func() {
		c.playbackUseCase, err = c.initPlaybackUseCase()
		if err != nil {
			c.initErrors["playbackUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["playbackUseCase"]; exists {
		return nil, storedErr
	}
	return c.playbackUseCase, nil
}

// MigrationUseCase returns the envelope migration use case.
func (c *Container) MigrationUseCase() (assetUseCase.MigrationUseCase, error) {
	var err error
	c.migrationUseCaseInit.Do(func() {
		c.migrationUseCase, err = c.initMigrationUseCase()
		if err != nil {
			c.initErrors["migrationUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["migrationUseCase"]; exists {
		return nil, storedErr
	}
	return c.migrationUseCase, nil
}

// AssetHandler returns the HTTP handler for the asset endpoints.
func (c *Container) AssetHandler() (*assetHTTP.AssetHandler, error) {
	var err error
	c.assetHandlerInit.Do(func() {
		ingest, ingestErr := c.IngestUseCase()
		if ingestErr != nil {
			err = ingestErr
			c.initErrors["assetHandler"] = err
			return
		}
		playback, playbackErr := c.PlaybackUseCase()
		if playbackErr != nil {
			err = playbackErr
			c.initErrors["assetHandler"] = err
			return
		}
		c.assetHandler = assetHTTP.NewAssetHandler(ingest, playback, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["assetHandler"]; exists {
		return nil, storedErr
	}
	return c.assetHandler, nil
}

// initIngestUseCase creates the ingest use case with all its dependencies.
func (c *Container) initIngestUseCase() (assetUseCase.IngestUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for ingest use case: %w", err)
	}
	assetRepo, err := c.AssetRepository()
	if err != nil {
		return nil, err
	}
	renditionRepo, err := c.RenditionRepository()
	if err != nil {
		return nil, err
	}
	segmentRepo, err := c.SegmentRepository()
	if err != nil {
		return nil, err
	}
	encryptor, err := c.SegmentEncryptor()
	if err != nil {
		return nil, err
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}

	useCase := assetUseCase.NewIngestUseCase(
		txManager,
		assetRepo,
		renditionRepo,
		segmentRepo,
		encryptor,
		c.ResultCache(),
		c.BlobStore(),
		c.LocatorNormalizer(),
		c.Logger(),
	)

	return assetUseCase.NewIngestUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initPlaybackUseCase creates the playback use case with all its dependencies.
func (c *Container) initPlaybackUseCase() (assetUseCase.PlaybackUseCase, error) {
	assetRepo, err := c.AssetRepository()
	if err != nil {
		return nil, err
	}
	renditionRepo, err := c.RenditionRepository()
	if err != nil {
		return nil, err
	}
	segmentRepo, err := c.SegmentRepository()
	if err != nil {
		return nil, err
	}
	envelope, err := c.EnvelopeService()
	if err != nil {
		return nil, err
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}

	useCase := assetUseCase.NewPlaybackUseCase(
		assetRepo,
		renditionRepo,
		segmentRepo,
		envelope,
		c.BlobStore(),
		c.LocatorNormalizer(),
		c.Logger(),
	)

	return assetUseCase.NewPlaybackUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initMigrationUseCase creates the envelope migration use case.
func (c *Container) initMigrationUseCase() (assetUseCase.MigrationUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for migration use case: %w", err)
	}
	assetRepo, err := c.AssetRepository()
	if err != nil {
		return nil, err
	}
	segmentRepo, err := c.SegmentRepository()
	if err != nil {
		return nil, err
	}
	envelope, err := c.EnvelopeService()
	if err != nil {
		return nil, err
	}

	return assetUseCase.NewMigrationUseCase(txManager, assetRepo, segmentRepo, envelope, c.Logger()), nil
}
