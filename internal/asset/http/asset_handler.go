// Package http provides HTTP handlers for the asset ingest and playback
// operations. Segments are encrypted at rest; playback responses carry
// decrypted media and never expose key material.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/streamvault/internal/asset/http/dto"
	assetUseCase "github.com/allisson/streamvault/internal/asset/usecase"
	"github.com/allisson/streamvault/internal/httputil"
	customValidation "github.com/allisson/streamvault/internal/validation"
)

// AssetHandler handles HTTP requests for asset ingest and playback.
type AssetHandler struct {
	ingestUseCase   assetUseCase.IngestUseCase
	playbackUseCase assetUseCase.PlaybackUseCase
	logger          *slog.Logger
}

// NewAssetHandler creates a new asset handler with required dependencies.
func NewAssetHandler(
	ingestUseCase assetUseCase.IngestUseCase,
	playbackUseCase assetUseCase.PlaybackUseCase,
	logger *slog.Logger,
) *AssetHandler {
	return &AssetHandler{
		ingestUseCase:   ingestUseCase,
		playbackUseCase: playbackUseCase,
		logger:          logger,
	}
}

// parseAssetID extracts and validates the asset id URL parameter.
func (h *AssetHandler) parseAssetID(c *gin.Context) (uuid.UUID, bool) {
	assetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("invalid asset id: %w", err),
			h.logger,
		)
		return uuid.Nil, false
	}
	return assetID, true
}

// EncryptHandler encrypts a transcoder result into the staging cache.
// POST /v1/assets/:id/encrypt
// Returns 200 OK with encryption statistics. Nothing is durable until publish.
func (h *AssetHandler) EncryptHandler(c *gin.Context) {
	assetID, ok := h.parseAssetID(c)
	if !ok {
		return
	}

	var req dto.EncryptAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	result, err := req.ToTranscodeResult()
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	stats, err := h.ingestUseCase.Encrypt(c.Request.Context(), assetID, result)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapEncryptionStatsToResponse(stats))
}

// PublishHandler uploads the staged encrypted manifest and commits the
// asset's metadata records.
// POST /v1/assets/:id/publish
// Returns 201 Created with the published asset's metadata.
func (h *AssetHandler) PublishHandler(c *gin.Context) {
	assetID, ok := h.parseAssetID(c)
	if !ok {
		return
	}

	asset, err := h.ingestUseCase.Publish(c.Request.Context(), assetID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapAssetToResponse(asset))
}

// GetAssetHandler returns a published asset's metadata.
// GET /v1/assets/:id
func (h *AssetHandler) GetAssetHandler(c *gin.Context) {
	assetID, ok := h.parseAssetID(c)
	if !ok {
		return
	}

	asset, err := h.playbackUseCase.GetAsset(c.Request.Context(), assetID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAssetToResponse(asset))
}

// ListAssetsHandler returns a paginated list of assets, newest first.
// GET /v1/assets
func (h *AssetHandler) ListAssetsHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	assets, err := h.playbackUseCase.ListAssets(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAssetsToListResponse(assets))
}

// GetSegmentHandler serves one decrypted media segment.
// GET /v1/assets/:id/renditions/:rendition/segments/:index
// The init segment is addressed by index -1.
// Returns 200 OK with the media bytes and the segment's content type.
func (h *AssetHandler) GetSegmentHandler(c *gin.Context) {
	assetID, ok := h.parseAssetID(c)
	if !ok {
		return
	}

	rendition := c.Param("rendition")
	if rendition == "" {
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("rendition cannot be empty"),
			h.logger,
		)
		return
	}

	segmentIndex, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("invalid segment index: must be an integer"),
			h.logger,
		)
		return
	}

	media, err := h.playbackUseCase.ServeSegment(c.Request.Context(), assetID, rendition, segmentIndex)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Header("Cache-Control", "private, max-age=60")
	c.Data(http.StatusOK, media.MimeType, media.Data)
}

// GetPlaylistHandler serves a rendition's media playlist with locators
// normalized for the current storage topology.
// GET /v1/assets/:id/renditions/:rendition/playlist
func (h *AssetHandler) GetPlaylistHandler(c *gin.Context) {
	assetID, ok := h.parseAssetID(c)
	if !ok {
		return
	}

	rendition := c.Param("rendition")
	if rendition == "" {
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("rendition cannot be empty"),
			h.logger,
		)
		return
	}

	media, err := h.playbackUseCase.ServePlaylist(c.Request.Context(), assetID, rendition)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusOK, media.MimeType, media.Data)
}

// GetMasterPlaylistHandler serves the asset's master playlist.
// GET /v1/assets/:id/playlist
func (h *AssetHandler) GetMasterPlaylistHandler(c *gin.Context) {
	assetID, ok := h.parseAssetID(c)
	if !ok {
		return
	}

	media, err := h.playbackUseCase.ServeMasterPlaylist(c.Request.Context(), assetID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusOK, media.MimeType, media.Data)
}
