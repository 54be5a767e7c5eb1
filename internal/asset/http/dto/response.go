// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	assetDomain "github.com/allisson/streamvault/internal/asset/domain"
)

// EncryptionStatsResponse reports the outcome of an encrypt operation.
type EncryptionStatsResponse struct {
	SegmentCount       int     `json:"segment_count"`
	TotalOriginalSize  int64   `json:"total_original_size"`
	TotalEncryptedSize int64   `json:"total_encrypted_size"`
	OverheadPercentage float64 `json:"overhead_percentage"`
}

// MapEncryptionStatsToResponse converts domain encryption stats to an API response.
func MapEncryptionStatsToResponse(stats assetDomain.EncryptionStats) EncryptionStatsResponse {
	return EncryptionStatsResponse{
		SegmentCount:       stats.SegmentCount,
		TotalOriginalSize:  stats.TotalOriginalSize,
		TotalEncryptedSize: stats.TotalEncryptedSize,
		OverheadPercentage: stats.OverheadPercentage,
	}
}

// AssetResponse represents a published asset in API responses. Key material
// never appears here; envelopes stay inside the metadata store.
type AssetResponse struct {
	ID                string    `json:"id"`
	Status            string    `json:"status"`
	Duration          float64   `json:"duration"`
	MasterPlaylistCID string    `json:"master_playlist_cid"`
	PosterCID         string    `json:"poster_cid,omitempty"`
	EnvelopeVersion   uint8     `json:"envelope_version"`
	SegmentCount      int       `json:"segment_count"`
	OriginalSize      int64     `json:"original_size"`
	EncryptedSize     int64     `json:"encrypted_size"`
	CreatedAt         time.Time `json:"created_at"`
}

// MapAssetToResponse converts a domain asset to an API response.
func MapAssetToResponse(asset *assetDomain.Asset) AssetResponse {
	return AssetResponse{
		ID:                asset.ID.String(),
		Status:            string(asset.Status),
		Duration:          asset.Duration,
		MasterPlaylistCID: asset.MasterPlaylistCID,
		PosterCID:         asset.PosterCID,
		EnvelopeVersion:   asset.EnvelopeVersion,
		SegmentCount:      asset.SegmentCount,
		OriginalSize:      asset.OriginalSize,
		EncryptedSize:     asset.EncryptedSize,
		CreatedAt:         asset.CreatedAt,
	}
}

// ListAssetsResponse represents a paginated list of assets in API responses.
type ListAssetsResponse struct {
	Data []AssetResponse `json:"data"`
}

// MapAssetsToListResponse converts domain assets to a list API response.
func MapAssetsToListResponse(assets []*assetDomain.Asset) ListAssetsResponse {
	data := make([]AssetResponse, len(assets))
	for i, asset := range assets {
		data[i] = MapAssetToResponse(asset)
	}

	return ListAssetsResponse{Data: data}
}
