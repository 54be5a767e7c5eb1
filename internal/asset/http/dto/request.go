// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"encoding/base64"
	"fmt"

	validation "github.com/jellydator/validation"

	assetDomain "github.com/allisson/streamvault/internal/asset/domain"
	customValidation "github.com/allisson/streamvault/internal/validation"
)

// EncryptAssetRequest carries a transcoder result into the encrypt endpoint.
// Binary payloads (playlists, segments, poster) are base64-encoded strings.
type EncryptAssetRequest struct {
	JobID      string             `json:"job_id"`
	Duration   float64            `json:"duration"`
	Poster     string             `json:"poster,omitempty"`
	Renditions []RenditionRequest `json:"renditions"`
}

// RenditionRequest is one quality variant in an encrypt request.
type RenditionRequest struct {
	Name            string   `json:"name"`
	Resolution      string   `json:"resolution"`
	Bitrate         int      `json:"bitrate"`
	SegmentDuration float64  `json:"segment_duration"`
	Playlist        string   `json:"playlist"`
	InitSegment     string   `json:"init_segment,omitempty"`
	Segments        []string `json:"segments"`
}

// Validate checks if the encrypt asset request is valid.
func (r *EncryptAssetRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Duration, validation.Min(0.0)),
		validation.Field(&r.Poster, customValidation.Base64),
		validation.Field(&r.Renditions, validation.Required, validation.Length(1, 0)),
	)
}

// Validate checks if the rendition request is valid.
func (r RenditionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 64), customValidation.NoWhitespace),
		validation.Field(&r.Bitrate, validation.Min(0)),
		validation.Field(&r.Playlist, validation.Required, customValidation.Base64),
		validation.Field(&r.InitSegment, customValidation.Base64),
		validation.Field(&r.Segments, validation.Required, validation.Length(1, 0)),
	)
}

// ToTranscodeResult decodes the base64 payloads into a domain transcode
// result. Returns an error naming the offending field on invalid base64.
func (r *EncryptAssetRequest) ToTranscodeResult() (assetDomain.TranscodeResult, error) {
	result := assetDomain.TranscodeResult{
		JobID:      r.JobID,
		Duration:   r.Duration,
		Renditions: make([]assetDomain.TranscodedRendition, 0, len(r.Renditions)),
	}

	if r.Poster != "" {
		poster, err := base64.StdEncoding.DecodeString(r.Poster)
		if err != nil {
			return assetDomain.TranscodeResult{}, fmt.Errorf("invalid base64 poster: %w", err)
		}
		result.Poster = poster
	}

	for _, rendition := range r.Renditions {
		playlist, err := base64.StdEncoding.DecodeString(rendition.Playlist)
		if err != nil {
			return assetDomain.TranscodeResult{}, fmt.Errorf("rendition %s: invalid base64 playlist: %w", rendition.Name, err)
		}

		decoded := assetDomain.TranscodedRendition{
			Name:            rendition.Name,
			Resolution:      rendition.Resolution,
			Bitrate:         rendition.Bitrate,
			SegmentDuration: rendition.SegmentDuration,
			Playlist:        playlist,
			Segments:        make([][]byte, 0, len(rendition.Segments)),
		}

		if rendition.InitSegment != "" {
			initSegment, err := base64.StdEncoding.DecodeString(rendition.InitSegment)
			if err != nil {
				return assetDomain.TranscodeResult{}, fmt.Errorf("rendition %s: invalid base64 init segment: %w", rendition.Name, err)
			}
			decoded.InitSegment = initSegment
		}

		for idx, segment := range rendition.Segments {
			payload, err := base64.StdEncoding.DecodeString(segment)
			if err != nil {
				return assetDomain.TranscodeResult{}, fmt.Errorf("rendition %s: invalid base64 segment %d: %w", rendition.Name, idx, err)
			}
			decoded.Segments = append(decoded.Segments, payload)
		}

		result.Renditions = append(result.Renditions, decoded)
	}

	return result, nil
}
