package domain

// TranscodeResult is the transcoder's output for one asset: an ordered
// rendition list with raw segment byte buffers. The transcoder itself is an
// external collaborator; this is its only touch point with the pipeline.
type TranscodeResult struct {
	// JobID is the transcoder's job identifier, kept for log correlation.
	JobID string

	// Duration is the asset duration in seconds.
	Duration float64

	// Poster is an optional poster frame (JPEG).
	Poster []byte

	// Renditions in descending quality order. Order is preserved through
	// encryption and publication.
	Renditions []TranscodedRendition
}

// TranscodedRendition is one quality variant of the asset.
type TranscodedRendition struct {
	// Name is the rendition identifier used as a derivation coordinate
	// (e.g., "720p"). Must be unique within the asset.
	Name string

	// Resolution is the display resolution (e.g., "1280x720").
	Resolution string

	// Bitrate is the average bitrate in bits per second.
	Bitrate int

	// SegmentDuration is the target segment duration in seconds.
	SegmentDuration float64

	// Playlist is the rendition's media playlist text as produced by the
	// transcoder. Segment URIs are rewritten at publish time.
	Playlist []byte

	// InitSegment is the optional fragmented-MP4 initialization segment.
	InitSegment []byte

	// Segments are the raw segment byte buffers in playback order.
	Segments [][]byte
}

// Validate checks the transcode result is complete enough to encrypt.
func (t TranscodeResult) Validate() error {
	if len(t.Renditions) == 0 {
		return ErrEmptyTranscodeResult
	}
	for _, rendition := range t.Renditions {
		if rendition.Name == "" || len(rendition.Segments) == 0 {
			return ErrEmptyTranscodeResult
		}
	}
	return nil
}
