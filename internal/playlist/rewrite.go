// Package playlist rewrites HLS playlists at publish time, replacing the
// transcoder's local segment URIs with the content identifiers the encrypted
// blobs were uploaded under.
package playlist

import (
	"bytes"
	"fmt"

	"github.com/grafov/m3u8"

	"github.com/allisson/streamvault/internal/errors"
)

// Rendition describes one published rendition for master playlist assembly.
type Rendition struct {
	Name            string
	Resolution      string
	Bitrate         int
	PlaylistLocator string
}

// RewriteMediaPlaylist parses a rendition playlist and replaces its segment
// URIs, in order, with segmentLocators. When the playlist carries an
// EXT-X-MAP tag its URI is replaced with initLocator. The locator count must
// match the playlist's segment count.
func RewriteMediaPlaylist(playlist []byte, initLocator string, segmentLocators []string) ([]byte, error) {
	decoded, listType, err := m3u8.DecodeFrom(bytes.NewReader(playlist), true)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, fmt.Sprintf("parse media playlist: %s", err.Error()))
	}
	if listType != m3u8.MEDIA {
		return nil, errors.Wrap(errors.ErrInvalidInput, "expected a media playlist, got a master playlist")
	}

	media := decoded.(*m3u8.MediaPlaylist)

	if media.Map != nil && media.Map.URI != "" {
		if initLocator == "" {
			return nil, errors.Wrap(errors.ErrInvalidInput, "playlist has an init segment but no init locator was given")
		}
		media.Map.URI = initLocator
	}

	next := 0
	for _, segment := range media.Segments {
		if segment == nil || segment.URI == "" {
			continue
		}
		if next >= len(segmentLocators) {
			return nil, errors.Wrap(errors.ErrInvalidInput, fmt.Sprintf("playlist has more segments than locators (%d)", len(segmentLocators)))
		}
		segment.URI = segmentLocators[next]
		// per-segment map tags also point at the init blob
		if segment.Map != nil && segment.Map.URI != "" {
			segment.Map.URI = initLocator
		}
		next++
	}
	if next != len(segmentLocators) {
		return nil, errors.Wrap(errors.ErrInvalidInput, fmt.Sprintf("playlist has %d segments but %d locators were given", next, len(segmentLocators)))
	}

	media.ResetCache()
	return media.Encode().Bytes(), nil
}

// BuildMasterPlaylist assembles a master playlist referencing the published
// rendition playlists by their uploaded locators.
func BuildMasterPlaylist(renditions []Rendition) ([]byte, error) {
	if len(renditions) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "at least one rendition is required")
	}

	master := m3u8.NewMasterPlaylist()
	master.SetVersion(7)

	for _, rendition := range renditions {
		master.Append(rendition.PlaylistLocator, nil, m3u8.VariantParams{
			Name:       rendition.Name,
			Resolution: rendition.Resolution,
			Bandwidth:  uint32(rendition.Bitrate),
		})
	}

	return master.Encode().Bytes(), nil
}
