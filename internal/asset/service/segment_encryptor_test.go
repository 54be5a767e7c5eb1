package service

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assetDomain "github.com/allisson/streamvault/internal/asset/domain"
	cryptoDomain "github.com/allisson/streamvault/internal/crypto/domain"
	cryptoService "github.com/allisson/streamvault/internal/crypto/service"
)

func testEncryptor(t *testing.T) (*SegmentEncryptor, *cryptoService.EnvelopeService) {
	t.Helper()

	key := make([]byte, cryptoDomain.MasterKeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	chain, err := cryptoDomain.LoadMasterKeyChain(
		t.Context(),
		cryptoDomain.MasterKeyChainConfig{
			MasterKeys:        "test:" + base64.StdEncoding.EncodeToString(key),
			ActiveMasterKeyID: "test",
		},
		nil,
		logger,
	)
	require.NoError(t, err)
	t.Cleanup(chain.Close)

	envelope := cryptoService.NewEnvelopeService(chain, nil)
	return NewSegmentEncryptor(envelope, logger), envelope
}

func randomSegment(t *testing.T, size int) []byte {
	t.Helper()
	payload := make([]byte, size)
	_, err := rand.Read(payload)
	require.NoError(t, err)
	return payload
}

func TestSegmentEncryptor_EncryptTranscodeResult(t *testing.T) {
	encryptor, envelope := testEncryptor(t)
	assetID := uuid.Must(uuid.NewV7())

	segments := [][]byte{
		randomSegment(t, 1024),
		randomSegment(t, 524288),
		randomSegment(t, 512000),
	}

	result := assetDomain.TranscodeResult{
		JobID:    "job-1",
		Duration: 30,
		Renditions: []assetDomain.TranscodedRendition{
			{
				Name:            "720p",
				Resolution:      "1280x720",
				Bitrate:         2_500_000,
				SegmentDuration: 10,
				Segments:        segments,
			},
		},
	}

	manifest, err := encryptor.EncryptTranscodeResult(t.Context(), result, assetID)
	require.NoError(t, err)

	require.Len(t, manifest.Renditions, 1)
	rendition := manifest.Renditions[0]
	require.Len(t, rendition.Segments, 3)
	assert.Nil(t, rendition.InitSegment)
	assert.Equal(t, cryptoDomain.EnvelopeVersionSegmentDEK, manifest.EnvelopeVersion)

	t.Run("each segment has a unique 12-byte nonce", func(t *testing.T) {
		seen := map[string]bool{}
		for _, segment := range rendition.Segments {
			assert.Equal(t, cryptoDomain.NonceSize, len(segment.Nonce))
			assert.False(t, seen[string(segment.Nonce)])
			seen[string(segment.Nonce)] = true
		}
	})

	t.Run("stats match the scenario", func(t *testing.T) {
		stats := assetDomain.CalculateEncryptionStats(manifest)
		assert.Equal(t, 3, stats.SegmentCount)
		assert.Equal(t, int64(1037312), stats.TotalOriginalSize)
		// Nonce and wrapped key are stored out-of-band: overhead is exactly
		// one 16-byte tag per segment.
		assert.Equal(t, int64(1037312+3*cryptoDomain.TagSize), stats.TotalEncryptedSize)
		assert.Greater(t, stats.OverheadPercentage, 0.0)
		assert.Less(t, stats.OverheadPercentage, 1.0)
	})

	t.Run("round trip through unwrap and decrypt", func(t *testing.T) {
		for i, segment := range rendition.Segments {
			dek, err := envelope.UnwrapDek(segment.WrappedKey)
			require.NoError(t, err)

			aead, err := cryptoService.NewAESGCM(dek)
			require.NoError(t, err)

			plaintext, err := aead.Decrypt(segment.Ciphertext, segment.Nonce, nil)
			require.NoError(t, err)
			assert.Equal(t, segments[i], plaintext, "segment %d", i)
		}
	})

	t.Run("derived DEK matches the wrapped DEK coordinates", func(t *testing.T) {
		// The wrapped DEK must be the one derivable from the segment
		// coordinates; two manifests for different assets never share keys.
		otherManifest, err := encryptor.EncryptTranscodeResult(t.Context(), result, uuid.Must(uuid.NewV7()))
		require.NoError(t, err)

		first, err := envelope.UnwrapDek(rendition.Segments[0].WrappedKey)
		require.NoError(t, err)
		other, err := envelope.UnwrapDek(otherManifestSegment(otherManifest).WrappedKey)
		require.NoError(t, err)
		assert.NotEqual(t, first, other)
	})
}

func otherManifestSegment(m *assetDomain.EncryptedAssetManifest) assetDomain.EncryptedSegment {
	return m.Renditions[0].Segments[0]
}

func TestSegmentEncryptor_InitSegment(t *testing.T) {
	encryptor, envelope := testEncryptor(t)
	assetID := uuid.Must(uuid.NewV7())

	initSegment := randomSegment(t, 2048)
	firstSegment := randomSegment(t, 4096)

	result := assetDomain.TranscodeResult{
		Duration: 10,
		Renditions: []assetDomain.TranscodedRendition{
			{
				Name:        "1080p",
				Resolution:  "1920x1080",
				Bitrate:     5_000_000,
				InitSegment: initSegment,
				Segments:    [][]byte{firstSegment},
			},
		},
	}

	manifest, err := encryptor.EncryptTranscodeResult(t.Context(), result, assetID)
	require.NoError(t, err)

	rendition := manifest.Renditions[0]
	require.NotNil(t, rendition.InitSegment)
	assert.Equal(t, assetDomain.InitSegmentIndex, rendition.InitSegment.Index)
	assert.Equal(t, assetDomain.MimeTypeMP4, rendition.InitSegment.MimeType)

	t.Run("init segment key differs from segment 0 key", func(t *testing.T) {
		initDek, err := envelope.UnwrapDek(rendition.InitSegment.WrappedKey)
		require.NoError(t, err)
		firstDek, err := envelope.UnwrapDek(rendition.Segments[0].WrappedKey)
		require.NoError(t, err)
		assert.NotEqual(t, initDek, firstDek)
	})

	t.Run("init segment decrypts to original bytes", func(t *testing.T) {
		dek, err := envelope.UnwrapDek(rendition.InitSegment.WrappedKey)
		require.NoError(t, err)

		aead, err := cryptoService.NewAESGCM(dek)
		require.NoError(t, err)

		plaintext, err := aead.Decrypt(rendition.InitSegment.Ciphertext, rendition.InitSegment.Nonce, nil)
		require.NoError(t, err)
		assert.Equal(t, initSegment, plaintext)
	})

	t.Run("stats include the init segment", func(t *testing.T) {
		stats := assetDomain.CalculateEncryptionStats(manifest)
		assert.Equal(t, 2, stats.SegmentCount)
		assert.Equal(t, int64(len(initSegment)+len(firstSegment)), stats.TotalOriginalSize)
	})
}

func TestSegmentEncryptor_EmptyInput(t *testing.T) {
	encryptor, _ := testEncryptor(t)
	assetID := uuid.Must(uuid.NewV7())

	cases := map[string]assetDomain.TranscodeResult{
		"no renditions": {Duration: 10},
		"rendition without segments": {
			Duration:   10,
			Renditions: []assetDomain.TranscodedRendition{{Name: "720p"}},
		},
		"rendition without name": {
			Duration: 10,
			Renditions: []assetDomain.TranscodedRendition{
				{Segments: [][]byte{{1, 2, 3}}},
			},
		},
	}

	for name, result := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := encryptor.EncryptTranscodeResult(t.Context(), result, assetID)
			assert.ErrorIs(t, err, assetDomain.ErrEmptyTranscodeResult)
		})
	}
}

func TestSegmentEncryptor_ManyRenditions(t *testing.T) {
	encryptor, _ := testEncryptor(t)
	assetID := uuid.Must(uuid.NewV7())

	renditions := make([]assetDomain.TranscodedRendition, 0, 3)
	for _, name := range []string{"1080p", "720p", "480p"} {
		renditions = append(renditions, assetDomain.TranscodedRendition{
			Name:       name,
			Resolution: "x",
			Bitrate:    1_000_000,
			Segments: [][]byte{
				randomSegment(t, 100),
				randomSegment(t, 200),
			},
		})
	}

	manifest, err := encryptor.EncryptTranscodeResult(
		t.Context(),
		assetDomain.TranscodeResult{Duration: 20, Renditions: renditions},
		assetID,
	)
	require.NoError(t, err)

	require.Len(t, manifest.Renditions, 3)
	for i, rendition := range manifest.Renditions {
		assert.Equal(t, renditions[i].Name, rendition.Name, "rendition order preserved")
		assert.Len(t, rendition.Segments, 2)
	}

	// Same index, different renditions: nonces and ciphertexts must differ.
	assert.NotEqual(t, manifest.Renditions[0].Segments[0].Nonce, manifest.Renditions[1].Segments[0].Nonce)
}
