package service

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/allisson/streamvault/internal/crypto/domain"
)

// segmentDEKInfo is the HKDF domain-separation constant for segment DEK
// derivation. Changing it (or the salt format below) is a breaking protocol
// version bump: encrypt and decrypt paths would derive different keys.
const segmentDEKInfo = "chunk-dek-v1"

// DeriveSegmentDEK deterministically derives the 16-byte AES-128 data
// encryption key for one segment from the asset's root secret and the segment
// coordinates. HKDF-SHA-256 with salt "{assetID}|{renditionName}|{segmentIndex}"
// and info "chunk-dek-v1".
//
// Determinism is load-bearing: the ingest and serving paths must derive
// byte-identical keys from the same root secret and coordinates with no other
// coordination. The init segment uses a dedicated sentinel index (see the
// asset domain) so its key is never the same as segment 0's.
func DeriveSegmentDEK(rootSecret []byte, assetID, renditionName string, segmentIndex int) ([]byte, error) {
	if len(rootSecret) != cryptoDomain.RootSecretSize {
		return nil, fmt.Errorf(
			"%w: root secret must be %d bytes, got %d",
			cryptoDomain.ErrDerivationFailed,
			cryptoDomain.RootSecretSize,
			len(rootSecret),
		)
	}

	salt := fmt.Appendf(nil, "%s|%s|%d", assetID, renditionName, segmentIndex)

	reader := hkdf.New(sha256.New, rootSecret, salt, []byte(segmentDEKInfo))
	dek := make([]byte, cryptoDomain.SegmentKeySize)
	if _, err := io.ReadFull(reader, dek); err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrDerivationFailed, err)
	}

	return dek, nil
}

// DeriveKey is the raw HKDF-SHA-256 extract-and-expand primitive. Pure
// function, no side effects; exposed for the ECDH envelope KEK derivation.
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	reader := hkdf.New(sha256.New, secret, salt, info)
	key := make([]byte, length)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrDerivationFailed, err)
	}
	return key, nil
}
