package domain

// Algorithm identifies the AEAD algorithm used for an envelope or segment.
// The value is stored as a single byte in the wrapped-key wire format, so
// existing values must never be renumbered.
type Algorithm uint8

const (
	// AlgorithmAESGCM128 is AES-128-GCM, used for per-segment data encryption keys.
	AlgorithmAESGCM128 Algorithm = 0x01

	// AlgorithmAESGCM256 is AES-256-GCM, used for wrapping key material under
	// the master key and for the legacy ECDH-derived root-secret envelope.
	AlgorithmAESGCM256 Algorithm = 0x02
)

// Envelope versions carried in the first byte of a wrapped key. Version 1 is
// the legacy per-asset root-secret envelope (ephemeral ECDH against the
// server's published public key); version 2 wraps each segment DEK directly
// under the master key. Old and new formats coexist until the offline
// migration has rewritten every version-1 record.
const (
	EnvelopeVersionRootSecret uint8 = 1
	EnvelopeVersionSegmentDEK uint8 = 2
)

const (
	// NonceSize is the AES-GCM nonce size in bytes (96 bits).
	NonceSize = 12

	// TagSize is the AES-GCM authentication tag size in bytes (128 bits),
	// appended to every ciphertext.
	TagSize = 16

	// SegmentKeySize is the size of a per-segment DEK in bytes (AES-128).
	SegmentKeySize = 16

	// MasterKeySize is the size of a master key in bytes (AES-256).
	MasterKeySize = 32

	// RootSecretSize is the size of the per-asset root secret in bytes.
	RootSecretSize = 32

	// EphemeralPublicKeySize is the size of an uncompressed P-256 point as
	// embedded in version-1 envelopes.
	EphemeralPublicKeySize = 65
)
