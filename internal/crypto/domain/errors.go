package domain

import (
	"github.com/allisson/streamvault/internal/errors"
)

// Cryptographic operation error definitions.
//
// The first group (invalid key/nonce size, unsupported algorithm) signals
// programmer error or corrupted stored material: correct calling code with
// intact records can never trigger them, and they are treated as fatal. The
// second group distinguishes the failure kinds that the serving path must
// never conflate: an authentication failure means tampering or a
// key-management bug and must never be retried with the same key, let alone
// downgraded to serving corrupted bytes. None of these wrap ErrInvalidInput:
// they never originate from client input, and at the HTTP boundary every
// kind surfaces as a generic internal error with the detail kept in logs.
var (
	// ErrInvalidKeySize indicates a key has the wrong length for its algorithm
	// (16 bytes for segment DEKs, 32 bytes for master keys and root secrets).
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidNonceSize indicates a nonce is not exactly 12 bytes.
	ErrInvalidNonceSize = errors.New("invalid nonce size")

	// ErrUnsupportedAlgorithm indicates an unknown algorithm byte in a wrapped key.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")

	// ErrAuthenticationFailed indicates an AEAD tag mismatch on segment data:
	// the ciphertext was tampered with or the wrong DEK was derived.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrKeyUnwrapFailed indicates a wrapped key could not be opened with any
	// master key in the chain. Fatal for the request; a wrong master key will
	// never succeed on retry.
	ErrKeyUnwrapFailed = errors.New("key unwrap failed")

	// ErrDerivationFailed indicates segment-DEK derivation failed. Given
	// well-formed inputs this cannot happen; treat it as a configuration bug.
	ErrDerivationFailed = errors.New("key derivation failed")

	// ErrMalformedWrappedKey indicates a wrapped key blob is too short or has
	// an unknown version byte.
	ErrMalformedWrappedKey = errors.New("malformed wrapped key")
)

// Master key chain loading errors. Loading is fail-fast at process start.
var (
	ErrMasterKeysNotSet        = errors.New("MASTER_KEYS is not set")
	ErrActiveMasterKeyIDNotSet = errors.New("ACTIVE_MASTER_KEY_ID is not set")
	ErrInvalidMasterKeysFormat = errors.New("invalid MASTER_KEYS format, expected id:base64key")
	ErrInvalidMasterKeyBase64  = errors.New("invalid base64 in MASTER_KEYS")
	ErrActiveMasterKeyNotFound = errors.New("active master key not found in chain")
)
