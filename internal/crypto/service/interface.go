// Package service provides the cryptographic services for the segment
// encryption pipeline: the AES-GCM primitive, deterministic segment-DEK
// derivation, and the envelope service that wraps key material under the
// server-held master key chain.
package service

import (
	"crypto/ecdh"

	cryptoDomain "github.com/allisson/streamvault/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with a fresh random nonce and optional AAD.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// Envelope wraps and unwraps secret key material for storage at rest.
// Implementations hold the master key chain; callers only ever see plaintext
// DEKs transiently and WrappedKey values otherwise.
type Envelope interface {
	// WrapDek envelope-encrypts a 16-byte segment DEK under the active master key.
	WrapDek(dek []byte) (cryptoDomain.WrappedKey, error)

	// UnwrapDek recovers a segment DEK from a version-2 wrapped key. Fails with
	// ErrKeyUnwrapFailed if no master key in the chain authenticates the envelope.
	UnwrapDek(wrapped cryptoDomain.WrappedKey) ([]byte, error)

	// WrapRootSecret envelope-encrypts a 32-byte root secret against the
	// server's published public key using an ephemeral ECDH key pair (legacy
	// version-1 scheme, retained for interoperability tests and migration).
	WrapRootSecret(rootSecret []byte, serverPublicKey *ecdh.PublicKey) (cryptoDomain.WrappedKey, error)

	// UnwrapRootSecret recovers a root secret from a version-1 wrapped key
	// using the server's ECDH private key.
	UnwrapRootSecret(wrapped cryptoDomain.WrappedKey) ([]byte, error)

	// ServerPublicKey returns the server's ECDH public key for legacy
	// envelopes, or nil when no key is configured.
	ServerPublicKey() *ecdh.PublicKey
}
