package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/allisson/streamvault/internal/crypto/domain"
)

// AESGCMCipher implements the AEAD interface using AES-GCM.
//
// Both key sizes used by the pipeline are supported: 16 bytes (AES-128) for
// per-segment data encryption keys and 32 bytes (AES-256) for envelope
// wrapping under the master key. Nonces are 12 bytes and the 16-byte
// authentication tag is appended to the ciphertext.
//
// The cipher instance is stateless and safe for concurrent use from multiple
// goroutines; each Encrypt call generates its nonce independently.
type AESGCMCipher struct {
	aead cipher.AEAD
}

// NewAESGCM creates an AES-GCM cipher from a 16- or 32-byte key.
// Returns ErrInvalidKeySize for any other key length.
func NewAESGCM(key []byte) (*AESGCMCipher, error) {
	switch len(key) {
	case cryptoDomain.SegmentKeySize, cryptoDomain.MasterKeySize:
	default:
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESGCMCipher{aead: aead}, nil
}

// Encrypt encrypts plaintext with a fresh random 12-byte nonce and optional
// AAD. The returned ciphertext includes the 16-byte authentication tag.
// Nonces must never be reused with the same key; the caller stores the nonce
// alongside the ciphertext for decryption.
func (a *AESGCMCipher) Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, a.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext = a.aead.Seal(nil, nonce, plaintext, aad)
	return ciphertext, nonce, nil
}

// Decrypt decrypts ciphertext using the provided nonce and AAD. The tag is
// verified before any plaintext is returned: a mismatch (tampered ciphertext,
// wrong key, or wrong AAD) fails with ErrAuthenticationFailed and never yields
// altered plaintext. A nonce of the wrong length fails with ErrInvalidNonceSize.
func (a *AESGCMCipher) Decrypt(ciphertext, nonce, aad []byte) ([]byte, error) {
	if len(nonce) != a.aead.NonceSize() {
		return nil, cryptoDomain.ErrInvalidNonceSize
	}

	plaintext, err := a.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, cryptoDomain.ErrAuthenticationFailed
	}
	return plaintext, nil
}
