package service

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/allisson/streamvault/internal/crypto/domain"
)

// rootSecretKEKInfo is the HKDF domain-separation constant for deriving the
// key-encryption key of legacy version-1 root-secret envelopes.
const rootSecretKEKInfo = "root-secret-kek-v1"

// EnvelopeService implements Envelope on top of the master key chain.
//
// Version-2 envelopes wrap each segment DEK under the active master key with
// AES-256-GCM and a fresh random nonce. The wire format carries no master key
// id, so unwrapping tries the active key first and then every other key in
// the chain; this keeps old envelopes decryptable across master key rotation
// without extending the format.
type EnvelopeService struct {
	chain     *cryptoDomain.MasterKeyChain
	serverKey *ecdh.PrivateKey
}

// NewEnvelopeService creates an envelope service. serverKey is the ECDH
// private key for unwrapping legacy version-1 envelopes; pass nil when no
// legacy assets need to be served or migrated.
func NewEnvelopeService(
	chain *cryptoDomain.MasterKeyChain,
	serverKey *ecdh.PrivateKey,
) *EnvelopeService {
	return &EnvelopeService{chain: chain, serverKey: serverKey}
}

// WrapDek envelope-encrypts a 16-byte segment DEK under the active master key.
func (e *EnvelopeService) WrapDek(dek []byte) (cryptoDomain.WrappedKey, error) {
	if len(dek) != cryptoDomain.SegmentKeySize {
		return cryptoDomain.WrappedKey{}, cryptoDomain.ErrInvalidKeySize
	}

	masterKey, ok := e.chain.Get(e.chain.ActiveMasterKeyID())
	if !ok {
		return cryptoDomain.WrappedKey{}, fmt.Errorf(
			"%w: %s", cryptoDomain.ErrActiveMasterKeyNotFound, e.chain.ActiveMasterKeyID(),
		)
	}

	aead, err := NewAESGCM(masterKey.Key)
	if err != nil {
		return cryptoDomain.WrappedKey{}, err
	}

	ciphertext, nonce, err := aead.Encrypt(dek, nil)
	if err != nil {
		return cryptoDomain.WrappedKey{}, fmt.Errorf("failed to wrap dek: %w", err)
	}

	return cryptoDomain.WrappedKey{
		Version:    cryptoDomain.EnvelopeVersionSegmentDEK,
		Algorithm:  cryptoDomain.AlgorithmAESGCM256,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}

// UnwrapDek recovers a segment DEK from a version-2 wrapped key. It tries the
// active master key first, then the rest of the chain. A wrapped key that no
// chain key authenticates fails with ErrKeyUnwrapFailed; this is fatal for
// the request and must not be retried with the same keys.
func (e *EnvelopeService) UnwrapDek(wrapped cryptoDomain.WrappedKey) ([]byte, error) {
	if wrapped.Version != cryptoDomain.EnvelopeVersionSegmentDEK {
		return nil, fmt.Errorf(
			"%w: expected envelope version %d, got %d",
			cryptoDomain.ErrMalformedWrappedKey,
			cryptoDomain.EnvelopeVersionSegmentDEK,
			wrapped.Version,
		)
	}

	if active, ok := e.chain.Get(e.chain.ActiveMasterKeyID()); ok {
		if dek, err := e.openDek(wrapped, active.Key); err == nil {
			return dek, nil
		}
	}

	var dek []byte
	e.chain.Range(func(mk *cryptoDomain.MasterKey) bool {
		if mk.ID == e.chain.ActiveMasterKeyID() {
			return true
		}
		if opened, err := e.openDek(wrapped, mk.Key); err == nil {
			dek = opened
			return false
		}
		return true
	})
	if dek != nil {
		return dek, nil
	}

	return nil, cryptoDomain.ErrKeyUnwrapFailed
}

func (e *EnvelopeService) openDek(wrapped cryptoDomain.WrappedKey, masterKey []byte) ([]byte, error) {
	aead, err := NewAESGCM(masterKey)
	if err != nil {
		return nil, err
	}
	return aead.Decrypt(wrapped.Ciphertext, wrapped.Nonce, nil)
}

// WrapRootSecret envelope-encrypts a 32-byte root secret against the server's
// published public key (legacy version-1 scheme). An ephemeral P-256 key pair
// is generated per envelope; the KEK is derived from the ECDH shared secret
// with the ephemeral public point as salt, so the root secret never reaches
// the server in plaintext even though the client holds no long-term key.
func (e *EnvelopeService) WrapRootSecret(
	rootSecret []byte,
	serverPublicKey *ecdh.PublicKey,
) (cryptoDomain.WrappedKey, error) {
	if len(rootSecret) != cryptoDomain.RootSecretSize {
		return cryptoDomain.WrappedKey{}, cryptoDomain.ErrInvalidKeySize
	}

	ephemeral, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return cryptoDomain.WrappedKey{}, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}

	shared, err := ephemeral.ECDH(serverPublicKey)
	if err != nil {
		return cryptoDomain.WrappedKey{}, fmt.Errorf("ecdh agreement failed: %w", err)
	}
	defer cryptoDomain.Zero(shared)

	ephemeralPub := ephemeral.PublicKey().Bytes()

	kek, err := DeriveKey(shared, ephemeralPub, []byte(rootSecretKEKInfo), cryptoDomain.MasterKeySize)
	if err != nil {
		return cryptoDomain.WrappedKey{}, err
	}
	defer cryptoDomain.Zero(kek)

	aead, err := NewAESGCM(kek)
	if err != nil {
		return cryptoDomain.WrappedKey{}, err
	}

	ciphertext, nonce, err := aead.Encrypt(rootSecret, nil)
	if err != nil {
		return cryptoDomain.WrappedKey{}, fmt.Errorf("failed to wrap root secret: %w", err)
	}

	return cryptoDomain.WrappedKey{
		Version:            cryptoDomain.EnvelopeVersionRootSecret,
		Algorithm:          cryptoDomain.AlgorithmAESGCM256,
		EphemeralPublicKey: ephemeralPub,
		Nonce:              nonce,
		Ciphertext:         ciphertext,
	}, nil
}

// UnwrapRootSecret recovers a root secret from a legacy version-1 envelope
// using the server's ECDH private key. Fails with ErrKeyUnwrapFailed when no
// server key is configured or the envelope does not authenticate.
func (e *EnvelopeService) UnwrapRootSecret(wrapped cryptoDomain.WrappedKey) ([]byte, error) {
	if wrapped.Version != cryptoDomain.EnvelopeVersionRootSecret {
		return nil, fmt.Errorf(
			"%w: expected envelope version %d, got %d",
			cryptoDomain.ErrMalformedWrappedKey,
			cryptoDomain.EnvelopeVersionRootSecret,
			wrapped.Version,
		)
	}

	if e.serverKey == nil {
		return nil, fmt.Errorf("%w: no server ECDH key configured", cryptoDomain.ErrKeyUnwrapFailed)
	}

	ephemeralPub, err := ecdh.P256().NewPublicKey(wrapped.EphemeralPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ephemeral public key", cryptoDomain.ErrMalformedWrappedKey)
	}

	shared, err := e.serverKey.ECDH(ephemeralPub)
	if err != nil {
		return nil, fmt.Errorf("%w: ecdh agreement failed", cryptoDomain.ErrKeyUnwrapFailed)
	}
	defer cryptoDomain.Zero(shared)

	kek, err := DeriveKey(shared, wrapped.EphemeralPublicKey, []byte(rootSecretKEKInfo), cryptoDomain.MasterKeySize)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(kek)

	aead, err := NewAESGCM(kek)
	if err != nil {
		return nil, err
	}

	rootSecret, err := aead.Decrypt(wrapped.Ciphertext, wrapped.Nonce, nil)
	if err != nil {
		return nil, cryptoDomain.ErrKeyUnwrapFailed
	}
	return rootSecret, nil
}

// ServerPublicKey returns the server's ECDH public key, or nil when legacy
// envelope support is not configured.
func (e *EnvelopeService) ServerPublicKey() *ecdh.PublicKey {
	if e.serverKey == nil {
		return nil
	}
	return e.serverKey.PublicKey()
}

// ParseServerECDHKey parses a base64 P-256 private key from configuration.
func ParseServerECDHKey(encoded []byte) (*ecdh.PrivateKey, error) {
	key, err := ecdh.P256().NewPrivateKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid server ECDH private key: %w", err)
	}
	return key, nil
}
