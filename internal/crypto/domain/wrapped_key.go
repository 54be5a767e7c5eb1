// Package domain defines the cryptographic domain model for the segment
// encryption pipeline: the wrapped-key wire format, the master key chain, and
// the error taxonomy shared by the encrypt-at-ingest and decrypt-at-serve paths.
package domain

// WrappedKey is key material (a segment DEK or a legacy root secret) in its
// envelope-encrypted at-rest form. Only WrappedKey ever crosses a persistence
// boundary; plaintext key material never does.
//
// Wire format, version 2 (segment DEK under the master key):
//
//	{version u8}{algorithm u8}{nonce 12B}{ciphertext+tag}
//
// Wire format, version 1 (legacy root secret, ephemeral ECDH):
//
//	{version u8}{algorithm u8}{ephemeral P-256 point 65B}{nonce 12B}{ciphertext+tag}
type WrappedKey struct {
	Version   uint8
	Algorithm Algorithm

	// EphemeralPublicKey is the uncompressed P-256 point of the client's
	// ephemeral key pair. Present only on version-1 envelopes.
	EphemeralPublicKey []byte

	Nonce []byte

	// Ciphertext includes the 16-byte authentication tag.
	Ciphertext []byte
}

// Marshal serializes the wrapped key into its at-rest byte form.
func (w WrappedKey) Marshal() []byte {
	size := 2 + len(w.Nonce) + len(w.Ciphertext)
	if w.Version == EnvelopeVersionRootSecret {
		size += len(w.EphemeralPublicKey)
	}

	out := make([]byte, 0, size)
	out = append(out, w.Version, byte(w.Algorithm))
	if w.Version == EnvelopeVersionRootSecret {
		out = append(out, w.EphemeralPublicKey...)
	}
	out = append(out, w.Nonce...)
	out = append(out, w.Ciphertext...)
	return out
}

// UnmarshalWrappedKey parses an at-rest wrapped key blob. Returns
// ErrMalformedWrappedKey if the blob is truncated or carries an unknown
// version, and ErrUnsupportedAlgorithm for an unknown algorithm byte.
func UnmarshalWrappedKey(data []byte) (WrappedKey, error) {
	if len(data) < 2 {
		return WrappedKey{}, ErrMalformedWrappedKey
	}

	w := WrappedKey{
		Version:   data[0],
		Algorithm: Algorithm(data[1]),
	}

	switch w.Algorithm {
	case AlgorithmAESGCM128, AlgorithmAESGCM256:
	default:
		return WrappedKey{}, ErrUnsupportedAlgorithm
	}

	rest := data[2:]

	if w.Version == EnvelopeVersionRootSecret {
		if len(rest) < EphemeralPublicKeySize {
			return WrappedKey{}, ErrMalformedWrappedKey
		}
		w.EphemeralPublicKey = rest[:EphemeralPublicKeySize]
		rest = rest[EphemeralPublicKeySize:]
	} else if w.Version != EnvelopeVersionSegmentDEK {
		return WrappedKey{}, ErrMalformedWrappedKey
	}

	// Ciphertext must hold at least the authentication tag.
	if len(rest) < NonceSize+TagSize {
		return WrappedKey{}, ErrMalformedWrappedKey
	}

	w.Nonce = rest[:NonceSize]
	w.Ciphertext = rest[NonceSize:]
	return w, nil
}
