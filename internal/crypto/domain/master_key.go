package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// MasterKey is the server-held key at the root of the envelope hierarchy.
// Segment DEKs are wrapped under it; it never leaves process memory.
type MasterKey struct {
	ID  string
	Key []byte
}

// KMSKeeper decrypts master key material supplied in KMS-encrypted form.
// *secrets.Keeper from gocloud.dev implements it.
type KMSKeeper interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// KeeperOpener opens a KMSKeeper for a key URI.
type KeeperOpener interface {
	OpenKeeper(ctx context.Context, keyURI string) (KMSKeeper, error)
}

// MasterKeyChainConfig is the subset of application configuration consumed
// when loading the chain. Kept as an explicit struct so key configuration is
// passed down rather than read from ambient process state.
type MasterKeyChainConfig struct {
	// MasterKeys is a comma-separated list of "id:base64value" entries.
	MasterKeys string
	// ActiveMasterKeyID selects the key used to wrap new DEKs.
	ActiveMasterKeyID string
	// KMSKeyURI, when set, marks the base64 values as KMS-encrypted.
	KMSKeyURI string
}

// MasterKeyChain holds the master keys with one designated as active.
// Old keys stay in the chain so envelopes wrapped under them remain
// decryptable during rotation. Thread-safe via sync.Map.
type MasterKeyChain struct {
	activeID string
	keys     sync.Map
}

// ActiveMasterKeyID returns the ID of the master key used for new envelopes.
func (m *MasterKeyChain) ActiveMasterKeyID() string {
	return m.activeID
}

// Get retrieves a master key from the chain by its ID.
func (m *MasterKeyChain) Get(id string) (*MasterKey, bool) {
	if masterKey, ok := m.keys.Load(id); ok {
		return masterKey.(*MasterKey), ok
	}

	return nil, false
}

// Range calls fn for each master key in the chain until fn returns false.
// Iteration order is unspecified; the active key is not visited first.
func (m *MasterKeyChain) Range(fn func(*MasterKey) bool) {
	m.keys.Range(func(_, value any) bool {
		return fn(value.(*MasterKey))
	})
}

// Close zeroes all key material and resets the chain.
func (m *MasterKeyChain) Close() {
	m.keys.Range(func(key, value any) bool {
		if mk, ok := value.(*MasterKey); ok {
			Zero(mk.Key)
		}
		return true
	})
	m.activeID = ""
	m.keys.Clear()
}

// LoadMasterKeyChain parses and validates the configured master keys,
// decrypting each entry through the KMS keeper when a key URI is configured.
// Validation is fail-fast: any malformed entry, wrong key size, or missing
// active key aborts startup. Temporary plaintext buffers are zeroed.
func LoadMasterKeyChain(
	ctx context.Context,
	cfg MasterKeyChainConfig,
	opener KeeperOpener,
	logger *slog.Logger,
) (*MasterKeyChain, error) {
	if cfg.MasterKeys == "" {
		return nil, ErrMasterKeysNotSet
	}
	if cfg.ActiveMasterKeyID == "" {
		return nil, ErrActiveMasterKeyIDNotSet
	}

	var keeper KMSKeeper
	if cfg.KMSKeyURI != "" {
		var err error
		keeper, err = opener.OpenKeeper(ctx, cfg.KMSKeyURI)
		if err != nil {
			return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
		}
		defer func() {
			if closeErr := keeper.Close(); closeErr != nil {
				logger.Warn("failed to close KMS keeper", slog.Any("error", closeErr))
			}
		}()
	}

	mkc := &MasterKeyChain{activeID: cfg.ActiveMasterKeyID}

	for part := range strings.SplitSeq(cfg.MasterKeys, ",") {
		p := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(p) != 2 {
			mkc.Close()
			return nil, fmt.Errorf("%w: %q", ErrInvalidMasterKeysFormat, part)
		}
		id := p[0]

		key, err := base64.StdEncoding.DecodeString(p[1])
		if err != nil {
			mkc.Close()
			return nil, fmt.Errorf("%w for %s: %v", ErrInvalidMasterKeyBase64, id, err)
		}

		if keeper != nil {
			decrypted, err := keeper.Decrypt(ctx, key)
			if err != nil {
				mkc.Close()
				return nil, fmt.Errorf("failed to decrypt master key %s via KMS: %w", id, err)
			}
			key = decrypted
		}

		if len(key) != MasterKeySize {
			Zero(key)
			mkc.Close()
			return nil, fmt.Errorf(
				"%w: master key %s must be %d bytes, got %d",
				ErrInvalidKeySize,
				id,
				MasterKeySize,
				len(key),
			)
		}

		stored := make([]byte, MasterKeySize)
		copy(stored, key)
		mkc.keys.Store(id, &MasterKey{ID: id, Key: stored})
		Zero(key)
	}

	if _, ok := mkc.Get(cfg.ActiveMasterKeyID); !ok {
		mkc.Close()
		return nil, fmt.Errorf("%w: ACTIVE_MASTER_KEY_ID=%s", ErrActiveMasterKeyNotFound, cfg.ActiveMasterKeyID)
	}

	logger.Info("master key chain loaded", slog.String("active_master_key_id", cfg.ActiveMasterKeyID))
	return mkc, nil
}
