package app

import (
	"context"
	"crypto/ecdh"
	"encoding/base64"
	"fmt"

	cryptoDomain "github.com/allisson/streamvault/internal/crypto/domain"
	cryptoService "github.com/allisson/streamvault/internal/crypto/service"
)

// MasterKeyChain returns the master key chain loaded from configuration.
// When a KMS key URI is configured, the key material is decrypted through
// the KMS keeper at load time.
func (c *Container) MasterKeyChain() (*cryptoDomain.MasterKeyChain, error) {
	var err error
	c.masterKeyChainInit.Do(func() {
		c.masterKeyChain, err = c.initMasterKeyChain()
		if err != nil {
			c.initErrors["masterKeyChain"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["masterKeyChain"]; exists {
		return nil, storedErr
	}
	return c.masterKeyChain, nil
}

// KMSService returns the KMS service.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// EnvelopeService returns the envelope service used to wrap and unwrap
// segment key material.
func (c *Container) EnvelopeService() (cryptoService.Envelope, error) {
	var err error
	c.envelopeServiceInit.Do(func() {
		c.envelopeService, err = c.initEnvelopeService()
		if err != nil {
			c.initErrors["envelopeService"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["envelopeService"]; exists {
		return nil, storedErr
	}
	return c.envelopeService, nil
}

// initMasterKeyChain loads the master key chain from configuration.
func (c *Container) initMasterKeyChain() (*cryptoDomain.MasterKeyChain, error) {
	chainConfig := cryptoDomain.MasterKeyChainConfig{
		MasterKeys:        c.config.MasterKeys,
		ActiveMasterKeyID: c.config.ActiveMasterKeyID,
		KMSKeyURI:         c.config.KMSKeyURI,
	}

	var opener cryptoDomain.KeeperOpener
	if c.config.KMSKeyURI != "" {
		opener = c.KMSService()
	}

	chain, err := cryptoDomain.LoadMasterKeyChain(context.Background(), chainConfig, opener, c.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to load master key chain: %w", err)
	}
	return chain, nil
}

// initEnvelopeService creates the envelope service. The server ECDH key is
// optional; without it only version-2 envelopes can be unwrapped.
func (c *Container) initEnvelopeService() (cryptoService.Envelope, error) {
	chain, err := c.MasterKeyChain()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key chain for envelope service: %w", err)
	}

	serverKey, err := c.serverECDHKey()
	if err != nil {
		return nil, err
	}

	return cryptoService.NewEnvelopeService(chain, serverKey), nil
}

// serverECDHKey parses the optional legacy-envelope private key from configuration.
func (c *Container) serverECDHKey() (*ecdh.PrivateKey, error) {
	if c.config.ServerECDHPrivateKey == "" {
		return nil, nil
	}

	raw, err := base64.StdEncoding.DecodeString(c.config.ServerECDHPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 server ECDH private key: %w", err)
	}
	defer cryptoDomain.Zero(raw)

	key, err := cryptoService.ParseServerECDHKey(raw)
	if err != nil {
		return nil, err
	}
	return key, nil
}
