package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"time"

	cryptoDomain "github.com/allisson/streamvault/internal/crypto/domain"
)

// RunCreateMasterKey generates a 32-byte master key for wrapping segment DEKs.
// If keyID is empty, generates a default ID in format "master-key-YYYY-MM-DD".
// Key material is zeroed from memory after encoding.
//
// When kmsProvider and kmsKeyURI are both set, the key is encrypted with KMS
// before output and the KMS configuration is printed alongside. When both are
// empty the key is printed as plain base64, which is only suitable for local
// development.
//
// Output format:
//   - MASTER_KEYS="<keyID>:<base64-encoded-key-or-kms-ciphertext>"
//   - ACTIVE_MASTER_KEY_ID="<keyID>"
func RunCreateMasterKey(
	ctx context.Context,
	kmsService cryptoDomain.KeeperOpener,
	logger *slog.Logger,
	w io.Writer,
	keyID, kmsProvider, kmsKeyURI string,
) error {
	if (kmsProvider == "") != (kmsKeyURI == "") {
		return fmt.Errorf("--kms-provider and --kms-key-uri are required together")
	}

	if keyID == "" {
		keyID = fmt.Sprintf("master-key-%s", time.Now().Format("2006-01-02"))
	}

	masterKey := make([]byte, cryptoDomain.MasterKeySize)
	if _, err := rand.Read(masterKey); err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}
	defer cryptoDomain.Zero(masterKey)

	encodedKey := base64.StdEncoding.EncodeToString(masterKey)

	if kmsKeyURI != "" {
		keeper, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
		if err != nil {
			return fmt.Errorf("failed to open KMS keeper: %w", err)
		}
		defer func() {
			if closeErr := keeper.Close(); closeErr != nil {
				logger.Warn("failed to close KMS keeper", slog.Any("error", closeErr))
			}
		}()

		encrypter, ok := keeper.(interface {
			Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
		})
		if !ok {
			return fmt.Errorf("KMS keeper does not support encryption")
		}

		ciphertext, err := encrypter.Encrypt(ctx, masterKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt master key with KMS: %w", err)
		}
		encodedKey = base64.StdEncoding.EncodeToString(ciphertext)

		fmt.Fprintln(w, "# Master Key Configuration (KMS mode)")
		fmt.Fprintln(w, "# Copy these environment variables to your .env file or secrets manager")
		fmt.Fprintln(w)
		fmt.Fprintf(w, "KMS_PROVIDER=\"%s\"\n", kmsProvider)
		fmt.Fprintf(w, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	} else {
		fmt.Fprintln(w, "# Master Key Configuration (plaintext mode, local development only)")
		fmt.Fprintln(w, "# For production, rerun with --kms-provider and --kms-key-uri")
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "MASTER_KEYS=\"%s:%s\"\n", keyID, encodedKey)
	fmt.Fprintf(w, "ACTIVE_MASTER_KEY_ID=\"%s\"\n", keyID)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# For key rotation, append the new key and switch the active ID:")
	fmt.Fprintf(w, "# MASTER_KEYS=\"%s:%s,new-key:<encoded-key>\"\n", keyID, encodedKey)
	fmt.Fprintln(w, "# ACTIVE_MASTER_KEY_ID=\"new-key\"")

	return nil
}
