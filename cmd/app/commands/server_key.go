package commands

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// RunCreateServerKey generates a P-256 key pair for unwrapping legacy
// root-secret envelopes. The private key goes into SERVER_ECDH_PRIVATE_KEY;
// the public key is what legacy publishers wrapped root secrets against.
func RunCreateServerKey(w io.Writer) error {
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate server key: %w", err)
	}

	fmt.Fprintln(w, "# Server ECDH Key Configuration")
	fmt.Fprintln(w, "# Only needed while legacy root-secret assets remain unmigrated")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "SERVER_ECDH_PRIVATE_KEY=\"%s\"\n", base64.StdEncoding.EncodeToString(key.Bytes()))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "# Public key: %s\n", base64.StdEncoding.EncodeToString(key.PublicKey().Bytes()))

	return nil
}
