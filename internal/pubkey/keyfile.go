package pubkey

import (
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btcutil/base58"
)

// SaveKeypair writes the base58 form of the 64 byte private key to path.
func SaveKeypair(path string, kp *Keypair) error {
	return os.WriteFile(path, []byte(base58.Encode(kp.Private)+"\n"), 0o600)
}

// LoadKeypair reads a keypair written by SaveKeypair.
func LoadKeypair(path string) (*Keypair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keypair: %w", err)
	}
	kp, err := KeypairFromBytes(base58.Decode(strings.TrimSpace(string(raw))))
	if err != nil {
		return nil, fmt.Errorf("keypair %s: %w", path, err)
	}
	return kp, nil
}
