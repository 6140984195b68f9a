package authsig

import (
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"StrongRoom/internal/ledger"
)

// Signer issues withdrawal authorizations. It holds the secp256k1 key
// whose identity the administrator registers as the authorized signer.
type Signer struct {
	key *btcec.PrivateKey
}

// NewSigner generates a fresh signing key.
func NewSigner() (*Signer, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key:\n%w", err)
	}

	return &Signer{key: key}, nil
}

// LoadSigner reads a 32-byte secp256k1 private key from a file,
// generating and saving one if the file does not exist.
func LoadSigner(path string) (*Signer, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return generateAndSave(path)
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	if len(data) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(data), btcec.PrivKeyBytesLen)
	}

	key, _ := btcec.PrivKeyFromBytes(data)

	return &Signer{key: key}, nil
}

// generateAndSave creates a new key and writes it to the given path.
func generateAndSave(path string) (*Signer, error) {
	s, err := NewSigner()
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, s.key.Serialize(), 0600); err != nil {
		return nil, fmt.Errorf("save key to %s:\n%w", path, err)
	}

	return s, nil
}

// Identity returns the signer's ledger identity, derived from the
// compressed public key.
func (s *Signer) Identity() ledger.Identity {
	return ledger.IdentityFromKey(s.key.PubKey().SerializeCompressed())
}

// Authorize signs an authorization fingerprint, producing the compact
// signature presented to WithdrawWithSignature.
func (s *Signer) Authorize(fingerprint [32]byte) ([]byte, error) {
	sig, err := ecdsa.SignCompact(s.key, fingerprint[:], true)
	if err != nil {
		return nil, fmt.Errorf("sign fingerprint:\n%w", err)
	}

	return sig, nil
}
