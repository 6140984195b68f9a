package client

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"StrongRoom/internal/api"
	"StrongRoom/internal/ledger"
)

// Wallet holds the Ed25519 keypair a caller signs request envelopes with.
type Wallet struct {
	public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// NewWallet generates a fresh wallet.
func NewWallet() (*Wallet, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key:\n%w", err)
	}

	return &Wallet{public: public, private: private}, nil
}

// LoadWallet loads a wallet from disk, generating and saving a new one
// if the file does not exist.
func LoadWallet(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		if len(data) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("invalid key file %s: want %d bytes, got %d", path, ed25519.PrivateKeySize, len(data))
		}

		private := ed25519.PrivateKey(data)

		return &Wallet{
			public:  private.Public().(ed25519.PublicKey),
			private: private,
		}, nil
	}

	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read key file:\n%w", err)
	}

	wallet, err := NewWallet()
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, wallet.private, 0600); err != nil {
		return nil, fmt.Errorf("failed to save key file:\n%w", err)
	}

	return wallet, nil
}

// Identity returns the wallet's ledger identity.
func (w *Wallet) Identity() ledger.Identity {
	return ledger.IdentityFromKey(w.public)
}

// envelope mirrors the server's signed request wrapper.
type envelope struct {
	Body      json.RawMessage `json:"body"`
	Sender    string          `json:"sender"`
	Signature string          `json:"signature"`
}

// seal marshals the operation body and wraps it in a signed envelope
// for the given request path.
func (w *Wallet) seal(path string, body any) (envelope, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return envelope{}, fmt.Errorf("marshal body:\n%w", err)
	}

	digest := api.RequestDigest(path, raw)
	sig := ed25519.Sign(w.private, digest[:])

	return envelope{
		Body:      raw,
		Sender:    hex.EncodeToString(w.public),
		Signature: hex.EncodeToString(sig),
	}, nil
}
