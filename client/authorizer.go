package client

import (
	"encoding/hex"
	"fmt"

	"StrongRoom/internal/authsig"
	"StrongRoom/internal/ledger"
)

// Authorizer issues withdrawal authorizations. It wraps the vault's
// secp256k1 signer key, whose identity the administrator registers via
// SetSigner; normally it runs offline, away from the node.
type Authorizer struct {
	signer *authsig.Signer
}

// NewAuthorizer generates an authorizer with a fresh signing key.
func NewAuthorizer() (*Authorizer, error) {
	signer, err := authsig.NewSigner()
	if err != nil {
		return nil, err
	}

	return &Authorizer{signer: signer}, nil
}

// LoadAuthorizer loads the signing key from disk, generating and saving
// a new one if the file does not exist.
func LoadAuthorizer(path string) (*Authorizer, error) {
	signer, err := authsig.LoadSigner(path)
	if err != nil {
		return nil, err
	}

	return &Authorizer{signer: signer}, nil
}

// Identity returns the signer identity to register with the vault.
func (a *Authorizer) Identity() ledger.Identity {
	return a.signer.Identity()
}

// Authorize signs a withdrawal authorization for the given terms. The
// vault id comes from Status; the returned signature goes into Withdraw,
// called by the withdrawer the authorization is bound to.
func (a *Authorizer) Authorize(withdrawer ledger.Identity, depositID, expiryHeight uint64, vaultIDHex string) ([]byte, error) {
	raw, err := hex.DecodeString(vaultIDHex)
	if err != nil || len(raw) != 16 {
		return nil, fmt.Errorf("invalid vault id: want 16 hex bytes")
	}

	var vaultID [16]byte
	copy(vaultID[:], raw)

	fingerprint := ledger.Fingerprint(withdrawer, depositID, expiryHeight, vaultID)

	return a.signer.Authorize(fingerprint)
}
