// Package authsig implements withdrawal-authorization signing and signer
// recovery over secp256k1 compact signatures.
package authsig

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"StrongRoom/internal/ledger"
)

// CompactSignatureSize is the length of a compact signature:
// 1-byte recovery code + 32-byte R + 32-byte S.
const CompactSignatureSize = 65

// ErrMalformedSignature is returned for input of the wrong length, before
// any cryptographic work is attempted.
var ErrMalformedSignature = errors.New("malformed signature")

// Verifier recovers signer identities from compact signatures.
// The identity is blake3 of the recovered compressed public key.
type Verifier struct{}

// RecoverSigner implements ledger.SignerRecovery.
func (Verifier) RecoverSigner(digest [32]byte, sig []byte) (ledger.Identity, error) {
	if len(sig) != CompactSignatureSize {
		return ledger.Identity{}, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedSignature, len(sig), CompactSignatureSize)
	}

	pub, _, err := ecdsa.RecoverCompact(sig, digest[:])
	if err != nil {
		return ledger.Identity{}, fmt.Errorf("recover public key:\n%w", err)
	}

	return ledger.IdentityFromKey(pub.SerializeCompressed()), nil
}
