package ledger

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Identity is a 32-byte actor identifier.
// Identities are derived as blake3 of the actor's public key bytes, so
// callers authenticated with different key schemes share one address space.
type Identity [32]byte

// IdentityFromKey derives an identity from raw public key bytes.
func IdentityFromKey(pub []byte) Identity {
	return Identity(blake3.Sum256(pub))
}

// IsZero reports whether the identity is the null identity.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// Short returns the first 8 bytes hex-encoded, for logging.
func (id Identity) Short() string {
	return hex.EncodeToString(id[:8])
}
