package ledger

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// Fingerprint computes the authorization digest a signer commits to.
// It binds the withdrawer (the authorization is non-transferable), the
// deposit id, the expiry height, and the vault instance id (no
// cross-deployment replay). The signer must issue a fresh signature per
// intended recipient.
func Fingerprint(withdrawer Identity, depositID, expiryHeight uint64, vaultID [16]byte) [32]byte {
	hasher := blake3.New()

	hasher.Write(withdrawer[:])

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], depositID)
	hasher.Write(buf[:])

	binary.BigEndian.PutUint64(buf[:], expiryHeight)
	hasher.Write(buf[:])

	hasher.Write(vaultID[:])

	var fp [32]byte
	hasher.Sum(fp[:0])

	return fp
}
