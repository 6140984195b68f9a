package ledger

import (
	"fmt"

	"StrongRoom/internal/storage"
)

// prefixUsedAuth marks consumed authorization fingerprints.
var prefixUsedAuth = []byte("auth:")

// authStore is the used-authorization set. It grows monotonically and
// never shrinks: a fingerprint recorded here can never authorize again,
// even if re-signed identically.
type authStore struct {
	db *storage.Store
}

// newAuthStore creates a used-authorization set over the given storage.
func newAuthStore(db *storage.Store) *authStore {
	return &authStore{db: db}
}

// usedAuthKey builds the storage key for a fingerprint.
func usedAuthKey(fp [32]byte) []byte {
	key := make([]byte, len(prefixUsedAuth)+32)
	copy(key, prefixUsedAuth)
	copy(key[len(prefixUsedAuth):], fp[:])
	return key
}

// contains reports whether the fingerprint was already consumed.
func (a *authStore) contains(fp [32]byte) (bool, error) {
	ok, err := a.db.Has(usedAuthKey(fp))
	if err != nil {
		return false, fmt.Errorf("read used authorization:\n%w", err)
	}

	return ok, nil
}

// mark records the fingerprint as consumed. The write is synced: the
// fingerprint must be durable before the signature is even verified.
func (a *authStore) mark(fp [32]byte) error {
	return a.db.SetSync(usedAuthKey(fp), []byte{1})
}
