package ledger

import (
	"fmt"

	"StrongRoom/internal/storage"
)

// Storage layout for the access registry.
var (
	prefixDepositor = []byte("acl:")     // prefixDepositor + identity → membership marker
	keySigner       = []byte("m:signer") // keySigner → authorized signer identity
)

// accessStore tracks which identities may create deposits and which single
// identity's signatures authorize withdrawals.
type accessStore struct {
	db *storage.Store
}

// newAccessStore creates an access registry over the given storage.
func newAccessStore(db *storage.Store) *accessStore {
	return &accessStore{db: db}
}

// depositorKey builds the membership key for an identity.
func depositorKey(id Identity) []byte {
	key := make([]byte, len(prefixDepositor)+32)
	copy(key, prefixDepositor)
	copy(key[len(prefixDepositor):], id[:])
	return key
}

// allow grants deposit rights. Idempotent.
func (a *accessStore) allow(id Identity) error {
	return a.db.SetSync(depositorKey(id), []byte{1})
}

// revoke removes deposit rights. Idempotent.
func (a *accessStore) revoke(id Identity) error {
	return a.db.Delete(depositorKey(id))
}

// isAllowed reports whether the identity may create deposits.
func (a *accessStore) isAllowed(id Identity) (bool, error) {
	ok, err := a.db.Has(depositorKey(id))
	if err != nil {
		return false, fmt.Errorf("read depositor %s:\n%w", id.Short(), err)
	}

	return ok, nil
}

// setSigner overwrites the single authorized signer slot. No history is
// kept: authorizations already consumed stay consumed, unconsumed ones
// signed by the old signer stop verifying.
func (a *accessStore) setSigner(id Identity) error {
	return a.db.SetSync(keySigner, id[:])
}

// signer returns the current authorized signer, or the zero identity if
// none was ever set.
func (a *accessStore) signer() (Identity, error) {
	data, err := a.db.Get(keySigner)
	if err != nil {
		return Identity{}, fmt.Errorf("read signer:\n%w", err)
	}

	var id Identity
	if len(data) == 32 {
		copy(id[:], data)
	}

	return id, nil
}
