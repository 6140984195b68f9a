package ledger

import (
	"fmt"

	"StrongRoom/internal/storage"
)

// Storage layout for the deposit table.
var (
	prefixDeposit = []byte("dep:")          // prefixDeposit + u64 id → entry record
	keyDepositSeq = []byte("m:deposit-seq") // keyDepositSeq → highest allocated id
)

// depositStore is the append-only-by-id deposit table, backed by Pebble.
// Erased entries are rewritten as sentinel records, never deleted, so an
// allocated id stays distinguishable from one that never existed.
type depositStore struct {
	db *storage.Store
}

// newDepositStore creates a deposit table over the given storage.
func newDepositStore(db *storage.Store) *depositStore {
	return &depositStore{db: db}
}

// allocate reserves the next deposit id. Pre-increment: the first id is 1
// and 0 is never allocated. The counter write is synced so an allocated id
// is never reused after a crash.
func (d *depositStore) allocate() (uint64, error) {
	data, err := d.db.Get(keyDepositSeq)
	if err != nil {
		return 0, fmt.Errorf("read deposit counter:\n%w", err)
	}

	next := decodeUint64(data) + 1

	if err := d.db.SetSync(keyDepositSeq, encodeUint64(next)); err != nil {
		return 0, fmt.Errorf("write deposit counter:\n%w", err)
	}

	return next, nil
}

// highest returns the highest deposit id ever allocated.
func (d *depositStore) highest() (uint64, error) {
	data, err := d.db.Get(keyDepositSeq)
	if err != nil {
		return 0, fmt.Errorf("read deposit counter:\n%w", err)
	}

	return decodeUint64(data), nil
}

// put records an entry. The write is synced: the table row must be durable
// before the asset mover is invoked.
func (d *depositStore) put(e DepositEntry) error {
	return d.db.SetSync(depositKey(prefixDeposit, e.ID), encodeEntry(e))
}

// get retrieves the entry for an id. live is false for sentinel entries
// and for ids that were never allocated.
func (d *depositStore) get(id uint64) (DepositEntry, bool, error) {
	data, err := d.db.Get(depositKey(prefixDeposit, id))
	if err != nil {
		return DepositEntry{}, false, fmt.Errorf("read deposit %d:\n%w", id, err)
	}

	if data == nil {
		return DepositEntry{}, false, nil
	}

	e, err := decodeEntry(id, data)
	if err != nil {
		return DepositEntry{}, false, fmt.Errorf("decode deposit %d:\n%w", id, err)
	}

	return e, e.Live(), nil
}

// erase resets an entry to the sentinel state.
func (d *depositStore) erase(id uint64) error {
	sentinel := DepositEntry{ID: id}
	return d.db.SetSync(depositKey(prefixDeposit, id), encodeEntry(sentinel))
}

// eraseMatching erases every live entry holding the given collection+item.
// Returns the ids erased. Used by the emergency paths so the table never
// references an asset no longer custodied.
func (d *depositStore) eraseMatching(collection CollectionRef, itemID uint64) ([]uint64, error) {
	var matched []uint64

	err := d.db.IteratePrefix(prefixDeposit, func(key, value []byte) error {
		id := decodeUint64(key[len(prefixDeposit):])

		e, err := decodeEntry(id, value)
		if err != nil {
			return fmt.Errorf("decode deposit %d:\n%w", id, err)
		}

		if e.Live() && e.Asset.Collection == collection && e.Asset.ItemID == itemID {
			matched = append(matched, id)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, id := range matched {
		if err := d.erase(id); err != nil {
			return nil, fmt.Errorf("erase deposit %d:\n%w", id, err)
		}
	}

	return matched, nil
}
