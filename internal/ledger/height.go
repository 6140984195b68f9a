package ledger

import (
	"fmt"
	"sync/atomic"

	"StrongRoom/internal/storage"
)

// keyHeight persists the operation sequence height.
var keyHeight = []byte("m:height")

// Sequence is a storage-backed monotonic height counter.
// The service advances it once per accepted operation; authorization
// expiries are compared against it.
type Sequence struct {
	db     *storage.Store
	height atomic.Uint64
}

// NewSequence loads the sequence from storage, or starts at zero.
func NewSequence(db *storage.Store) (*Sequence, error) {
	data, err := db.Get(keyHeight)
	if err != nil {
		return nil, fmt.Errorf("read height:\n%w", err)
	}

	s := &Sequence{db: db}
	s.height.Store(decodeUint64(data))

	return s, nil
}

// Height returns the current height.
func (s *Sequence) Height() uint64 {
	return s.height.Load()
}

// Advance increments the height and persists it.
func (s *Sequence) Advance() (uint64, error) {
	next := s.height.Add(1)

	if err := s.db.Set(keyHeight, encodeUint64(next)); err != nil {
		return 0, fmt.Errorf("write height:\n%w", err)
	}

	return next, nil
}
