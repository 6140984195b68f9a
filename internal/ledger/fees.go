package ledger

import (
	"fmt"

	"github.com/holiman/uint256"

	"StrongRoom/internal/storage"
)

// Storage layout for the fee schedule and the accumulated fee balance.
var (
	prefixFee     = []byte("fee:")          // prefixFee + u64 id → 32-byte amount
	keyFeeBalance = []byte("m:fee-balance") // keyFeeBalance → 32-byte balance
)

// feeStore holds the per-deposit withdrawal price and the fee-currency
// balance collected so far. Amounts are 256-bit: the fee currency's value
// range exceeds uint64.
type feeStore struct {
	db *storage.Store
}

// newFeeStore creates a fee schedule over the given storage.
func newFeeStore(db *storage.Store) *feeStore {
	return &feeStore{db: db}
}

// set records the withdrawal fee for a deposit id.
// Fee entries are keyed by id and persist after the entry is withdrawn.
func (f *feeStore) set(id uint64, amount *uint256.Int) error {
	value := amount.Bytes32()
	return f.db.SetSync(depositKey(prefixFee, id), value[:])
}

// get returns the fee owed for a deposit id. Ids without a fee entry owe zero.
func (f *feeStore) get(id uint64) (*uint256.Int, error) {
	data, err := f.db.Get(depositKey(prefixFee, id))
	if err != nil {
		return nil, fmt.Errorf("read fee %d:\n%w", id, err)
	}

	amount := new(uint256.Int)
	if len(data) == 32 {
		amount.SetBytes32(data)
	}

	return amount, nil
}

// balance returns the accumulated fee-currency balance.
func (f *feeStore) balance() (*uint256.Int, error) {
	data, err := f.db.Get(keyFeeBalance)
	if err != nil {
		return nil, fmt.Errorf("read fee balance:\n%w", err)
	}

	b := new(uint256.Int)
	if len(data) == 32 {
		b.SetBytes32(data)
	}

	return b, nil
}

// credit adds a collected payment to the balance.
// Saturates at the maximum rather than wrapping.
func (f *feeStore) credit(amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}

	b, err := f.balance()
	if err != nil {
		return err
	}

	sum := new(uint256.Int)
	if _, overflow := sum.AddOverflow(b, amount); overflow {
		sum.SetAllOne()
	}

	value := sum.Bytes32()

	return f.db.SetSync(keyFeeBalance, value[:])
}

// clear resets the balance after a sweep.
func (f *feeStore) clear() error {
	zero := new(uint256.Int).Bytes32()
	return f.db.SetSync(keyFeeBalance, zero[:])
}
