package ledger

import (
	"encoding/binary"
	"fmt"
)

// Deposit entries are stored as fixed-shape little-endian records:
// [32] collection + u64 item + u8 kind + u64 quantity + [32] depositor.
const entrySize = 32 + 8 + 1 + 8 + 32

// encodeEntry serializes a deposit entry (without its id, which is the key).
func encodeEntry(e DepositEntry) []byte {
	buf := make([]byte, entrySize)

	copy(buf[0:32], e.Asset.Collection[:])
	binary.LittleEndian.PutUint64(buf[32:40], e.Asset.ItemID)
	buf[40] = byte(e.Asset.Kind)
	binary.LittleEndian.PutUint64(buf[41:49], e.Asset.Quantity)
	copy(buf[49:81], e.Depositor[:])

	return buf
}

// decodeEntry deserializes a deposit entry stored under the given id.
func decodeEntry(id uint64, data []byte) (DepositEntry, error) {
	if len(data) != entrySize {
		return DepositEntry{}, fmt.Errorf("invalid entry size: got %d, want %d", len(data), entrySize)
	}

	e := DepositEntry{ID: id}
	copy(e.Asset.Collection[:], data[0:32])
	e.Asset.ItemID = binary.LittleEndian.Uint64(data[32:40])
	e.Asset.Kind = Kind(data[40])
	e.Asset.Quantity = binary.LittleEndian.Uint64(data[41:49])
	copy(e.Depositor[:], data[49:81])

	return e, nil
}

// encodeUint64 encodes a counter value.
func encodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

// decodeUint64 decodes a counter value. Missing or short data reads as zero.
func decodeUint64(data []byte) uint64 {
	if len(data) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(data)
}

// depositKey builds the storage key for a deposit id.
// Big-endian so prefix iteration visits ids in ascending order.
func depositKey(prefix []byte, id uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], id)
	return key
}
