package ledger

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"StrongRoom/internal/storage"
)

// snapshotVersion is the current snapshot format version.
const snapshotVersion = 1

// Export serializes the full vault state as a zstd-compressed, checksummed
// snapshot. Pebble iterates in key order, so the byte stream and its
// checksum are deterministic for a given state.
//
// Format (before compression):
// u32 version | u64 record count | records (u32 klen, key, u32 vlen, value) | 32-byte blake3 checksum
func (l *Ledger) Export() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var buf bytes.Buffer

	var header [12]byte
	binary.BigEndian.PutUint32(header[:4], snapshotVersion)
	buf.Write(header[:4])

	// Record count is patched in after iteration.
	countAt := buf.Len()
	buf.Write(header[4:12])

	count := uint64(0)
	lenBuf := make([]byte, 4)

	err := l.db.Iterate(func(key, value []byte) error {
		binary.BigEndian.PutUint32(lenBuf, uint32(len(key)))
		buf.Write(lenBuf)
		buf.Write(key)

		binary.BigEndian.PutUint32(lenBuf, uint32(len(value)))
		buf.Write(lenBuf)
		buf.Write(value)

		count++

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect records:\n%w", err)
	}

	data := buf.Bytes()
	binary.BigEndian.PutUint64(data[countAt:countAt+8], count)

	checksum := blake3.Sum256(data)
	data = append(data, checksum[:]...)

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

// Restore loads a snapshot produced by Export into the given storage.
// It verifies the checksum before writing anything; all records are
// written atomically. Restore is called before the ledger is opened.
func Restore(db *storage.Store, snapshot []byte) error {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return fmt.Errorf("create decoder:\n%w", err)
	}
	defer decoder.Close()

	data, err := decoder.DecodeAll(snapshot, nil)
	if err != nil {
		return fmt.Errorf("decompress:\n%w", err)
	}

	if len(data) < 12+32 {
		return fmt.Errorf("snapshot too short: %d bytes", len(data))
	}

	payload := data[:len(data)-32]
	stored := data[len(data)-32:]

	computed := blake3.Sum256(payload)
	if !bytes.Equal(computed[:], stored) {
		return fmt.Errorf("checksum mismatch")
	}

	version := binary.BigEndian.Uint32(payload[:4])
	if version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %d", version)
	}

	count := binary.BigEndian.Uint64(payload[4:12])
	records := payload[12:]

	pairs := make([]storage.KeyValue, 0, count)

	for i := uint64(0); i < count; i++ {
		key, rest, err := readRecord(records)
		if err != nil {
			return fmt.Errorf("record %d key:\n%w", i, err)
		}

		value, rest, err := readRecord(rest)
		if err != nil {
			return fmt.Errorf("record %d value:\n%w", i, err)
		}

		records = rest
		pairs = append(pairs, storage.KeyValue{Key: key, Value: value})
	}

	if len(records) != 0 {
		return fmt.Errorf("trailing snapshot data: %d bytes", len(records))
	}

	if err := db.SetBatch(pairs); err != nil {
		return fmt.Errorf("write records:\n%w", err)
	}

	return nil
}

// readRecord reads one length-prefixed field, returning it and the rest.
func readRecord(data []byte) ([]byte, []byte, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("truncated length prefix")
	}

	length := binary.BigEndian.Uint32(data[:4])
	data = data[4:]

	if uint32(len(data)) < length {
		return nil, nil, fmt.Errorf("truncated field: want %d, have %d", length, len(data))
	}

	field := make([]byte, length)
	copy(field, data[:length])

	return field, data[length:], nil
}
