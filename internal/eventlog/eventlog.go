// Package eventlog persists committed ledger events in sequence order.
package eventlog

import (
	"encoding/binary"
	"fmt"
	"sync"

	"StrongRoom/internal/ledger"
	"StrongRoom/internal/logger"
	"StrongRoom/internal/storage"
)

// Storage layout for the event log.
var (
	prefixEvent = []byte("evt:")        // prefixEvent + u64 seq → encoded record
	keyEventSeq = []byte("m:event-seq") // keyEventSeq → last assigned sequence
)

// recordSize is the fixed size of an encoded event record:
// u8 type + [32] actor + u64 deposit id + [32] collection + u64 item.
const recordSize = 1 + 32 + 8 + 32 + 8

// Record is a stored event with its assigned sequence number.
type Record struct {
	Seq   uint64       // Seq is the append order, starting at 1
	Event ledger.Event // Event is the ledger side effect
}

// Log is a pebble-backed append-only event log implementing
// ledger.EventSink. Sequence numbers start at 1 and never repeat.
type Log struct {
	mu  sync.Mutex
	db  *storage.Store
	seq uint64
}

// Open loads the log over the given storage.
func Open(db *storage.Store) (*Log, error) {
	data, err := db.Get(keyEventSeq)
	if err != nil {
		return nil, fmt.Errorf("read event counter:\n%w", err)
	}

	var seq uint64
	if len(data) == 8 {
		seq = binary.BigEndian.Uint64(data)
	}

	return &Log{db: db, seq: seq}, nil
}

// Emit implements ledger.EventSink. Append failures are logged, not
// surfaced: the ledger operation already committed.
func (l *Log) Emit(ev ledger.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++

	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], l.seq)

	key := append(append([]byte{}, prefixEvent...), seqBuf[:]...)

	if err := l.db.Set(key, EncodeEvent(ev)); err != nil {
		logger.Error("append event failed", "seq", l.seq, "type", ev.Type, "error", err)
		return
	}

	if err := l.db.Set(keyEventSeq, seqBuf[:]); err != nil {
		logger.Error("write event counter failed", "seq", l.seq, "error", err)
	}
}

// LastSeq returns the sequence of the most recent event, or 0.
func (l *Log) LastSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.seq
}

// List returns up to limit records with sequence >= fromSeq, in order.
func (l *Log) List(fromSeq uint64, limit int) ([]Record, error) {
	var records []Record

	err := l.db.IteratePrefix(prefixEvent, func(key, value []byte) error {
		if len(key) != len(prefixEvent)+8 {
			return nil
		}

		seq := binary.BigEndian.Uint64(key[len(prefixEvent):])
		if seq < fromSeq {
			return nil
		}

		if limit > 0 && len(records) >= limit {
			return errListFull
		}

		ev, err := DecodeEvent(value)
		if err != nil {
			return fmt.Errorf("decode event %d:\n%w", seq, err)
		}

		records = append(records, Record{Seq: seq, Event: ev})

		return nil
	})
	if err != nil && err != errListFull {
		return nil, err
	}

	return records, nil
}

// errListFull stops iteration once the requested limit is reached.
var errListFull = fmt.Errorf("list full")

// EncodeEvent serializes an event as a fixed-shape record.
func EncodeEvent(ev ledger.Event) []byte {
	buf := make([]byte, recordSize)

	buf[0] = byte(ev.Type)
	copy(buf[1:33], ev.Actor[:])
	binary.LittleEndian.PutUint64(buf[33:41], ev.DepositID)
	copy(buf[41:73], ev.Collection[:])
	binary.LittleEndian.PutUint64(buf[73:81], ev.ItemID)

	return buf
}

// DecodeEvent deserializes an event record.
func DecodeEvent(data []byte) (ledger.Event, error) {
	if len(data) != recordSize {
		return ledger.Event{}, fmt.Errorf("invalid record size: got %d, want %d", len(data), recordSize)
	}

	ev := ledger.Event{Type: ledger.EventType(data[0])}
	copy(ev.Actor[:], data[1:33])
	ev.DepositID = binary.LittleEndian.Uint64(data[33:41])
	copy(ev.Collection[:], data[41:73])
	ev.ItemID = binary.LittleEndian.Uint64(data[73:81])

	return ev, nil
}
