package eventlog

import (
	"os"
	"path/filepath"
	"testing"

	"StrongRoom/internal/ledger"
	"StrongRoom/internal/storage"
)

// newTestLog creates a log over temporary storage.
func newTestLog(t *testing.T) (*Log, *storage.Store, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", "eventlog-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	db, err := storage.Open(filepath.Join(dir, "db"))
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("failed to open storage: %v", err)
	}

	log, err := Open(db)
	if err != nil {
		db.Close()
		os.RemoveAll(dir)
		t.Fatalf("failed to open log: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(dir)
	}

	return log, db, cleanup
}

func testEvent(depositID uint64) ledger.Event {
	return ledger.Event{
		Type:       ledger.EventDeposit,
		Actor:      ledger.Identity{0x02},
		DepositID:  depositID,
		Collection: ledger.CollectionRef{0xaa},
		ItemID:     7,
	}
}

func TestEmitAssignsSequences(t *testing.T) {
	log, _, cleanup := newTestLog(t)
	defer cleanup()

	if log.LastSeq() != 0 {
		t.Errorf("fresh LastSeq = %d, want 0", log.LastSeq())
	}

	log.Emit(testEvent(1))
	log.Emit(testEvent(2))
	log.Emit(testEvent(3))

	if log.LastSeq() != 3 {
		t.Errorf("LastSeq = %d, want 3", log.LastSeq())
	}

	records, err := log.List(1, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("List returned %d records, want 3", len(records))
	}

	for i, rec := range records {
		if rec.Seq != uint64(i+1) {
			t.Errorf("record %d has seq %d, want %d", i, rec.Seq, i+1)
		}

		if rec.Event.DepositID != uint64(i+1) {
			t.Errorf("record %d has deposit id %d, want %d", i, rec.Event.DepositID, i+1)
		}
	}
}

func TestListFromAndLimit(t *testing.T) {
	log, _, cleanup := newTestLog(t)
	defer cleanup()

	for i := uint64(1); i <= 10; i++ {
		log.Emit(testEvent(i))
	}

	records, err := log.List(4, 3)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("List returned %d records, want 3", len(records))
	}

	if records[0].Seq != 4 || records[2].Seq != 6 {
		t.Errorf("got seqs %d..%d, want 4..6", records[0].Seq, records[2].Seq)
	}
}

func TestListPastEnd(t *testing.T) {
	log, _, cleanup := newTestLog(t)
	defer cleanup()

	log.Emit(testEvent(1))

	records, err := log.List(5, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(records) != 0 {
		t.Errorf("List returned %d records past the end, want 0", len(records))
	}
}

func TestSequenceSurvivesReopen(t *testing.T) {
	log, db, cleanup := newTestLog(t)
	defer cleanup()

	log.Emit(testEvent(1))
	log.Emit(testEvent(2))

	reopened, err := Open(db)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}

	if reopened.LastSeq() != 2 {
		t.Errorf("reopened LastSeq = %d, want 2", reopened.LastSeq())
	}

	reopened.Emit(testEvent(3))

	records, err := reopened.List(3, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(records) != 1 || records[0].Seq != 3 {
		t.Errorf("records = %+v, want one record with seq 3", records)
	}
}

func TestEventRoundTrip(t *testing.T) {
	ev := ledger.Event{
		Type:       ledger.EventWithdrawal,
		Actor:      ledger.Identity{0x09, 0x08},
		DepositID:  42,
		Collection: ledger.CollectionRef{0xcc},
		ItemID:     13,
	}

	decoded, err := DecodeEvent(EncodeEvent(ev))
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded != ev {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, ev)
	}
}

func TestDecodeEventRejectsBadSize(t *testing.T) {
	if _, err := DecodeEvent(make([]byte, recordSize-1)); err == nil {
		t.Error("expected error for short record")
	}
}
