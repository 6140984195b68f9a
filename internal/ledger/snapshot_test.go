package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"StrongRoom/internal/storage"
)

func TestSnapshotRoundTrip(t *testing.T) {
	f, cleanup := newTestLedger(t)
	defer cleanup()

	mustDeposit(t, f, 1)
	mustDeposit(t, f, 2)

	snapshot, err := f.ledger.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	// Restore into a fresh store and reopen a ledger over it.
	dir, err := os.MkdirTemp("", "snapshot-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	db, err := storage.Open(filepath.Join(dir, "db"))
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	defer db.Close()

	if err := Restore(db, snapshot); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	restored, err := New(db, testAdmin, External{
		Assets: &fakeAssets{}, Funds: &fakeFunds{},
		Recovery: &fakeRecovery{}, Heights: &fakeHeight{},
	})
	if err != nil {
		t.Fatalf("failed to open restored ledger: %v", err)
	}

	if restored.VaultID() != f.ledger.VaultID() {
		t.Error("vault id not preserved by snapshot")
	}

	highest, err := restored.HighestDepositID()
	if err != nil {
		t.Fatalf("HighestDepositID failed: %v", err)
	}

	if highest != 2 {
		t.Errorf("highest = %d, want 2", highest)
	}

	entry, live, err := restored.Deposit(1)
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}

	if !live || entry.Asset.ItemID != 1 || entry.Depositor != testDepositor {
		t.Errorf("restored entry = %+v live=%v", entry, live)
	}

	allowed, err := restored.IsDepositorAllowed(testDepositor)
	if err != nil {
		t.Fatalf("IsDepositorAllowed failed: %v", err)
	}

	if !allowed {
		t.Error("depositor access not preserved by snapshot")
	}
}

func TestRestoreRejectsCorruptSnapshot(t *testing.T) {
	f, cleanup := newTestLedger(t)
	defer cleanup()

	snapshot, err := f.ledger.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	dir, err := os.MkdirTemp("", "snapshot-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	db, err := storage.Open(filepath.Join(dir, "db"))
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	defer db.Close()

	if err := Restore(db, snapshot[:len(snapshot)/2]); err == nil {
		t.Error("expected error for truncated snapshot")
	}

	if err := Restore(db, []byte("not a snapshot")); err == nil {
		t.Error("expected error for garbage input")
	}
}
