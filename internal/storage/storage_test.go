package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// newTestStore creates a temporary store for testing.
func newTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", "storage-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	s, err := Open(filepath.Join(dir, "db"))
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("failed to open store: %v", err)
	}

	cleanup := func() {
		s.Close()
		os.RemoveAll(dir)
	}

	return s, cleanup
}

func TestSetAndGet(t *testing.T) {
	s, cleanup := newTestStore(t)
	defer cleanup()

	key := []byte("test-key")
	value := []byte("test-value")

	if err := s.Set(key, value); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := s.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if !bytes.Equal(got, value) {
		t.Errorf("Get returned %q, want %q", got, value)
	}
}

func TestGetNonExistent(t *testing.T) {
	s, cleanup := newTestStore(t)
	defer cleanup()

	got, err := s.Get([]byte("non-existent"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got != nil {
		t.Errorf("Get returned %q for missing key, want nil", got)
	}
}

func TestSetSyncDurableRead(t *testing.T) {
	s, cleanup := newTestStore(t)
	defer cleanup()

	if err := s.SetSync([]byte("synced"), []byte("v")); err != nil {
		t.Fatalf("SetSync failed: %v", err)
	}

	got, err := s.Get([]byte("synced"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if !bytes.Equal(got, []byte("v")) {
		t.Errorf("Get returned %q, want %q", got, "v")
	}
}

func TestHas(t *testing.T) {
	s, cleanup := newTestStore(t)
	defer cleanup()

	if err := s.Set([]byte("present"), []byte{1}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	ok, err := s.Has([]byte("present"))
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}

	if !ok {
		t.Error("Has = false for existing key")
	}

	ok, err = s.Has([]byte("absent"))
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}

	if ok {
		t.Error("Has = true for missing key")
	}
}

func TestDelete(t *testing.T) {
	s, cleanup := newTestStore(t)
	defer cleanup()

	key := []byte("to-delete")

	if err := s.Set(key, []byte("value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := s.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	got, err := s.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got != nil {
		t.Errorf("Get returned %q after delete, want nil", got)
	}
}

func TestSetBatch(t *testing.T) {
	s, cleanup := newTestStore(t)
	defer cleanup()

	pairs := []KeyValue{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
		{Key: []byte("c"), Value: []byte("3")},
	}

	if err := s.SetBatch(pairs); err != nil {
		t.Fatalf("SetBatch failed: %v", err)
	}

	for _, p := range pairs {
		got, err := s.Get(p.Key)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if !bytes.Equal(got, p.Value) {
			t.Errorf("Get(%q) = %q, want %q", p.Key, got, p.Value)
		}
	}
}

func TestIteratePrefix(t *testing.T) {
	s, cleanup := newTestStore(t)
	defer cleanup()

	keys := [][]byte{
		[]byte("dep:1"),
		[]byte("dep:2"),
		[]byte("fee:1"),
	}

	for _, k := range keys {
		if err := s.Set(k, []byte("v")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	var visited []string
	err := s.IteratePrefix([]byte("dep:"), func(key, value []byte) error {
		visited = append(visited, string(key))
		return nil
	})
	if err != nil {
		t.Fatalf("IteratePrefix failed: %v", err)
	}

	if len(visited) != 2 {
		t.Fatalf("visited %d keys, want 2", len(visited))
	}

	if visited[0] != "dep:1" || visited[1] != "dep:2" {
		t.Errorf("visited = %v, want [dep:1 dep:2]", visited)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir, err := os.MkdirTemp("", "storage-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	if err := s.SetSync([]byte("persist"), []byte("value")); err != nil {
		t.Fatalf("SetSync failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()

	got, err := s.Get([]byte("persist"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if !bytes.Equal(got, []byte("value")) {
		t.Errorf("Get returned %q after reopen, want %q", got, "value")
	}
}

func TestGetCopiesValue(t *testing.T) {
	s, cleanup := newTestStore(t)
	defer cleanup()

	if err := s.Set([]byte("k"), []byte("original")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := s.Get([]byte("k"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// Mutating the returned slice must not corrupt the stored value.
	got[0] = 'X'

	again, err := s.Get([]byte("k"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if !bytes.Equal(again, []byte("original")) {
		t.Errorf("stored value mutated through returned slice: %q", again)
	}
}
