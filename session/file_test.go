package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path, 0)

	got, err := store.Load()
	if err != nil || got != nil {
		t.Fatalf("Load on missing file = (%v, %v), want (nil, nil)", got, err)
	}

	sess := testSession(time.Now().Add(time.Hour))
	if err := store.Save(sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("snapshot file mode = %v, want 0600", perm)
	}

	got, err = store.Load()
	if err != nil || got == nil {
		t.Fatalf("Load after Save = (%v, %v)", got, err)
	}
	if got.RefreshToken != sess.RefreshToken {
		t.Fatalf("loaded session mismatch: %+v", got)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("clear must remove the snapshot file")
	}

	// Clearing again is a no-op.
	if err := store.Clear(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestFileStoreRemovesStaleSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path, DefaultOuterExpiry)

	// Written long enough ago that the outer expiry window has passed.
	data, err := encodeSnapshot(testSession(time.Now().Add(time.Hour)), time.Now().Add(-DefaultOuterExpiry-time.Hour))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := store.Load()
	if err != nil || got != nil {
		t.Fatalf("Load of stale snapshot = (%v, %v), want (nil, nil)", got, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("stale snapshot file must be removed on load")
	}
}

func TestFileStoreRemovesCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path, 0)

	if err := os.WriteFile(path, []byte("{truncated"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := store.Load()
	if err != nil || got != nil {
		t.Fatalf("Load of corrupt snapshot = (%v, %v), want (nil, nil)", got, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("corrupt snapshot file must be removed on load")
	}
}
