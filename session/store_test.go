package session

import (
	"testing"
	"time"
)

func testSession(expiresAt time.Time) *Session {
	return &Session{
		AccessToken:    "access",
		RefreshToken:   "refresh",
		TokenType:      "bearer",
		IdentityUserID: "user-1",
		ExpiresAt:      expiresAt,
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	now := time.Now()
	sess := testSession(now.Add(time.Hour))

	data, err := encodeSnapshot(sess, now)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got := decodeSnapshot(data, now, DefaultOuterExpiry)
	if got == nil {
		t.Fatal("decode returned nil for fresh snapshot")
	}
	if got.AccessToken != sess.AccessToken || got.IdentityUserID != sess.IdentityUserID {
		t.Fatalf("decoded session mismatch: %+v", got)
	}
}

func TestSnapshotOuterExpiry(t *testing.T) {
	saved := time.Now()
	sess := testSession(saved.Add(time.Hour))

	data, err := encodeSnapshot(sess, saved)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	within := saved.Add(DefaultOuterExpiry - time.Hour)
	if decodeSnapshot(data, within, DefaultOuterExpiry) == nil {
		t.Fatal("snapshot inside outer window must decode")
	}

	beyond := saved.Add(DefaultOuterExpiry + time.Hour)
	if decodeSnapshot(data, beyond, DefaultOuterExpiry) != nil {
		t.Fatal("snapshot beyond outer window must be discarded")
	}
}

func TestSnapshotCorruptData(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("{"), []byte("not json"), []byte("{}")} {
		if decodeSnapshot(data, time.Now(), DefaultOuterExpiry) != nil {
			t.Fatalf("corrupt or empty snapshot %q must decode to nil", data)
		}
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	got, err := store.Load()
	if err != nil || got != nil {
		t.Fatalf("empty store Load = (%v, %v), want (nil, nil)", got, err)
	}

	sess := testSession(time.Now().Add(time.Hour))
	if err := store.Save(sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err = store.Load()
	if err != nil || got == nil {
		t.Fatalf("Load after Save = (%v, %v)", got, err)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, err = store.Load()
	if err != nil || got != nil {
		t.Fatalf("Load after Clear = (%v, %v), want (nil, nil)", got, err)
	}

	// Clearing an empty store is a no-op.
	if err := store.Clear(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}
