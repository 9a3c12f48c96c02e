package session

import (
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, "authcore:session:test", time.Hour), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newTestRedisStore(t)

	got, err := store.Load()
	if err != nil || got != nil {
		t.Fatalf("Load on empty key = (%v, %v), want (nil, nil)", got, err)
	}

	sess := testSession(time.Now().Add(time.Hour))
	if err := store.Save(sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err = store.Load()
	if err != nil || got == nil {
		t.Fatalf("Load after Save = (%v, %v)", got, err)
	}
	if got.AccessToken != sess.AccessToken {
		t.Fatalf("loaded session mismatch: %+v", got)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, err = store.Load()
	if err != nil || got != nil {
		t.Fatalf("Load after Clear = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestRedisStoreSetsOuterExpiryTTL(t *testing.T) {
	store, mr := newTestRedisStore(t)

	if err := store.Save(testSession(time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("save: %v", err)
	}

	ttl := mr.TTL("authcore:session:test")
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("snapshot TTL = %v, want (0, 1h]", ttl)
	}
}

func TestRedisStoreBackendFault(t *testing.T) {
	store, mr := newTestRedisStore(t)
	mr.Close()

	if _, err := store.Load(); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Load against closed backend = %v, want ErrStoreUnavailable", err)
	}
	if err := store.Save(testSession(time.Now().Add(time.Hour))); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Save against closed backend = %v, want ErrStoreUnavailable", err)
	}
}
