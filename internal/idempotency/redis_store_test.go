package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStoreWithClient(client, time.Hour), mr
}

func TestLookupMissingKey(t *testing.T) {
	store, _ := newTestStore(t)

	_, found, err := store.Lookup(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if found {
		t.Error("expected miss for an unknown key")
	}
}

func TestSaveAndLookup(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	payload := []byte(`{"success":true,"data":{"request_id":7}}`)
	if err := store.Save(ctx, "op-1", payload); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, found, err := store.Lookup(ctx, "op-1")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !found {
		t.Fatal("expected hit after save")
	}
	if string(got) != string(payload) {
		t.Errorf("Lookup() = %s, want %s", got, payload)
	}
}

func TestSavedKeyExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "op-1", []byte("x")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	mr.FastForward(2 * time.Hour)

	_, found, err := store.Lookup(ctx, "op-1")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if found {
		t.Error("expected key to expire after the TTL")
	}
}

func TestDefaultTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, 0)
	if store.ttl != 24*time.Hour {
		t.Errorf("expected default ttl of 24h, got %v", store.ttl)
	}
}
