package redis

import (
	"context"
	"testing"
	"time"
)

func TestIdempotencyStoreFirstRequestClaims(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	exists, _, err := store.CheckAndSet(ctx, "pay-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if exists {
		t.Fatal("first request must not see an existing key")
	}
}

func TestIdempotencyStoreDuplicateSeesResponse(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.CheckAndSet(ctx, "pay-1", nil, time.Minute); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if err := store.Update(ctx, "pay-1", []byte(`{"id":"bhd_1"}`), time.Minute); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	exists, resp, err := store.CheckAndSet(ctx, "pay-1", nil, time.Minute)
	if err != nil {
		t.Fatalf("duplicate check failed: %v", err)
	}
	if !exists {
		t.Fatal("duplicate must see the existing key")
	}
	if string(resp) != `{"id":"bhd_1"}` {
		t.Fatalf("expected stored response, got %s", resp)
	}
}

func TestIdempotencyStoreInFlightDuplicate(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client)
	ctx := context.Background()

	if _, _, err := store.CheckAndSet(ctx, "pay-2", nil, time.Minute); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	// A second request with the same key while the first is still processing
	// sees the placeholder, not a fresh claim.
	exists, resp, err := store.CheckAndSet(ctx, "pay-2", nil, time.Minute)
	if err != nil {
		t.Fatalf("duplicate check failed: %v", err)
	}
	if !exists {
		t.Fatal("in-flight duplicate must be detected")
	}
	if string(resp) != "processing" {
		t.Fatalf("expected processing placeholder, got %s", resp)
	}
}
