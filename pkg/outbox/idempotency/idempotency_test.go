package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeStore struct {
	setNXResult bool
	setNXError  error
	lastKey     string
	lastTTL     time.Duration
	lastDeleted string
}

func (f *fakeStore) Get(context.Context, string) (string, error) { return "", nil }

func (f *fakeStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	f.lastKey = key
	f.lastTTL = ttl
	return f.setNXResult, f.setNXError
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "tl:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	if len(keys) > 0 {
		f.lastDeleted = keys[0]
	}
	return nil
}

func newManager(t *testing.T, store *fakeStore, ttl time.Duration) *Manager {
	t.Helper()
	manager, err := NewManager(store, ttl)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return manager
}

func TestCheckAndMarkProcessed(t *testing.T) {
	const consumer = "notifications-worker"

	t.Run("firstDelivery", func(t *testing.T) {
		store := &fakeStore{setNXResult: true}
		manager := newManager(t, store, 24*time.Hour)

		eventID := uuid.New()
		already, err := manager.CheckAndMarkProcessed(context.Background(), consumer, eventID)
		if err != nil {
			t.Fatalf("CheckAndMarkProcessed: %v", err)
		}
		if already {
			t.Fatal("first delivery reported as duplicate")
		}
		if want := "tl:idempotency:evt:processed:" + consumer + ":" + eventID.String(); store.lastKey != want {
			t.Fatalf("key %q, want %q", store.lastKey, want)
		}
		if store.lastTTL != 24*time.Hour {
			t.Fatalf("ttl %v, want 24h", store.lastTTL)
		}
	})

	t.Run("redelivery", func(t *testing.T) {
		manager := newManager(t, &fakeStore{setNXResult: false}, 12*time.Hour)

		already, err := manager.CheckAndMarkProcessed(context.Background(), consumer, uuid.New())
		if err != nil {
			t.Fatalf("CheckAndMarkProcessed: %v", err)
		}
		if !already {
			t.Fatal("redelivery not detected")
		}
	})

	t.Run("storeError", func(t *testing.T) {
		manager := newManager(t, &fakeStore{setNXError: errors.New("boom")}, time.Hour)

		if _, err := manager.CheckAndMarkProcessed(context.Background(), consumer, uuid.New()); err == nil {
			t.Fatal("store error swallowed")
		}
	})

	t.Run("emptyConsumer", func(t *testing.T) {
		manager := newManager(t, &fakeStore{}, time.Hour)

		if _, err := manager.CheckAndMarkProcessed(context.Background(), "", uuid.New()); err == nil {
			t.Fatal("expected error for empty consumer")
		}
	})
}

func TestDeleteUnmarksEvent(t *testing.T) {
	store := &fakeStore{}
	manager := newManager(t, store, time.Hour)

	eventID := uuid.New()
	if err := manager.Delete(context.Background(), "notifications-worker", eventID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if want := "tl:idempotency:evt:processed:notifications-worker:" + eventID.String(); store.lastDeleted != want {
		t.Fatalf("deleted %q, want %q", store.lastDeleted, want)
	}
}
