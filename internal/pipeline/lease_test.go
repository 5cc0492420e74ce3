package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/threadline-ai/threadline-backend/pkg/logger"
)

type fakeLeaseStore struct {
	values map[string]string
}

func newFakeLeaseStore() *fakeLeaseStore {
	return &fakeLeaseStore{values: map[string]string{}}
}

func (f *fakeLeaseStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeLeaseStore) Get(_ context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (f *fakeLeaseStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeLeaseStore) LeaseKey(scope, id string) string {
	return strings.Join([]string{"tl", "lease", scope, id}, ":")
}

func newTestLease(t *testing.T, store *fakeLeaseStore) *Lease {
	t.Helper()
	lease, err := NewLease(store, time.Minute, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("building lease: %v", err)
	}
	return lease
}

func TestLeaseMutualExclusionPerProduct(t *testing.T) {
	store := newFakeLeaseStore()
	lease := newTestLease(t, store)
	productID := uuid.New()
	ctx := context.Background()

	token, acquired, err := lease.Acquire(ctx, productID)
	if err != nil || !acquired {
		t.Fatalf("first acquire should succeed: acquired=%v err=%v", acquired, err)
	}
	if _, acquired, _ := lease.Acquire(ctx, productID); acquired {
		t.Fatal("second acquire for the same product must fail while held")
	}

	otherProduct := uuid.New()
	if _, acquired, _ := lease.Acquire(ctx, otherProduct); !acquired {
		t.Fatal("a different product must not be blocked")
	}

	lease.Release(ctx, productID, token)
	if _, acquired, _ := lease.Acquire(ctx, productID); !acquired {
		t.Fatal("acquire after release should succeed")
	}
}

func TestLeaseReleaseIgnoresForeignToken(t *testing.T) {
	store := newFakeLeaseStore()
	lease := newTestLease(t, store)
	productID := uuid.New()
	ctx := context.Background()

	token, _, err := lease.Acquire(ctx, productID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Simulates a lease that expired and was re-acquired by another run.
	lease.Release(ctx, productID, "stale-token")
	if _, acquired, _ := lease.Acquire(ctx, productID); acquired {
		t.Fatal("release with a stale token must not drop the current lease")
	}

	lease.Release(ctx, productID, token)
}

func TestLeaseReleaseAfterExpiryIsQuiet(t *testing.T) {
	store := newFakeLeaseStore()
	lease := newTestLease(t, store)
	productID := uuid.New()

	// Key already gone; release should be a no-op.
	lease.Release(context.Background(), productID, "expired-token")
}

func TestNewLeaseValidation(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	if _, err := NewLease(nil, time.Minute, logg); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewLease(newFakeLeaseStore(), 0, logg); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}
