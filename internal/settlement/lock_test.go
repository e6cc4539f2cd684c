package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeRedisStore struct {
	values map[string]string
	evals  int
}

func newFakeRedisStore() *fakeRedisStore {
	return &fakeRedisStore{values: map[string]string{}}
}

func (s *fakeRedisStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

// Eval runs the compare-and-delete release script against the in-memory map,
// mirroring the single server-side step the real store performs.
func (s *fakeRedisStore) Eval(_ context.Context, script string, keys []string, args ...any) (any, error) {
	s.evals++
	if script != releaseScript {
		return nil, errors.New("unexpected script")
	}
	if len(keys) != 1 || len(args) != 1 {
		return nil, errors.New("release script takes one key and one owner")
	}
	owner, _ := args[0].(string)
	if value, ok := s.values[keys[0]]; ok && value == owner {
		delete(s.values, keys[0])
		return int64(1), nil
	}
	return int64(0), nil
}

func (s *fakeRedisStore) LockKey(scope, id string) string {
	return "cw:lock:" + scope + ":" + id
}

func TestOrderLockerMutualExclusion(t *testing.T) {
	store := newFakeRedisStore()
	locker, err := NewRedisOrderLocker(store, time.Second)
	if err != nil {
		t.Fatalf("locker: %v", err)
	}
	ctx := context.Background()
	orderID := uuid.New()

	lock, err := locker.Acquire(ctx, orderID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := locker.Acquire(ctx, orderID); !errors.Is(err, ErrOrderBusy) {
		t.Fatalf("second acquire err = %v, want busy", err)
	}

	// A different order is unaffected.
	other, err := locker.Acquire(ctx, uuid.New())
	if err != nil {
		t.Fatalf("acquire other order: %v", err)
	}
	_ = other.Release(ctx)

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := locker.Acquire(ctx, orderID); err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
}

func TestOrderLockReleaseRespectsNewOwner(t *testing.T) {
	store := newFakeRedisStore()
	locker, err := NewRedisOrderLocker(store, time.Second)
	if err != nil {
		t.Fatalf("locker: %v", err)
	}
	ctx := context.Background()
	orderID := uuid.New()

	lock, err := locker.Acquire(ctx, orderID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Simulate TTL expiry followed by another worker taking the lock.
	key := store.LockKey("order", orderID.String())
	delete(store.values, key)
	if _, err := locker.Acquire(ctx, orderID); err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}

	// The stale holder's release must not free the new owner's lock, and the
	// owner check and delete must reach the store as one scripted call.
	evalsBefore := store.evals
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	if _, ok := store.values[key]; !ok {
		t.Fatal("stale release removed the new owner's lock")
	}
	if store.evals != evalsBefore+1 {
		t.Fatalf("release issued %d store calls, want 1", store.evals-evalsBefore)
	}

	// Releasing a lock whose key already expired is not an error.
	delete(store.values, key)
	expired, err := locker.Acquire(ctx, orderID)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	delete(store.values, key)
	if err := expired.Release(ctx); err != nil {
		t.Fatalf("release after expiry: %v", err)
	}
}
