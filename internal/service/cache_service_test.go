package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/yourorg/catalogapi/internal/domain"
	"github.com/yourorg/catalogapi/pkg/cache"
)

// countingStore wraps the in-memory store to count operations.
type countingStore struct {
	inner *cache.Cache
	gets  int
	sets  int
}

func newCountingStore() *countingStore {
	return &countingStore{inner: cache.New()}
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.gets++
	return c.inner.Get(ctx, key)
}

func (c *countingStore) Set(ctx context.Context, key string, value []byte, tags []string, ttl time.Duration) error {
	c.sets++
	return c.inner.Set(ctx, key, value, tags, ttl)
}

func (c *countingStore) InvalidateTags(ctx context.Context, tags ...string) (int64, error) {
	return c.inner.InvalidateTags(ctx, tags...)
}

// brokenStore fails every operation.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("store down")
}

func (brokenStore) Set(context.Context, string, []byte, []string, time.Duration) error {
	return errors.New("store down")
}

func (brokenStore) InvalidateTags(context.Context, ...string) (int64, error) {
	return 0, errors.New("store down")
}

func computeCounter(payload string, calls *int) ComputeFunc {
	return func(ctx context.Context) ([]byte, error) {
		*calls++
		return []byte(payload), nil
	}
}

func TestSecondReadWithinTTLSkipsCompute(t *testing.T) {
	store := newCountingStore()
	s := NewCacheService(store, 15*time.Second, slog.Default())
	ctx := context.Background()

	calls := 0
	first, err := s.GetUnique(ctx, domain.KindProduct, 7, computeCounter(`{"id":7}`, &calls))
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	second, err := s.GetUnique(ctx, domain.KindProduct, 7, computeCounter(`{"id":7}`, &calls))
	if err != nil {
		t.Fatalf("second read: %v", err)
	}

	if calls != 1 {
		t.Fatalf("expected exactly one compute, got %d", calls)
	}
	if string(first) != string(second) {
		t.Fatalf("hit returned different payload: %q vs %q", first, second)
	}
	if store.sets != 1 {
		t.Fatalf("expected one store write, got %d", store.sets)
	}
}

func TestInvalidateForcesRecompute(t *testing.T) {
	store := newCountingStore()
	s := NewCacheService(store, 15*time.Second, slog.Default())
	ctx := context.Background()

	calls := 0
	p := domain.Pagination{Page: 1, Limit: 3}
	if _, err := s.GetAllPaged(ctx, domain.KindUser, p, computeCounter(`[1]`, &calls)); err != nil {
		t.Fatalf("warm read: %v", err)
	}

	s.Invalidate(ctx, domain.KindUser.Tag)

	if _, err := s.GetAllPaged(ctx, domain.KindUser, p, computeCounter(`[2]`, &calls)); err != nil {
		t.Fatalf("read after invalidation: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected recompute after invalidation, got %d computes", calls)
	}
}

func TestInvalidateOnlyTouchesItsTag(t *testing.T) {
	store := newCountingStore()
	s := NewCacheService(store, 15*time.Second, slog.Default())
	ctx := context.Background()

	userCalls, productCalls := 0, 0
	p := domain.Pagination{Page: 1, Limit: 3}
	s.GetAllPaged(ctx, domain.KindUser, p, computeCounter(`["u"]`, &userCalls))
	s.GetAllPaged(ctx, domain.KindProduct, p, computeCounter(`["p"]`, &productCalls))

	s.Invalidate(ctx, domain.KindUser.Tag)

	s.GetAllPaged(ctx, domain.KindUser, p, computeCounter(`["u"]`, &userCalls))
	s.GetAllPaged(ctx, domain.KindProduct, p, computeCounter(`["p"]`, &productCalls))

	if userCalls != 2 {
		t.Errorf("user page should recompute, got %d computes", userCalls)
	}
	if productCalls != 1 {
		t.Errorf("product page should survive a user invalidation, got %d computes", productCalls)
	}
}

func TestOwnerScopedKeysNeverCollide(t *testing.T) {
	store := newCountingStore()
	s := NewCacheService(store, 15*time.Second, slog.Default())
	ctx := context.Background()

	p := domain.Pagination{Page: 1, Limit: 3}
	calls := 0
	t1, err := s.GetOwnerScoped(ctx, domain.KindUser, 1, p, computeCounter(`["tenant-1"]`, &calls))
	if err != nil {
		t.Fatalf("tenant 1 read: %v", err)
	}
	t2, err := s.GetOwnerScoped(ctx, domain.KindUser, 2, p, computeCounter(`["tenant-2"]`, &calls))
	if err != nil {
		t.Fatalf("tenant 2 read: %v", err)
	}

	if calls != 2 {
		t.Fatalf("tenants shared a cache slot: %d computes", calls)
	}
	if string(t1) == string(t2) {
		t.Fatalf("tenant 2 served tenant 1's page")
	}

	// Re-reads stay isolated.
	again, _ := s.GetOwnerScoped(ctx, domain.KindUser, 2, p, computeCounter(`["stale"]`, &calls))
	if string(again) != `["tenant-2"]` {
		t.Fatalf("tenant 2 re-read got %q", again)
	}
}

func TestFilteredAndUnfilteredKeysDistinct(t *testing.T) {
	store := newCountingStore()
	s := NewCacheService(store, 15*time.Second, slog.Default())
	ctx := context.Background()

	p := domain.Pagination{Page: 1, Limit: 4}
	calls := 0
	all, _ := s.GetAllPaged(ctx, domain.KindProduct, p, computeCounter(`["all"]`, &calls))
	acme, _ := s.GetFiltered(ctx, domain.KindProduct, "Acme", p, computeCounter(`["acme"]`, &calls))
	globex, _ := s.GetFiltered(ctx, domain.KindProduct, "Globex", p, computeCounter(`["globex"]`, &calls))

	if calls != 3 {
		t.Fatalf("expected 3 distinct slots, got %d computes", calls)
	}
	if string(all) == string(acme) || string(acme) == string(globex) {
		t.Fatalf("filtered pages collided: all=%q acme=%q globex=%q", all, acme, globex)
	}
}

func TestReadsFailOpenWhenStoreIsDown(t *testing.T) {
	s := NewCacheService(brokenStore{}, 15*time.Second, slog.Default())
	ctx := context.Background()

	calls := 0
	payload, err := s.GetUnique(ctx, domain.KindCustomer, 1, computeCounter(`{"id":1}`, &calls))
	if err != nil {
		t.Fatalf("expected fail-open read, got %v", err)
	}
	if string(payload) != `{"id":1}` {
		t.Fatalf("unexpected payload %q", payload)
	}

	// Invalidation on a dead store must not panic or error the caller.
	s.Invalidate(ctx, domain.KindCustomer.Tag)
}

func TestComputeErrorPropagates(t *testing.T) {
	s := NewCacheService(newCountingStore(), 15*time.Second, slog.Default())
	ctx := context.Background()

	wantErr := errors.New("query failed")
	_, err := s.GetUnique(ctx, domain.KindCustomer, 1, func(ctx context.Context) ([]byte, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected compute error, got %v", err)
	}
}
