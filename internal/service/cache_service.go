package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/catalogapi/internal/domain"
	"github.com/yourorg/catalogapi/internal/observability/metrics"
)

// CacheStore is the backing store contract for the cache-aside layer.
// Implemented by the redis store and the in-memory pkg/cache fallback.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, tags []string, ttl time.Duration) error
	// InvalidateTags removes all entries carrying any of the tags.
	// Idempotent; unknown tags are no-ops.
	InvalidateTags(ctx context.Context, tags ...string) (int64, error)
}

// ComputeFunc produces the serialized payload on a cache miss.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// CacheService memoizes serialized list/get responses behind deterministic
// keys, one invalidation tag per entity kind, and a short TTL. Reads fail
// open: a broken store degrades to computing the payload directly. The
// service never resolves principals; scoping happens in the handlers and is
// only reflected here through the key.
//
// Concurrent requests for the same cold key may all compute and store the
// same entry. The duplicate work is accepted; the TTL keeps the window small
// and computation is idempotent.
type CacheService struct {
	store  CacheStore
	ttl    time.Duration
	logger *slog.Logger
}

// NewCacheService creates a new cache service
func NewCacheService(store CacheStore, ttl time.Duration, logger *slog.Logger) *CacheService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheService{store: store, ttl: ttl, logger: logger}
}

// GetUnique memoizes a single entity's detail payload.
// Key: get<Kind>-<id>.
func (s *CacheService) GetUnique(ctx context.Context, kind domain.Kind, id int64, compute ComputeFunc) ([]byte, error) {
	key := fmt.Sprintf("get%s-%d", kind.Singular, id)
	return s.getOrCompute(ctx, kind, key, compute)
}

// GetAllPaged memoizes one page of an unscoped listing.
// Key: getAll<Kind>-<page>-<limit>.
func (s *CacheService) GetAllPaged(ctx context.Context, kind domain.Kind, p domain.Pagination, compute ComputeFunc) ([]byte, error) {
	key := fmt.Sprintf("getAll%s-%d-%d", kind.Plural, p.Page, p.Limit)
	return s.getOrCompute(ctx, kind, key, compute)
}

// GetOwnerScoped memoizes one page of a tenant-scoped listing. The owner id
// is part of the key; omitting it would leak one tenant's page into
// another's cache slot.
func (s *CacheService) GetOwnerScoped(ctx context.Context, kind domain.Kind, ownerID int64, p domain.Pagination, compute ComputeFunc) ([]byte, error) {
	key := fmt.Sprintf("getAll%s-customer%d-%d-%d", kind.Plural, ownerID, p.Page, p.Limit)
	return s.getOrCompute(ctx, kind, key, compute)
}

// GetFiltered memoizes one page of a filtered listing. The filter value is
// part of the key so filtered and unfiltered pages never collide.
func (s *CacheService) GetFiltered(ctx context.Context, kind domain.Kind, filter string, p domain.Pagination, compute ComputeFunc) ([]byte, error) {
	key := fmt.Sprintf("getAll%s-brand:%s-%d-%d", kind.Plural, filter, p.Page, p.Limit)
	return s.getOrCompute(ctx, kind, key, compute)
}

// Invalidate synchronously removes every entry under the given tags. Called
// after a successful write commits and before its response is returned. A
// failing store is logged and reported as a metric, never surfaced to the
// caller: the mutation already committed and staleness is bounded by the TTL.
func (s *CacheService) Invalidate(ctx context.Context, tags ...string) {
	removed, err := s.store.InvalidateTags(ctx, tags...)
	if err != nil {
		metrics.ObserveCacheStoreError("invalidate")
		s.logger.Warn("cache invalidation failed, entries expire by TTL",
			slog.Any("tags", tags),
			slog.String("error", err.Error()),
		)
		return
	}
	for _, tag := range tags {
		metrics.ObserveCacheInvalidation(tag, removed)
	}
}

func (s *CacheService) getOrCompute(ctx context.Context, kind domain.Kind, key string, compute ComputeFunc) ([]byte, error) {
	value, ok, err := s.store.Get(ctx, key)
	if err != nil {
		metrics.ObserveCacheStoreError("get")
		s.logger.Warn("cache read failed, falling through to store",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	} else if ok {
		metrics.ObserveCacheHit(kind.Singular)
		return value, nil
	} else {
		metrics.ObserveCacheMiss(kind.Singular)
	}

	payload, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.store.Set(ctx, key, payload, []string{kind.Tag}, s.ttl); err != nil {
		metrics.ObserveCacheStoreError("set")
		s.logger.Warn("cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return payload, nil
}
