package service

import (
	"context"
	"errors"
	"time"

	"github.com/yourorg/catalogapi/internal/reliability/circuitbreaker"
)

// ErrCircuitOpen is reported when the cache store breaker is open.
var ErrCircuitOpen = errors.New("cache store circuit open")

// GuardedStore wraps a CacheStore with a circuit breaker so that a dead
// store fails fast instead of stalling every request. CacheService treats
// the resulting errors as misses, which preserves fail-open reads.
type GuardedStore struct {
	inner   CacheStore
	breaker *circuitbreaker.CircuitBreaker
}

// NewGuardedStore creates a new guarded store
func NewGuardedStore(inner CacheStore, breaker *circuitbreaker.CircuitBreaker) *GuardedStore {
	return &GuardedStore{inner: inner, breaker: breaker}
}

func (g *GuardedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !g.breaker.AllowRequest() {
		return nil, false, ErrCircuitOpen
	}
	value, ok, err := g.inner.Get(ctx, key)
	g.record(err)
	return value, ok, err
}

func (g *GuardedStore) Set(ctx context.Context, key string, value []byte, tags []string, ttl time.Duration) error {
	if !g.breaker.AllowRequest() {
		return ErrCircuitOpen
	}
	err := g.inner.Set(ctx, key, value, tags, ttl)
	g.record(err)
	return err
}

func (g *GuardedStore) InvalidateTags(ctx context.Context, tags ...string) (int64, error) {
	if !g.breaker.AllowRequest() {
		return 0, ErrCircuitOpen
	}
	removed, err := g.inner.InvalidateTags(ctx, tags...)
	g.record(err)
	return removed, err
}

func (g *GuardedStore) record(err error) {
	if err != nil {
		g.breaker.RecordFailure()
		return
	}
	g.breaker.RecordSuccess()
}
