package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// tagPrefix namespaces the sets that map a cache tag to its member keys.
const tagPrefix = "tag:"

// Store is a tag-aware cache store on redis. Values live under their own
// keys with a TTL; each tag owns a set of member keys used for bulk
// invalidation. Tag sets are not TTL'd and are pruned by the janitor worker.
type Store struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewStore creates a new redis-backed cache store
func NewStore(url string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{rdb: rdb, logger: logger}, nil
}

// Get retrieves a cached payload. A missing key is a miss, not an error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return b, true, nil
}

// Set stores a payload with a TTL and registers it under each tag's set.
func (s *Store) Set(ctx context.Context, key string, value []byte, tags []string, ttl time.Duration) error {
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key, value, ttl)
	for _, tag := range tags {
		pipe.SAdd(ctx, tagPrefix+tag, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// InvalidateTags removes every entry registered under any of the given tags
// together with the tag sets themselves. Unknown tags are no-ops.
func (s *Store) InvalidateTags(ctx context.Context, tags ...string) (int64, error) {
	var removed int64
	for _, tag := range tags {
		members, err := s.rdb.SMembers(ctx, tagPrefix+tag).Result()
		if err != nil {
			return removed, fmt.Errorf("redis smembers %s: %w", tag, err)
		}
		pipe := s.rdb.TxPipeline()
		var del *redis.IntCmd
		if len(members) > 0 {
			del = pipe.Del(ctx, members...)
		}
		pipe.Del(ctx, tagPrefix+tag)
		if _, err := pipe.Exec(ctx); err != nil {
			return removed, fmt.Errorf("redis invalidate %s: %w", tag, err)
		}
		if del != nil {
			removed += del.Val()
		}
	}
	return removed, nil
}

// PruneTagSets drops members of tag sets whose value keys have expired.
// Without this, tag sets outlive the 15 second entry TTL and grow unbounded.
func (s *Store) PruneTagSets(ctx context.Context, tags []string) (int64, error) {
	var pruned int64
	for _, tag := range tags {
		setKey := tagPrefix + tag
		members, err := s.rdb.SMembers(ctx, setKey).Result()
		if err != nil {
			return pruned, fmt.Errorf("redis smembers %s: %w", tag, err)
		}
		for _, member := range members {
			exists, err := s.rdb.Exists(ctx, member).Result()
			if err != nil {
				return pruned, fmt.Errorf("redis exists %s: %w", member, err)
			}
			if exists == 0 {
				if err := s.rdb.SRem(ctx, setKey, member).Err(); err != nil {
					return pruned, fmt.Errorf("redis srem %s: %w", member, err)
				}
				pruned++
			}
		}
	}
	return pruned, nil
}

// Ping checks connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the redis connection
func (s *Store) Close() error {
	return s.rdb.Close()
}
