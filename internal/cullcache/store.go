// Package cullcache provides a Redis-backed chunk dedup cache, grounded on
// the go-redis usage in frnd1406-NasServer's job_service.go (same
// marshal-to-JSON-value, TTL'd-key pattern) and wired here to the cyphertite
// domain: tracking which chunk SHA1s are already known to the server so the
// archive side can skip re-sending them, and the cull engine can use the same
// store as a durable alternative to its in-memory ChunkSet.
package cullcache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kenneth/cyphertite-go/internal/ctxerr"
)

const keyPrefix = "cyphertite:chunk:"

// Store is a Redis-backed set of known chunk SHA1s. Neither
// session.ArchiveProducer nor cull.Engine calls it; cull's live-chunk set is
// the in-memory cull.ChunkSet.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore constructs a Store against addr (host:port). ttl is applied to
// each marked SHA; zero disables expiry.
func NewStore(addr string, ttl time.Duration) *Store {
	return &Store{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping verifies connectivity, used by the diagnostics readiness check.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return ctxerr.New(ctxerr.KindIO, "cullcache.Store.Ping", err)
	}
	return nil
}

// Mark records sha as known.
func (s *Store) Mark(ctx context.Context, sha string) error {
	if err := s.client.Set(ctx, keyPrefix+sha, 1, s.ttl).Err(); err != nil {
		return ctxerr.New(ctxerr.KindIO, "cullcache.Store.Mark", err)
	}
	return nil
}

// Contains reports whether sha has previously been marked.
func (s *Store) Contains(ctx context.Context, sha string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+sha).Result()
	if err != nil {
		return false, ctxerr.New(ctxerr.KindIO, "cullcache.Store.Contains", err)
	}
	return n > 0, nil
}

// MarkAll records every sha in shas, pipelined as a single round trip.
func (s *Store) MarkAll(ctx context.Context, shas []string) error {
	pipe := s.client.Pipeline()
	for _, sha := range shas {
		pipe.Set(ctx, keyPrefix+sha, 1, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return ctxerr.New(ctxerr.KindIO, "cullcache.Store.MarkAll", err)
	}
	return nil
}

// Purge removes every key this store owns, used between cull cycles to
// rebuild the live set from scratch the way cull.ChunkSet.Reset does for
// the in-memory set.
func (s *Store) Purge(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return ctxerr.New(ctxerr.KindIO, "cullcache.Store.Purge", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return ctxerr.New(ctxerr.KindIO, "cullcache.Store.Purge", err)
	}
	return nil
}
