package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps entries in redis hashes. Expiry is left to redis TTLs,
// so Sweep has nothing to do.
type RedisStore struct {
	rdb       redis.UniversalClient
	namespace string
	now       func() time.Time
}

var _ Store = (*RedisStore)(nil)

// markStale flips the flag only on hashes that still exist, so an entry that
// expired between SCAN and the write is not resurrected without a TTL.
var markStale = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return redis.call('HSET', KEYS[1], 'invalidated', '1')
end
return 0
`)

// NewRedisStore stores keys under namespace (for example "sikumon:<user>:").
func NewRedisStore(rdb redis.UniversalClient, namespace string) *RedisStore {
	return &RedisStore{rdb: rdb, namespace: namespace, now: time.Now}
}

// OpenRedisStore connects using a redis:// URL.
func OpenRedisStore(ctx context.Context, rawURL, namespace string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(rdb, namespace), nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error { return s.rdb.Close() }

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	m, err := s.rdb.HGetAll(ctx, s.namespace+key).Result()
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}
	fetched, err := strconv.ParseInt(m["fetched_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("cache entry %s: bad fetched_at: %w", key, err)
	}
	expires, _ := strconv.ParseInt(m["expires_at"], 10, 64)
	return &Entry{
		Key:         key,
		Data:        []byte(m["data"]),
		FetchedAt:   time.Unix(0, fetched),
		Invalidated: m["invalidated"] == "1",
		ExpiresAt:   time.Unix(0, expires),
	}, nil
}

func (s *RedisStore) Set(ctx context.Context, e Entry) error {
	ttl := e.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, e.Key)
	}
	invalidated := "0"
	if e.Invalidated {
		invalidated = "1"
	}
	k := s.namespace + e.Key
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, k)
		p.HSet(ctx, k,
			"data", string(e.Data),
			"fetched_at", strconv.FormatInt(e.FetchedAt.UnixNano(), 10),
			"expires_at", strconv.FormatInt(e.ExpiresAt.UnixNano(), 10),
			"invalidated", invalidated,
		)
		p.PExpire(ctx, k, ttl)
		return nil
	})
	return err
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.namespace+key).Err()
}

func (s *RedisStore) Invalidate(ctx context.Context, prefix string) error {
	iter := s.rdb.Scan(ctx, 0, globEscape(s.namespace+prefix)+"*", 100).Iterator()
	var errs []error
	for iter.Next(ctx) {
		if err := markStale.Run(ctx, s.rdb, []string{iter.Val()}).Err(); err != nil && !errors.Is(err, redis.Nil) {
			errs = append(errs, err)
		}
	}
	if err := iter.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *RedisStore) Sweep(context.Context, time.Time) (int, error) { return 0, nil }

func globEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`).Replace(s)
}

// Clear deletes every key in the namespace.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.rdb.Scan(ctx, 0, globEscape(s.namespace)+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}
