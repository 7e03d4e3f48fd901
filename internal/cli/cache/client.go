package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Options control freshness and retention of one query.
type Options struct {
	StaleTime time.Duration
	GCTime    time.Duration
	// Retries is how many times a failed read is retried.
	Retries uint64
}

// Client is the query engine: fresh hits come from the store, misses are
// fetched once per key no matter how many callers ask.
type Client struct {
	store   Store
	group   singleflight.Group
	logger  *zap.SugaredLogger
	now     func() time.Time
	backoff time.Duration
	// loadTimeout bounds a shared fetch, which outlives any single caller.
	loadTimeout time.Duration

	mu       sync.Mutex
	inflight map[string]int
	// epoch moves on every invalidation or removal; a fetch that overlaps a
	// move does not write its result back.
	epoch uint64
}

func NewClient(store Store, logger *zap.SugaredLogger) *Client {
	return &Client{
		store:       store,
		logger:      logger,
		now:         time.Now,
		backoff:     200 * time.Millisecond,
		loadTimeout: 30 * time.Second,
		inflight:    map[string]int{},
	}
}

// Fetch returns the value under key, calling fn when the cached value is
// missing, stale or invalidated.
func Fetch[T any](ctx context.Context, c *Client, key string, opts Options, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	e, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warnw("cache read failed", "key", key, "error", err)
	}
	if e.Fresh(c.now(), opts.StaleTime) {
		var v T
		if err := json.Unmarshal(e.Data, &v); err == nil {
			return v, nil
		}
		c.logger.Warnw("cache entry undecodable, refetching", "key", key)
	}

	// the shared load runs detached: one caller giving up must not fail the
	// others waiting on the same key
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(shared, c.loadTimeout)
		defer cancel()
		return c.load(lctx, key, opts, func(ctx context.Context) (any, error) { return fn(ctx) })
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return zero, res.Err
	}
	var v T
	if err := json.Unmarshal(res.Val.(json.RawMessage), &v); err != nil {
		return zero, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}

func (c *Client) load(ctx context.Context, key string, opts Options, fn func(context.Context) (any, error)) (json.RawMessage, error) {
	c.mu.Lock()
	c.inflight[key]++
	start := c.epoch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		if c.inflight[key]--; c.inflight[key] <= 0 {
			delete(c.inflight, key)
		}
		c.mu.Unlock()
	}()

	var val any
	b := retry.WithMaxRetries(opts.Retries, retry.NewExponential(c.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(err)
		}
		val = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(val)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}

	// check and write under one lock: forget takes c.mu too, so an
	// invalidation either lands before (and the write is skipped) or after
	// (and marks the written entry stale)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch == start {
		now := c.now()
		if err := c.store.Set(ctx, Entry{Key: key, Data: data, FetchedAt: now, ExpiresAt: now.Add(opts.GCTime)}); err != nil {
			c.logger.Warnw("cache write failed", "key", key, "error", err)
		}
	}
	return data, nil
}

// Peek returns the cached value under key even when stale. ok is false when
// nothing is cached.
func Peek[T any](ctx context.Context, c *Client, key string) (v T, ok bool, err error) {
	e, err := c.store.Get(ctx, key)
	if err != nil || e == nil {
		return v, false, err
	}
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return v, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, true, nil
}

// Set writes a fresh value under key.
func (c *Client) Set(ctx context.Context, key string, v any, gcTime time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.forget(func(k string) bool { return k == key })
	now := c.now()
	return c.store.Set(ctx, Entry{Key: key, Data: data, FetchedAt: now, ExpiresAt: now.Add(gcTime)})
}

// Remove drops key so it can no longer be read.
func (c *Client) Remove(ctx context.Context, key string) error {
	c.forget(func(k string) bool { return k == key })
	return c.store.Delete(ctx, key)
}

// InvalidatePrefix marks every key under prefix stale. Data stays readable
// through Peek until it is refetched or collected.
func (c *Client) InvalidatePrefix(ctx context.Context, prefix string) error {
	c.forget(func(k string) bool { return strings.HasPrefix(k, prefix) })
	return c.store.Invalidate(ctx, prefix)
}

// InvalidateKey marks exactly one key stale.
func (c *Client) InvalidateKey(ctx context.Context, key string) error {
	c.forget(func(k string) bool { return k == key })
	e, err := c.store.Get(ctx, key)
	if err != nil || e == nil {
		return err
	}
	e.Invalidated = true
	return c.store.Set(ctx, *e)
}

// forget detaches in-flight fetches for matching keys, so reads that start
// after a mutation never join a fetch that started before it.
func (c *Client) forget(match func(string) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	for k := range c.inflight {
		if match(k) {
			c.group.Forget(k)
		}
	}
}
