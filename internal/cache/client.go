// Package cache is the discovery cache: a thin layer over Redis that never
// lets a cache problem reach the caller.  Reads that fail for any reason are
// misses, writes and invalidations that fail are logged and counted.  The
// relational store stays the source of truth; everything here is disposable.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/iliyamo/localmarket/internal/metrics"
)

// Options tune a Client.  Zero values get sane defaults.
type Options struct {
	Prefix       string        // namespace prepended to every key as "<prefix>:"
	WriteTimeout time.Duration // bound for detached writes
	FetchTimeout time.Duration // bound for a shared cache-aside fetch
	ScanCount    int64         // SCAN COUNT hint for pattern deletes
	Logger       zerolog.Logger
}

// Client wraps a Redis client.  A Client built with a nil *redis.Client is
// valid: reads miss and writes are dropped.
type Client struct {
	rdb          *redis.Client
	prefix       string
	writeTimeout time.Duration
	fetchTimeout time.Duration
	scanCount    int64
	log          zerolog.Logger

	flight  singleflight.Group
	pending sync.WaitGroup
}

// NewClient constructs a Client.  Construct one per process and share it.
func NewClient(rdb *redis.Client, opts Options) *Client {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 2 * time.Second
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.ScanCount <= 0 {
		opts.ScanCount = 200
	}
	return &Client{
		rdb:          rdb,
		prefix:       opts.Prefix,
		writeTimeout: opts.WriteTimeout,
		fetchTimeout: opts.FetchTimeout,
		scanCount:    opts.ScanCount,
		log:          opts.Logger.With().Str("component", "cache").Logger(),
	}
}

// Enabled reports whether a Redis connection backs the client.
func (c *Client) Enabled() bool { return c.rdb != nil }

func (c *Client) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

// GetJSON loads key into dest.  It returns false on a miss and on any
// connection or decoding error.
func (c *Client) GetJSON(ctx context.Context, key string, dest any) bool {
	if c.rdb == nil {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return false
	}
	bs, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return false
	case err != nil:
		metrics.CacheRequests.WithLabelValues("error").Inc()
		c.log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		return false
	}
	if err := json.Unmarshal(bs, dest); err != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		c.log.Warn().Err(err).Str("key", key).Msg("cache entry undecodable")
		return false
	}
	metrics.CacheRequests.WithLabelValues("hit").Inc()
	return true
}

// Set stores value under key for ttl.  Failures are logged, never returned.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c.rdb == nil {
		return
	}
	bs, err := json.Marshal(value)
	if err != nil {
		c.writeFailed(err, key, "cache value not serializable")
		return
	}
	c.store(ctx, key, bs, ttl)
}

// SetDetached is Set without waiting.  The value is serialized before
// returning, so the caller may keep using it; the write itself runs on its
// own goroutine under WriteTimeout and survives cancellation of ctx.
func (c *Client) SetDetached(ctx context.Context, key string, value any, ttl time.Duration) {
	if c.rdb == nil {
		return
	}
	bs, err := json.Marshal(value)
	if err != nil {
		c.writeFailed(err, key, "cache value not serializable")
		return
	}
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.writeTimeout)
		defer cancel()
		c.store(wctx, key, bs, ttl)
	}()
}

func (c *Client) store(ctx context.Context, key string, bs []byte, ttl time.Duration) {
	if err := c.rdb.Set(ctx, c.key(key), bs, ttl).Err(); err != nil {
		c.writeFailed(err, key, "cache set failed")
	}
}

// Wait blocks until every detached write has finished.
func (c *Client) Wait() { c.pending.Wait() }

// Delete removes keys.
func (c *Client) Delete(ctx context.Context, keys ...string) {
	if c.rdb == nil || len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	if err := c.rdb.Del(ctx, full...).Err(); err != nil {
		c.writeFailed(err, keys[0], "cache delete failed")
	}
}

// DeleteByPattern removes every key matching the glob pattern and returns
// how many were removed before any error stopped the scan.
func (c *Client) DeleteByPattern(ctx context.Context, pattern string) int {
	if c.rdb == nil {
		return 0
	}
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, c.key(pattern), c.scanCount).Result()
		if err != nil {
			c.writeFailed(err, pattern, "cache scan failed")
			return removed
		}
		if len(keys) > 0 {
			if err := c.rdb.Unlink(ctx, keys...).Err(); err != nil {
				c.writeFailed(err, pattern, "cache unlink failed")
				return removed
			}
			removed += len(keys)
		}
		if next == 0 {
			return removed
		}
		cursor = next
	}
}

func (c *Client) writeFailed(err error, key, msg string) {
	metrics.CacheWriteFailures.Inc()
	c.log.Warn().Err(err).Str("key", key).Msg(msg)
}

// CacheAside returns the cached value for key or, on a miss, the result of
// fetch.  A fetched value is written back detached and returned whether or
// not that write succeeds.  Concurrent misses on the same key share a single
// fetch.  The shared fetch runs detached from the caller that started it,
// bounded by the fetch timeout; a caller whose ctx ends stops waiting and
// gets ctx.Err() while the others keep theirs.  Fetch errors are returned
// as is and nothing is cached.
func CacheAside[T any](ctx context.Context, c *Client, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var cached T
	if c.GetJSON(ctx, key, &cached) {
		return cached, nil
	}
	ch := c.flight.DoChan(key, func() (any, error) {
		// detached from the caller that happened to start the flight
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		val, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		c.SetDetached(fctx, key, val, ttl)
		return val, nil
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			var zero T
			return zero, r.Err
		}
		return r.Val.(T), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
