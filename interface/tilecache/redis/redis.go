// Package redis caches the compressed tiles of a store in redis.
// The tiles are immutable once committed, so that the cache is never invalidated: the entries only expire.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/airbusgeo/coverstore/interface/database"
	"github.com/airbusgeo/coverstore/internal/coverage"
	"github.com/airbusgeo/coverstore/internal/log"
	"github.com/airbusgeo/coverstore/internal/metrics"
	"github.com/airbusgeo/coverstore/internal/tiling"
	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultTTL of the cached tiles
const DefaultTTL = time.Hour

type Option func(b *Backend)

// WithTTL sets the expiration of the cached tiles (0: no expiration)
func WithTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		b.ttl = ttl
	}
}

// WithNamespace prefixes the keys, to share a redis between several stores
func WithNamespace(ns string) Option {
	return func(b *Backend) {
		b.namespace = ns
	}
}

// Backend is a database.RasterDBBackend reading the tile data through the cache.
// The transactions are not cached.
type Backend struct {
	database.RasterDBBackend
	rdb       redis.UniversalClient
	namespace string
	ttl       time.Duration
}

var _ database.RasterDBBackend = &Backend{}

// Connect to redis
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// New wraps the backend
func New(db database.RasterDBBackend, rdb redis.UniversalClient, opts ...Option) *Backend {
	b := &Backend{
		RasterDBBackend: db,
		rdb:             rdb,
		namespace:       "coverstore",
		ttl:             DefaultTTL,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// key of a tile. The coverage name is hashed to bound the length of the key.
func (b *Backend) key(cov string, id int64) string {
	return b.namespace + ":" + strconv.FormatUint(xxhash.Sum64String(cov), 16) + ":" + strconv.FormatInt(id, 10)
}

// ReadTileData implements tiling.TileStore, reading the missing tiles from the store.
// Redis failures are logged and the tiles are read from the store.
func (b *Backend) ReadTileData(ctx context.Context, cov string, ids []int64) (map[int64][]byte, error) {
	if len(ids) == 0 {
		return map[int64][]byte{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = b.key(cov, id)
	}
	res := make(map[int64][]byte, len(ids))
	vals, err := b.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		log.Logger(ctx).Warn("tile cache unavailable", zap.String("coverage", cov), zap.Error(err))
		metrics.ObserveTileCache(metrics.CacheError, len(ids))
		vals = nil
	}
	var missing []int64
	for i, id := range ids {
		if i < len(vals) {
			if s, ok := vals[i].(string); ok {
				res[id] = []byte(s)
				continue
			}
		}
		missing = append(missing, id)
	}
	if err == nil {
		metrics.ObserveTileCache(metrics.CacheHit, len(res))
		metrics.ObserveTileCache(metrics.CacheMiss, len(missing))
	}
	if len(missing) == 0 {
		return res, nil
	}

	blobs, err := b.RasterDBBackend.ReadTileData(ctx, cov, missing)
	if err != nil {
		return nil, err
	}
	pipe := b.rdb.Pipeline()
	for id, blob := range blobs {
		res[id] = blob
		pipe.Set(ctx, b.key(cov, id), blob, b.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Logger(ctx).Warn("failed to cache the tiles", zap.String("coverage", cov), zap.Error(err))
	}
	return res, nil
}

// ReadRawRaster implements database.RasterBackend, decoding the tiles read through the cache
func (b *Backend) ReadRawRaster(ctx context.Context, cov *coverage.Coverage, req coverage.WindowRequest) ([]byte, error) {
	return tiling.ReadWindow(ctx, b, cov, req)
}
