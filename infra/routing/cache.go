package routing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/civigrid/evacd/core/cost"
	"github.com/civigrid/evacd/core/dispatch"
	"github.com/civigrid/evacd/core/geo"
	"github.com/civigrid/evacd/infra/logger"
)

// CacheConfig holds the Redis connection and entry lifetime.
type CacheConfig struct {
	Addr     string        `json:"addr" yaml:"addr"`
	Password string        `json:"password" yaml:"password"`
	DB       int           `json:"db" yaml:"db"`
	TTL      time.Duration `json:"ttl" yaml:"ttl"`
}

// CachedMatrixProvider memoizes matrix results in Redis, keyed by the
// coordinate sets. Cache failures fall through to the inner provider; a
// broken cache only costs latency.
type CachedMatrixProvider struct {
	inner dispatch.MatrixProvider
	rdb   *redis.Client
	ttl   time.Duration
	log   logger.Logger
}

// NewCachedMatrixProvider wraps the inner provider with a Redis cache.
func NewCachedMatrixProvider(inner dispatch.MatrixProvider, cfg CacheConfig) *CachedMatrixProvider {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	return &CachedMatrixProvider{
		inner: inner,
		rdb: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl: cfg.TTL,
		log: logger.New("matrix-cache"),
	}
}

type cachedMatrix struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// TravelTimes serves the matrix from cache when present, otherwise asks the
// inner provider and stores the result.
func (c *CachedMatrixProvider) TravelTimes(ctx context.Context, origins, dests []geo.Point) (*cost.Matrix, error) {
	key := matrixKey(origins, dests)

	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var cm cachedMatrix
		if err := json.Unmarshal(raw, &cm); err == nil && len(cm.Data) == cm.Rows*cm.Cols {
			if m := cost.New(cm.Rows, cm.Cols, cm.Data); m != nil {
				return m, nil
			}
		}
		c.log.Warnf("discarding corrupt cache entry %s", key)
	} else if err != redis.Nil {
		c.log.Warnf("cache read failed: %v", err)
	}

	m, err := c.inner.TravelTimes(ctx, origins, dests)
	if err != nil {
		return nil, err
	}

	rows, cols := m.Dims()
	raw, err := json.Marshal(cachedMatrix{Rows: rows, Cols: cols, Data: m.Raw()})
	if err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.log.Warnf("cache write failed: %v", err)
		}
	}
	return m, nil
}

// Close releases the Redis connection.
func (c *CachedMatrixProvider) Close() error { return c.rdb.Close() }

func matrixKey(origins, dests []geo.Point) string {
	h := sha256.New()
	for _, p := range origins {
		fmt.Fprintf(h, "o:%f,%f;", p.Lon, p.Lat)
	}
	for _, p := range dests {
		fmt.Fprintf(h, "d:%f,%f;", p.Lon, p.Lat)
	}
	return "evacd:matrix:" + hex.EncodeToString(h.Sum(nil))
}
