package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/domain"
)

const (
	forecastKeyPrefix     = "forecast:predictions"
	forecastScanBatchSize = 100
)

// ForecastKey identifies one cached prediction series. SnapshotDate ties the
// entry to the data it was computed from, so a new snapshot never reads a
// stale forecast.
type ForecastKey struct {
	ProductID    string
	Horizon      int
	SnapshotDate time.Time
}

type ForecastCache interface {
	GetPredictions(ctx context.Context, key ForecastKey) ([]domain.PredictionPoint, bool, error)
	SetPredictions(ctx context.Context, key ForecastKey, points []domain.PredictionPoint) error
	InvalidateProduct(ctx context.Context, productID string) error
	InvalidateAll(ctx context.Context) error
}

type redisForecastCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopForecastCache struct{}

// NewForecastCache connects to redis when caching is enabled and otherwise
// returns a cache that never hits.
func NewForecastCache(ctx context.Context, cfg config.CacheConfig) (ForecastCache, error) {
	if !cfg.Enabled {
		return &noopForecastCache{}, nil
	}

	client, ttl, err := newRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &redisForecastCache{
		client: client,
		ttl:    ttl,
	}, nil
}

// NewRedisForecastCache wraps an existing client.
func NewRedisForecastCache(client *redis.Client, ttl time.Duration) ForecastCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisForecastCache{client: client, ttl: ttl}
}

func NewNoopForecastCache() ForecastCache {
	return &noopForecastCache{}
}

func (c *redisForecastCache) GetPredictions(ctx context.Context, key ForecastKey) ([]domain.PredictionPoint, bool, error) {
	payload, err := c.client.Get(ctx, buildForecastKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var points []domain.PredictionPoint
	if err := json.Unmarshal(payload, &points); err != nil {
		return nil, false, fmt.Errorf("decode forecast cache: %w", err)
	}

	return points, true, nil
}

func (c *redisForecastCache) SetPredictions(ctx context.Context, key ForecastKey, points []domain.PredictionPoint) error {
	payload, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("encode forecast cache: %w", err)
	}

	if err := c.client.Set(ctx, buildForecastKey(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisForecastCache) InvalidateProduct(ctx context.Context, productID string) error {
	return c.deleteSeries(ctx, productKeyPrefix(productID))
}

func (c *redisForecastCache) InvalidateAll(ctx context.Context) error {
	return c.deleteSeries(ctx, forecastKeyPrefix+":")
}

// deleteSeries removes every cached series under prefix. prefix always ends
// at a key separator so one product never matches another. The scan finishes
// before the first delete.
func (c *redisForecastCache) deleteSeries(ctx context.Context, prefix string) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, prefix+"*", forecastScanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}

	for start := 0; start < len(keys); start += forecastScanBatchSize {
		end := min(start+forecastScanBatchSize, len(keys))
		if err := c.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("redis delete failed: %w", err)
		}
	}
	return nil
}

func (n *noopForecastCache) GetPredictions(ctx context.Context, key ForecastKey) ([]domain.PredictionPoint, bool, error) {
	return nil, false, nil
}

func (n *noopForecastCache) SetPredictions(ctx context.Context, key ForecastKey, points []domain.PredictionPoint) error {
	return nil
}

func (n *noopForecastCache) InvalidateProduct(ctx context.Context, productID string) error {
	return nil
}

func (n *noopForecastCache) InvalidateAll(ctx context.Context) error {
	return nil
}

// productKeyPrefix hashes the product id so arbitrary ids cannot inject glob
// characters into SCAN patterns.
func productKeyPrefix(productID string) string {
	sum := sha1.Sum([]byte(productID))
	return fmt.Sprintf("%s:%s:", forecastKeyPrefix, hex.EncodeToString(sum[:]))
}

func buildForecastKey(key ForecastKey) string {
	return productKeyPrefix(key.ProductID) +
		strconv.Itoa(key.Horizon) + ":" +
		key.SnapshotDate.UTC().Format("20060102")
}
