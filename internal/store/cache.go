// Package store caches completed analyses in Redis so repeated requests
// for the same position skip the engine entirely.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dawikk/hubbridge/internal/engine"
)

const defaultTTL = 6 * time.Hour

// Key identifies one analysis: the variant, the compact wire position and
// the limits that produced it. Identical limits against an identical
// position always yield a reusable answer for a deterministic engine.
type Key struct {
	Variant  string
	Position string
	Limits   engine.Limits
}

// Analysis is the cached outcome of one search.
type Analysis struct {
	Move     string    `json:"move"`
	Ponder   string    `json:"ponder,omitempty"`
	Depth    int       `json:"depth,omitempty"`
	Score    float64   `json:"score,omitempty"`
	Nodes    int64     `json:"nodes,omitempty"`
	Duration float64   `json:"duration_sec,omitempty"`
	StoredAt time.Time `json:"stored_at"`
}

type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache connects to redisURL and verifies the connection.
func NewCache(redisURL string, ttl time.Duration) (*Cache, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis url required")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}, nil
}

func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *Cache) key(k Key) string {
	limits := fmt.Sprintf("d%d:n%d:t%g:i%t", k.Limits.Depth, k.Limits.Nodes, k.Limits.MoveTime, k.Limits.Infinite)
	sum := sha256.Sum256([]byte(k.Variant + "|" + k.Position + "|" + limits))
	return "hub:analysis:" + hex.EncodeToString(sum[:16])
}

// Put stores one analysis under its key with the cache TTL.
func (c *Cache) Put(ctx context.Context, k Key, a Analysis) error {
	if a.StoredAt.IsZero() {
		a.StoredAt = time.Now()
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(k), raw, c.ttl).Err()
}

// Get returns the cached analysis, or nil when the key is absent.
func (c *Cache) Get(ctx context.Context, k Key) (*Analysis, error) {
	raw, err := c.rdb.Get(ctx, c.key(k)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var a Analysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
