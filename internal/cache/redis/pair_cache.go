// File: internal/cache/redis/pair_cache.go
// ============================================
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crypto-signal-bot/internal/pairs"

	"github.com/redis/go-redis/v9"
)

const pairsKey = "pairs:top"

// PairCache stores the pair ranking as a JSON string. The key outlives the
// freshness ttl so a stale ranking stays available as a fallback.
type PairCache struct {
	rdb    *redis.Client
	key    string
	expiry time.Duration
}

func NewPairCache(c *Client, ttl time.Duration) *PairCache {
	return &PairCache{
		rdb:    c.Underlying(),
		key:    c.key(pairsKey),
		expiry: 2 * ttl,
	}
}

func (pc *PairCache) Load(ctx context.Context) (pairs.Snapshot, error) {
	data, err := pc.rdb.Get(ctx, pc.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return pairs.Snapshot{}, pairs.ErrCacheMiss
		}
		return pairs.Snapshot{}, fmt.Errorf("redis: get pairs: %w", err)
	}

	var snap pairs.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return pairs.Snapshot{}, fmt.Errorf("redis: unmarshal pairs: %w", err)
	}
	return snap, nil
}

func (pc *PairCache) Store(ctx context.Context, snap pairs.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal pairs: %w", err)
	}
	if err := pc.rdb.Set(ctx, pc.key, data, pc.expiry).Err(); err != nil {
		return fmt.Errorf("redis: set pairs: %w", err)
	}
	return nil
}

var _ pairs.Cache = (*PairCache)(nil)
