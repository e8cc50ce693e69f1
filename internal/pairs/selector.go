// File: internal/pairs/selector.go
// ============================================
package pairs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Selector returns tradable symbols ranked by liquidity, best first
type Selector interface {
	TopPairs(ctx context.Context, n int) ([]string, error)
}

// Snapshot is a cached ranking. Requested is the n it was fetched for,
// 0 meaning no limit.
type Snapshot struct {
	Symbols   []string  `json:"symbols"`
	Requested int       `json:"requested,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// covers reports whether the ranking answers a request for n symbols. A
// ranking shorter than n still does when it was fetched for at least n.
func (s Snapshot) covers(n int) bool {
	if n <= 0 {
		return s.Requested <= 0
	}
	return len(s.Symbols) >= n || s.Requested <= 0 || s.Requested >= n
}

// ErrCacheMiss is returned by a Cache that holds nothing yet
var ErrCacheMiss = errors.New("pairs: cache miss")

type Cache interface {
	Load(ctx context.Context) (Snapshot, error)
	Store(ctx context.Context, snap Snapshot) error
}

// StaticSource returns a fixed, configured list
type StaticSource struct {
	Symbols []string
}

func (s StaticSource) TopPairs(_ context.Context, n int) ([]string, error) {
	return limit(s.Symbols, n), nil
}

// Cached serves rankings from a cache until they are older than ttl. A stale
// entry is still used when the source fails.
type Cached struct {
	source Selector
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewCached(source Selector, cache Cache, ttl time.Duration, logger *slog.Logger) *Cached {
	return &Cached{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "pairs_cache")),
		now:    time.Now,
	}
}

func (c *Cached) TopPairs(ctx context.Context, n int) ([]string, error) {
	cached, cacheErr := c.cache.Load(ctx)
	if cacheErr != nil && !errors.Is(cacheErr, ErrCacheMiss) {
		c.logger.Warn("pair cache unreadable", slog.String("error", cacheErr.Error()))
	}

	hasCached := cacheErr == nil && len(cached.Symbols) > 0
	if hasCached && c.now().Sub(cached.FetchedAt) < c.ttl && cached.covers(n) {
		c.logger.Debug("pair cache hit",
			slog.Int("count", len(cached.Symbols)),
			slog.Time("fetched_at", cached.FetchedAt),
		)
		return limit(cached.Symbols, n), nil
	}

	symbols, err := c.source.TopPairs(ctx, n)
	if err != nil {
		if hasCached {
			c.logger.Warn("pair source failed, using stale cache",
				slog.String("error", err.Error()),
				slog.Time("fetched_at", cached.FetchedAt),
			)
			return limit(cached.Symbols, n), nil
		}
		return nil, fmt.Errorf("pairs: fetch: %w", err)
	}

	if err := c.cache.Store(ctx, Snapshot{Symbols: symbols, Requested: max(n, 0), FetchedAt: c.now()}); err != nil {
		c.logger.Warn("pair cache write failed", slog.String("error", err.Error()))
	}
	return symbols, nil
}

func limit(symbols []string, n int) []string {
	if n <= 0 || len(symbols) <= n {
		return append([]string(nil), symbols...)
	}
	return append([]string(nil), symbols[:n]...)
}
