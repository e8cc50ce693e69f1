// File: internal/market/provider.go
// ============================================
package market

import (
	"context"
	"errors"
	"fmt"

	"crypto-signal-bot/pkg/types"
)

var (
	ErrSymbolNotFound     = errors.New("market: symbol not found")
	ErrIncompleteSnapshot = errors.New("market: snapshot has no price")
)

// Provider returns the indicator snapshot of a symbol on a timeframe
type Provider interface {
	Fetch(ctx context.Context, symbol, timeframe string) (types.Snapshot, error)
}

// FetchAll fetches one snapshot per timeframe. Any failure fails the whole
// set: a symbol is scored on complete inputs or skipped.
func FetchAll(ctx context.Context, p Provider, symbol string, timeframes []string) ([]types.Snapshot, error) {
	snaps := make([]types.Snapshot, 0, len(timeframes))
	for _, tf := range timeframes {
		snap, err := p.Fetch(ctx, symbol, tf)
		if err != nil {
			return nil, err
		}
		if _, ok := snap.Price(); !ok {
			return nil, fmt.Errorf("%w: %s %s", ErrIncompleteSnapshot, symbol, tf)
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}
