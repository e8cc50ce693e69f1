// File: internal/pairs/binance.go
// ============================================
package pairs

import (
	"context"
	"sort"
	"strings"

	"crypto-signal-bot/pkg/types"
)

// TickerSource is the part of the Binance client the ranking needs
type TickerSource interface {
	Get24hrTickers(ctx context.Context) ([]types.Ticker, error)
}

// BinanceSource ranks quote-asset pairs by 24h quote volume
type BinanceSource struct {
	client         TickerSource
	quote          string
	minQuoteVolume float64
	minTradeCount  float64
	exclude        map[string]bool
}

func NewBinanceSource(client TickerSource, cfg types.PairsConfig) *BinanceSource {
	exclude := make(map[string]bool, len(cfg.Exclude))
	for _, s := range cfg.Exclude {
		exclude[strings.ToUpper(strings.TrimSpace(s))] = true
	}

	return &BinanceSource{
		client:         client,
		quote:          strings.ToUpper(cfg.QuoteAsset),
		minQuoteVolume: cfg.MinQuoteVolume,
		minTradeCount:  cfg.MinTradeCount,
		exclude:        exclude,
	}
}

func (b *BinanceSource) TopPairs(ctx context.Context, n int) ([]string, error) {
	tickers, err := b.client.Get24hrTickers(ctx)
	if err != nil {
		return nil, err
	}

	var eligible []types.Ticker
	for _, t := range tickers {
		if !b.eligible(t) {
			continue
		}
		eligible = append(eligible, t)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].QuoteVolume > eligible[j].QuoteVolume
	})

	symbols := make([]string, 0, len(eligible))
	for _, t := range eligible {
		symbols = append(symbols, t.Symbol)
	}
	return limit(symbols, n), nil
}

func (b *BinanceSource) eligible(t types.Ticker) bool {
	if !strings.HasSuffix(t.Symbol, b.quote) || len(t.Symbol) <= len(b.quote) {
		return false
	}
	if b.exclude[t.Symbol] {
		return false
	}
	if t.QuoteVolume < b.minQuoteVolume {
		return false
	}
	return t.TradeCount >= b.minTradeCount
}
