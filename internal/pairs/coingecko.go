// File: internal/pairs/coingecko.go
// ============================================
package pairs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"crypto-signal-bot/pkg/types"
)

const defaultCoinGeckoURL = "https://api.coingecko.com"

// CoinGeckoSource ranks Binance pairs using CoinGecko's exchange tickers
type CoinGeckoSource struct {
	baseURL string
	quote   string
	exclude map[string]bool
	client  *http.Client
}

func NewCoinGeckoSource(cfg types.PairsConfig, timeout time.Duration) *CoinGeckoSource {
	baseURL := cfg.CoinGeckoURL
	if baseURL == "" {
		baseURL = defaultCoinGeckoURL
	}

	exclude := make(map[string]bool, len(cfg.Exclude))
	for _, s := range cfg.Exclude {
		exclude[strings.ToUpper(strings.TrimSpace(s))] = true
	}

	return &CoinGeckoSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		quote:   strings.ToUpper(cfg.QuoteAsset),
		exclude: exclude,
		client:  &http.Client{Timeout: timeout},
	}
}

type coinGeckoTickers struct {
	Tickers []struct {
		Base            string `json:"base"`
		Target          string `json:"target"`
		ConvertedVolume struct {
			USD float64 `json:"usd"`
		} `json:"converted_volume"`
		IsStale bool `json:"is_stale"`
	} `json:"tickers"`
}

func (c *CoinGeckoSource) TopPairs(ctx context.Context, n int) ([]string, error) {
	url := c.baseURL + "/api/v3/exchanges/binance/tickers?include_exchange_logo=false&order=volume_desc"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("coingecko: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coingecko: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("coingecko: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var payload coinGeckoTickers
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("coingecko: decode response: %w", err)
	}

	type ranked struct {
		symbol string
		volume float64
	}
	var candidates []ranked
	seen := make(map[string]bool)
	for _, t := range payload.Tickers {
		if t.IsStale || strings.ToUpper(t.Target) != c.quote {
			continue
		}
		symbol := strings.ToUpper(t.Base) + c.quote
		if c.exclude[symbol] || seen[symbol] {
			continue
		}
		seen[symbol] = true
		candidates = append(candidates, ranked{symbol: symbol, volume: t.ConvertedVolume.USD})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].volume > candidates[j].volume
	})

	symbols := make([]string, 0, len(candidates))
	for _, r := range candidates {
		symbols = append(symbols, r.symbol)
	}
	return limit(symbols, n), nil
}
