// File: internal/binance/client.go
// ============================================
package binance

import (
	"context"
	"fmt"
	"net/http"
	"time"

	binance_connector "github.com/binance/binance-connector-go"
	"github.com/shopspring/decimal"

	"crypto-signal-bot/pkg/types"
)

const (
	mainnetURL = "https://api.binance.com"
	testnetURL = "https://testnet.binance.vision"
)

// Client wraps the Binance connector for the public market data endpoints
// the bot reads. No signed endpoints are used.
type Client struct {
	conn *binance_connector.Client
}

func NewClient(apiKey, secretKey, baseURL string, testnet bool, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = mainnetURL
		if testnet {
			baseURL = testnetURL
		}
	}

	conn := binance_connector.NewClient(apiKey, secretKey, baseURL)
	conn.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{conn: conn}
}

// Get24hrTickers returns the rolling 24h statistics of every symbol
func (c *Client) Get24hrTickers(ctx context.Context) ([]types.Ticker, error) {
	raw, err := c.conn.NewTicker24hrService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: 24hr tickers: %w", err)
	}

	tickers := make([]types.Ticker, 0, len(raw))
	for _, t := range raw {
		if t == nil {
			continue
		}
		tickers = append(tickers, types.Ticker{
			Symbol:             t.Symbol,
			PriceChangePercent: parseFloat(t.PriceChangePercent),
			LastPrice:          parseFloat(t.LastPrice),
			Volume:             parseFloat(t.Volume),
			QuoteVolume:        parseFloat(t.QuoteVolume),
			TradeCount:         float64(t.Count),
		})
	}
	return tickers, nil
}

// GetKlines returns the most recent candles, oldest first
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]types.Kline, error) {
	raw, err := c.conn.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: klines %s %s: %w", symbol, interval, err)
	}

	klines := make([]types.Kline, 0, len(raw))
	for _, k := range raw {
		if k == nil {
			continue
		}
		klines = append(klines, types.Kline{
			OpenTime:  time.UnixMilli(int64(k.OpenTime)),
			Open:      parseFloat(k.Open),
			High:      parseFloat(k.High),
			Low:       parseFloat(k.Low),
			Close:     parseFloat(k.Close),
			Volume:    parseFloat(k.Volume),
			CloseTime: time.UnixMilli(int64(k.CloseTime)),
		})
	}
	return klines, nil
}

// parseFloat reads Binance's decimal strings; malformed values become 0
// which every consumer treats as "no data"
func parseFloat(s string) float64 {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}
