// File: internal/market/tradingview.go
// ============================================
package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crypto-signal-bot/pkg/types"
)

const defaultScannerURL = "https://scanner.tradingview.com"

// interval suffixes understood by the scanner; daily has none
var tvIntervals = map[string]string{
	"1m":  "|1",
	"5m":  "|5",
	"15m": "|15",
	"30m": "|30",
	"1h":  "|60",
	"2h":  "|120",
	"4h":  "|240",
	"1d":  "",
	"1w":  "|1W",
	"1M":  "|1M",
}

const recommendColumn = "Recommend.All"

// TradingView reads indicator snapshots from the TradingView scanner
type TradingView struct {
	baseURL  string
	exchange string
	screener string
	columns  []tvColumn
	client   *http.Client
	now      func() time.Time
}

type tvColumn struct {
	name      string
	indicator types.Indicator
}

func NewTradingView(cfg types.MarketConfig, timeout time.Duration) *TradingView {
	baseURL := cfg.ScannerURL
	if baseURL == "" {
		baseURL = defaultScannerURL
	}

	return &TradingView{
		baseURL:  strings.TrimRight(baseURL, "/"),
		exchange: strings.ToUpper(cfg.Exchange),
		screener: strings.ToLower(cfg.Screener),
		columns: []tvColumn{
			{"close", types.IndClose},
			{"RSI", types.IndRSI},
			{"MACD.macd", types.IndMACD},
			{"MACD.signal", types.IndMACDSignal},
			{"ADX", types.IndADX},
			{"BB.upper", types.IndBBUpper},
			{"BB.lower", types.IndBBLower},
			{"ATR", types.IndATR},
			{"Stoch.K", types.IndStochK},
			{"Stoch.D", types.IndStochD},
			{cfg.FastMAColumn, types.IndMAFast},
			{cfg.SlowMAColumn, types.IndMASlow},
			{"Pivot.M.Classic.S1", types.IndSupport},
			{"Pivot.M.Classic.R1", types.IndResistance},
		},
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

type scanRequest struct {
	Symbols struct {
		Tickers []string `json:"tickers"`
		Query   struct {
			Types []string `json:"types"`
		} `json:"query"`
	} `json:"symbols"`
	Columns []string `json:"columns"`
}

type scanResponse struct {
	Data []struct {
		Symbol string     `json:"s"`
		Values []*float64 `json:"d"`
	} `json:"data"`
	TotalCount int `json:"totalCount"`
}

func (tv *TradingView) Fetch(ctx context.Context, symbol, timeframe string) (types.Snapshot, error) {
	suffix, ok := tvIntervals[timeframe]
	if !ok {
		return types.Snapshot{}, fmt.Errorf("tradingview: unsupported timeframe %q", timeframe)
	}

	var req scanRequest
	req.Symbols.Tickers = []string{tv.exchange + ":" + symbol}
	req.Symbols.Query.Types = []string{}
	for _, c := range tv.columns {
		req.Columns = append(req.Columns, c.name+suffix)
	}
	req.Columns = append(req.Columns, recommendColumn+suffix)

	body, err := json.Marshal(req)
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("tradingview: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/scan", tv.baseURL, tv.screener)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("tradingview: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := tv.client.Do(httpReq)
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("tradingview: %s %s: %w", symbol, timeframe, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return types.Snapshot{}, fmt.Errorf("tradingview: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var scan scanResponse
	if err := json.NewDecoder(resp.Body).Decode(&scan); err != nil {
		return types.Snapshot{}, fmt.Errorf("tradingview: decode response: %w", err)
	}
	if len(scan.Data) == 0 {
		return types.Snapshot{}, fmt.Errorf("%w: %s on %s", ErrSymbolNotFound, symbol, tv.exchange)
	}

	values := scan.Data[0].Values
	snap := types.Snapshot{
		Symbol:         symbol,
		Timeframe:      timeframe,
		Values:         make(map[types.Indicator]float64, len(tv.columns)),
		Recommendation: types.RecUnknown,
		FetchedAt:      tv.now(),
	}

	for i, c := range tv.columns {
		if i < len(values) && values[i] != nil {
			snap.Values[c.indicator] = *values[i]
		}
	}

	recIdx := len(tv.columns)
	if recIdx < len(values) && values[recIdx] != nil {
		snap.Recommendation = types.RecommendationFromScore(*values[recIdx])
	}

	return snap, nil
}
