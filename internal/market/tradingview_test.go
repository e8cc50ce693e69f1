package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-signal-bot/pkg/types"
)

func testMarketConfig(url string) types.MarketConfig {
	return types.MarketConfig{
		Provider:     "tradingview",
		Exchange:     "binance",
		Screener:     "crypto",
		ScannerURL:   url,
		FastMAColumn: "EMA10",
		SlowMAColumn: "EMA20",
	}
}

func TestTradingView_Fetch(t *testing.T) {
	var got scanRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/crypto/scan", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		// RSI and Stoch.D are null
		w.Write([]byte(`{"totalCount":1,"data":[{"s":"BINANCE:ABCUSDT","d":[
			100.5, null, 0.4, 0.1, 31.2, 110, 95, 2.5, 15, null, 101, 99, 90, 115, 0.7
		]}]}`))
	}))
	defer srv.Close()

	tv := NewTradingView(testMarketConfig(srv.URL), 5*time.Second)
	snap, err := tv.Fetch(context.Background(), "ABCUSDT", "15m")
	require.NoError(t, err)

	assert.Equal(t, []string{"BINANCE:ABCUSDT"}, got.Symbols.Tickers)
	require.Len(t, got.Columns, 15)
	assert.Equal(t, "close|15", got.Columns[0])
	assert.Equal(t, "EMA10|15", got.Columns[10])
	assert.Equal(t, "Recommend.All|15", got.Columns[14])

	assert.Equal(t, "ABCUSDT", snap.Symbol)
	assert.Equal(t, "15m", snap.Timeframe)

	price, ok := snap.Price()
	require.True(t, ok)
	assert.Equal(t, 100.5, price)

	_, ok = snap.Value(types.IndRSI)
	assert.False(t, ok, "null column is absent")
	_, ok = snap.Value(types.IndStochD)
	assert.False(t, ok)

	adx, ok := snap.Value(types.IndADX)
	require.True(t, ok)
	assert.Equal(t, 31.2, adx)

	fast, _ := snap.Value(types.IndMAFast)
	assert.Equal(t, 101.0, fast)
	support, _ := snap.Value(types.IndSupport)
	assert.Equal(t, 90.0, support)

	assert.Equal(t, types.RecStrongBuy, snap.Recommendation)
}

func TestTradingView_DailyHasNoSuffix(t *testing.T) {
	var got scanRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"data":[{"s":"BINANCE:ABCUSDT","d":[1]}]}`))
	}))
	defer srv.Close()

	snap, err := NewTradingView(testMarketConfig(srv.URL), time.Second).Fetch(context.Background(), "ABCUSDT", "1d")
	require.NoError(t, err)

	assert.Equal(t, "close", got.Columns[0])
	assert.Equal(t, types.RecUnknown, snap.Recommendation, "short row leaves the rest absent")
	assert.Len(t, snap.Values, 1)
}

func TestTradingView_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/crypto/scan":
			w.Write([]byte(`{"totalCount":0,"data":[]}`))
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	tv := NewTradingView(testMarketConfig(srv.URL), time.Second)

	_, err := tv.Fetch(context.Background(), "NOPEUSDT", "1h")
	assert.ErrorIs(t, err, ErrSymbolNotFound)

	_, err = tv.Fetch(context.Background(), "ABCUSDT", "7m")
	assert.ErrorContains(t, err, "unsupported timeframe")

	cfg := testMarketConfig(srv.URL)
	cfg.Screener = "other"
	_, err = NewTradingView(cfg, time.Second).Fetch(context.Background(), "ABCUSDT", "1h")
	assert.ErrorContains(t, err, "unexpected status 500")
}
