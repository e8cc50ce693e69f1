// File: internal/market/klines.go
// ============================================
package market

import (
	"context"
	"fmt"
	"time"

	"crypto-signal-bot/internal/strategy"
	"crypto-signal-bot/pkg/types"
)

// KlineSource is the part of the Binance client the klines provider needs
type KlineSource interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]types.Kline, error)
}

// Klines computes snapshots locally from exchange candles. It has no
// categorical recommendation, so that condition never fires.
type Klines struct {
	source  KlineSource
	limit   int
	fastEMA int
	slowEMA int
	now     func() time.Time
}

func NewKlines(source KlineSource, cfg types.MarketConfig) *Klines {
	return &Klines{
		source:  source,
		limit:   cfg.KlineLimit,
		fastEMA: cfg.FastEMAPeriod,
		slowEMA: cfg.SlowEMAPeriod,
		now:     time.Now,
	}
}

func (k *Klines) Fetch(ctx context.Context, symbol, timeframe string) (types.Snapshot, error) {
	klines, err := k.source.GetKlines(ctx, symbol, timeframe, k.limit)
	if err != nil {
		return types.Snapshot{}, err
	}
	if len(klines) == 0 {
		return types.Snapshot{}, fmt.Errorf("%w: no klines for %s %s", ErrSymbolNotFound, symbol, timeframe)
	}

	return types.Snapshot{
		Symbol:         symbol,
		Timeframe:      timeframe,
		Values:         k.Compute(klines),
		Recommendation: types.RecUnknown,
		FetchedAt:      k.now(),
	}, nil
}

// Compute derives every indicator the klines allow; the ones that need more
// history than available are left out
func (k *Klines) Compute(klines []types.Kline) map[types.Indicator]float64 {
	values := make(map[types.Indicator]float64)

	closes := make([]float64, len(klines))
	for i, kl := range klines {
		closes[i] = kl.Close
	}
	if last := closes[len(closes)-1]; last > 0 {
		values[types.IndClose] = last
	}

	set := func(ind types.Indicator, v float64, ok bool) {
		if ok {
			values[ind] = v
		}
	}

	rsi, ok := strategy.CalculateRSI(closes, 14)
	set(types.IndRSI, rsi, ok)

	if macd, signal, ok := strategy.CalculateMACD(closes, 12, 26, 9); ok {
		values[types.IndMACD] = macd
		values[types.IndMACDSignal] = signal
	}

	if upper, _, lower, ok := strategy.CalculateBollingerBands(closes, 20, 2.0); ok {
		values[types.IndBBUpper] = upper
		values[types.IndBBLower] = lower
	}

	atr, ok := strategy.CalculateATR(klines, 14)
	set(types.IndATR, atr, ok)

	adx, ok := strategy.CalculateADX(klines, 14)
	set(types.IndADX, adx, ok)

	obv, ok := strategy.CalculateOBV(klines)
	set(types.IndOBV, obv, ok)

	if stochK, stochD, ok := strategy.CalculateStochastic(klines, 14, 3); ok {
		values[types.IndStochK] = stochK
		values[types.IndStochD] = stochD
	}

	fast, ok := strategy.CalculateEMA(closes, k.fastEMA)
	set(types.IndMAFast, fast, ok)

	slow, ok := strategy.CalculateEMA(closes, k.slowEMA)
	set(types.IndMASlow, slow, ok)

	if support, resistance, ok := strategy.CalculateSupportResistance(klines, 20); ok {
		values[types.IndSupport] = support
		values[types.IndResistance] = resistance
	}

	return values
}
