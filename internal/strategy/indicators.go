// File: internal/strategy/indicators.go
// ============================================
package strategy

import (
	"math"

	"crypto-signal-bot/pkg/types"
)

// Every calculation returns ok=false when there is not enough data

// CalculateRSI - Relative Strength Index with Wilder's smoothing
func CalculateRSI(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period+1 {
		return 0, false
	}

	avgGain := 0.0
	avgLoss := 0.0
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, true // no movement
		}
		return 100, true
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}

// CalculateSMA - Simple Moving Average of the last period values
func CalculateSMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}

	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), true
}

// EMASeries returns the EMA for every index from period-1 onwards
func EMASeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	multiplier := 2.0 / float64(period+1)
	seed, _ := CalculateSMA(values[:period], period)

	series := make([]float64, 0, len(values)-period+1)
	series = append(series, seed)
	ema := seed
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		series = append(series, ema)
	}
	return series
}

// CalculateEMA - Exponential Moving Average seeded with an SMA
func CalculateEMA(values []float64, period int) (float64, bool) {
	series := EMASeries(values, period)
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1], true
}

// CalculateMACD - 12/26 EMA difference and its 9 period signal line
func CalculateMACD(prices []float64, fast, slow, signalPeriod int) (macd, signal float64, ok bool) {
	if fast <= 0 || slow <= fast || len(prices) < slow+signalPeriod-1 {
		return 0, 0, false
	}

	fastSeries := EMASeries(prices, fast)
	slowSeries := EMASeries(prices, slow)

	// align both series on the same candle
	offset := slow - fast
	macdLine := make([]float64, len(slowSeries))
	for i := range slowSeries {
		macdLine[i] = fastSeries[i+offset] - slowSeries[i]
	}

	signal, ok = CalculateEMA(macdLine, signalPeriod)
	if !ok {
		return 0, 0, false
	}
	return macdLine[len(macdLine)-1], signal, true
}

// CalculateBollingerBands - Returns upper, middle, lower bands
func CalculateBollingerBands(prices []float64, period int, stdDev float64) (upper, middle, lower float64, ok bool) {
	middle, ok = CalculateSMA(prices, period)
	if !ok {
		return 0, 0, 0, false
	}

	variance := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		variance += math.Pow(prices[i]-middle, 2)
	}
	stdDeviation := math.Sqrt(variance / float64(period))

	upper = middle + (stdDev * stdDeviation)
	lower = middle - (stdDev * stdDeviation)
	return upper, middle, lower, true
}

func trueRange(cur, prev types.Kline) float64 {
	highLow := cur.High - cur.Low
	highClose := math.Abs(cur.High - prev.Close)
	lowClose := math.Abs(cur.Low - prev.Close)
	return math.Max(highLow, math.Max(highClose, lowClose))
}

// CalculateATR - Average True Range (volatility indicator)
func CalculateATR(klines []types.Kline, period int) (float64, bool) {
	if period <= 0 || len(klines) < period+1 {
		return 0, false
	}

	trueRanges := make([]float64, 0, len(klines)-1)
	for i := 1; i < len(klines); i++ {
		trueRanges = append(trueRanges, trueRange(klines[i], klines[i-1]))
	}

	return CalculateSMA(trueRanges, period)
}

// CalculateStochastic - %K over period candles, %D is the SMA of the last
// dPeriod %K values
func CalculateStochastic(klines []types.Kline, period, dPeriod int) (k, d float64, ok bool) {
	if period <= 0 || dPeriod <= 0 || len(klines) < period+dPeriod-1 {
		return 0, 0, false
	}

	ks := make([]float64, 0, dPeriod)
	for end := len(klines) - dPeriod + 1; end <= len(klines); end++ {
		window := klines[end-period : end]

		high := window[0].High
		low := window[0].Low
		for _, kline := range window {
			high = math.Max(high, kline.High)
			low = math.Min(low, kline.Low)
		}

		if high-low == 0 {
			return 0, 0, false
		}
		ks = append(ks, (window[len(window)-1].Close-low)/(high-low)*100)
	}

	d, _ = CalculateSMA(ks, dPeriod)
	return ks[len(ks)-1], d, true
}

// CalculateADX - Average Directional Index using Wilder's DMI
func CalculateADX(klines []types.Kline, period int) (float64, bool) {
	if period <= 0 || len(klines) < 2*period+1 {
		return 0, false
	}

	n := len(klines) - 1
	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)

	for i := 1; i < len(klines); i++ {
		up := klines[i].High - klines[i-1].High
		down := klines[i-1].Low - klines[i].Low
		if up > down && up > 0 {
			plusDM[i-1] = up
		}
		if down > up && down > 0 {
			minusDM[i-1] = down
		}
		tr[i-1] = trueRange(klines[i], klines[i-1])
	}

	smoothTR, smoothPlus, smoothMinus := 0.0, 0.0, 0.0
	for i := 0; i < period; i++ {
		smoothTR += tr[i]
		smoothPlus += plusDM[i]
		smoothMinus += minusDM[i]
	}

	dx := func() float64 {
		if smoothTR == 0 {
			return 0
		}
		plusDI := 100 * smoothPlus / smoothTR
		minusDI := 100 * smoothMinus / smoothTR
		if plusDI+minusDI == 0 {
			return 0
		}
		return 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
	}

	dxs := []float64{dx()}
	for i := period; i < n; i++ {
		smoothTR = smoothTR - smoothTR/float64(period) + tr[i]
		smoothPlus = smoothPlus - smoothPlus/float64(period) + plusDM[i]
		smoothMinus = smoothMinus - smoothMinus/float64(period) + minusDM[i]
		dxs = append(dxs, dx())
	}

	if len(dxs) < period {
		return 0, false
	}

	adx, _ := CalculateSMA(dxs[:period], period)
	for i := period; i < len(dxs); i++ {
		adx = (adx*float64(period-1) + dxs[i]) / float64(period)
	}
	return adx, true
}

// CalculateOBV - On Balance Volume accumulated over the whole window
func CalculateOBV(klines []types.Kline) (float64, bool) {
	if len(klines) < 2 {
		return 0, false
	}

	obv := 0.0
	for i := 1; i < len(klines); i++ {
		switch {
		case klines[i].Close > klines[i-1].Close:
			obv += klines[i].Volume
		case klines[i].Close < klines[i-1].Close:
			obv -= klines[i].Volume
		}
	}
	return obv, true
}

// CalculateSupportResistance - lowest low and highest high of the last
// lookback candles
func CalculateSupportResistance(klines []types.Kline, lookback int) (support, resistance float64, ok bool) {
	if lookback <= 0 || len(klines) < lookback {
		return 0, 0, false
	}

	recent := klines[len(klines)-lookback:]
	support = recent[0].Low
	resistance = recent[0].High

	for _, k := range recent {
		if k.Low < support {
			support = k.Low
		}
		if k.High > resistance {
			resistance = k.High
		}
	}
	return support, resistance, true
}
