// File: internal/strategy/scoring.go
// ============================================
package strategy

import (
	"fmt"

	"crypto-signal-bot/pkg/types"
)

// Condition names, also used as keys of strategy.weights in the config
const (
	CondMATrend        = "ma_trend"
	CondRSI            = "rsi"
	CondMACD           = "macd"
	CondBollinger      = "bollinger"
	CondADX            = "adx"
	CondOBV            = "obv"
	CondRecommendation = "recommendation"
	CondStochastic     = "stochastic"
)

// check evaluates one side of a condition. It returns a short description
// when satisfied. Missing inputs must yield ok=false.
type check func(s types.Snapshot, p types.TimeframeProfile) (string, bool)

type condition struct {
	name string
	buy  check
	sell check
}

type Engine struct {
	config     types.StrategyConfig
	conditions []condition
}

func NewEngine(config types.StrategyConfig) *Engine {
	e := &Engine{config: config}
	e.conditions = []condition{
		{
			name: CondMATrend,
			buy:  compareIndicators(types.IndMAFast, types.IndMASlow, greater, "MA fast %.6g > slow %.6g"),
			sell: compareIndicators(types.IndMAFast, types.IndMASlow, less, "MA fast %.6g < slow %.6g"),
		},
		{
			name: CondRSI,
			buy: func(s types.Snapshot, p types.TimeframeProfile) (string, bool) {
				return compareThreshold(s, types.IndRSI, p.RSIBuyBelow, less, "RSI %.1f < %.0f")
			},
			sell: func(s types.Snapshot, p types.TimeframeProfile) (string, bool) {
				return compareThreshold(s, types.IndRSI, p.RSISellAbove, greater, "RSI %.1f > %.0f")
			},
		},
		{
			name: CondMACD,
			buy:  compareIndicators(types.IndMACD, types.IndMACDSignal, greater, "MACD %.6g above signal %.6g"),
			sell: compareIndicators(types.IndMACD, types.IndMACDSignal, less, "MACD %.6g below signal %.6g"),
		},
		{
			name: CondBollinger,
			buy:  compareIndicators(types.IndClose, types.IndBBLower, atOrBelow, "price %.6g at/below lower band %.6g"),
			sell: compareIndicators(types.IndClose, types.IndBBUpper, atOrAbove, "price %.6g at/above upper band %.6g"),
		},
		{
			name: CondADX,
			buy:  e.adxCheck,
			sell: e.adxCheck,
		},
		{
			name: CondOBV,
			buy: func(s types.Snapshot, _ types.TimeframeProfile) (string, bool) {
				return compareThreshold(s, types.IndOBV, 0, greater, "OBV %.6g > %.0f")
			},
			sell: func(s types.Snapshot, _ types.TimeframeProfile) (string, bool) {
				return compareThreshold(s, types.IndOBV, 0, less, "OBV %.6g < %.0f")
			},
		},
		{
			name: CondRecommendation,
			buy: func(s types.Snapshot, _ types.TimeframeProfile) (string, bool) {
				return "recommendation " + string(s.Recommendation), s.Recommendation.IsBuy()
			},
			sell: func(s types.Snapshot, _ types.TimeframeProfile) (string, bool) {
				return "recommendation " + string(s.Recommendation), s.Recommendation.IsSell()
			},
		},
		{
			name: CondStochastic,
			buy: func(s types.Snapshot, _ types.TimeframeProfile) (string, bool) {
				return e.stochCheck(s, less, e.config.StochLow, "oversold")
			},
			sell: func(s types.Snapshot, _ types.TimeframeProfile) (string, bool) {
				return e.stochCheck(s, greater, e.config.StochHigh, "overbought")
			},
		},
	}
	return e
}

// Weight returns the configured weight of a condition, 1 when unset.
// A weight of 0 disables the condition.
func (e *Engine) Weight(name string) float64 {
	if w, ok := e.config.Weights[name]; ok {
		return w
	}
	return 1
}

func (e *Engine) profile(timeframe string) types.TimeframeProfile {
	if timeframe == e.config.Trend.Interval && e.config.Trend.Interval != "" {
		return e.config.Trend
	}
	return e.config.Entry
}

// Score evaluates every condition on every snapshot independently and sums
// the weights of the satisfied ones
func (e *Engine) Score(snapshots []types.Snapshot) types.ScoreResult {
	var result types.ScoreResult

	for _, snap := range snapshots {
		p := e.profile(snap.Timeframe)

		for _, c := range e.conditions {
			w := e.Weight(c.name)
			if w <= 0 {
				continue
			}

			if desc, ok := c.buy(snap, p); ok {
				result.BuyScore += w
				result.BuyReasons = append(result.BuyReasons, fmt.Sprintf("%s %s", snap.Timeframe, desc))
			}
			if desc, ok := c.sell(snap, p); ok {
				result.SellScore += w
				result.SellReasons = append(result.SellReasons, fmt.Sprintf("%s %s", snap.Timeframe, desc))
			}
		}
	}

	return result
}

// BuyTriggered checks the buy threshold. require_dominance additionally
// demands buy > sell.
func (e *Engine) BuyTriggered(score types.ScoreResult) bool {
	if score.BuyScore < e.config.BuyScoreThreshold {
		return false
	}
	return !e.config.RequireDominance || score.BuyScore > score.SellScore
}

// SellTriggered needs the sell threshold and sell > buy, whatever
// require_dominance says
func (e *Engine) SellTriggered(score types.ScoreResult) bool {
	if score.SellScore < e.config.SellScoreThreshold {
		return false
	}
	return score.SellScore > score.BuyScore
}

func (e *Engine) adxCheck(s types.Snapshot, _ types.TimeframeProfile) (string, bool) {
	return compareThreshold(s, types.IndADX, e.config.ADXMin, greater, "ADX %.1f > %.0f")
}

func (e *Engine) stochCheck(s types.Snapshot, op func(a, b float64) bool, level float64, label string) (string, bool) {
	k, okK := s.Value(types.IndStochK)
	d, okD := s.Value(types.IndStochD)
	if !okK || !okD {
		return "", false
	}
	if op(k, level) && op(d, level) {
		return fmt.Sprintf("stochastic %s (K %.1f, D %.1f)", label, k, d), true
	}
	return "", false
}

func greater(a, b float64) bool   { return a > b }
func less(a, b float64) bool      { return a < b }
func atOrAbove(a, b float64) bool { return a >= b }
func atOrBelow(a, b float64) bool { return a <= b }

func compareIndicators(left, right types.Indicator, op func(a, b float64) bool, format string) check {
	return func(s types.Snapshot, _ types.TimeframeProfile) (string, bool) {
		a, okA := s.Value(left)
		b, okB := s.Value(right)
		if !okA || !okB || !op(a, b) {
			return "", false
		}
		return fmt.Sprintf(format, a, b), true
	}
}

func compareThreshold(s types.Snapshot, ind types.Indicator, threshold float64, op func(a, b float64) bool, format string) (string, bool) {
	v, ok := s.Value(ind)
	if !ok || !op(v, threshold) {
		return "", false
	}
	return fmt.Sprintf(format, v, threshold), true
}
