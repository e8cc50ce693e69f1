// File: internal/risk/manager.go
// ============================================
package risk

import (
	"fmt"
	"math"
	"time"

	"crypto-signal-bot/pkg/types"
)

// Scorer decides whether a score is strong enough to act on
type Scorer interface {
	BuyTriggered(score types.ScoreResult) bool
	SellTriggered(score types.ScoreResult) bool
}

type Manager struct {
	config types.RiskConfig
	scorer Scorer
}

func NewManager(config types.RiskConfig, scorer Scorer) *Manager {
	return &Manager{
		config: config,
		scorer: scorer,
	}
}

// Input is everything the lifecycle needs to decide one symbol's cycle
type Input struct {
	Symbol     string
	Price      float64
	ATR        float64
	HasATR     bool
	Score      types.ScoreResult
	Position   *types.Position // nil when the symbol has no open position
	Now        time.Time
	AllowEntry bool
}

// Decision carries the signal of the cycle and the position state to
// persist. A nil Position means the symbol has no open position afterwards.
type Decision struct {
	Signal   types.Signal
	Position *types.Position
}

// Evaluate runs the position state machine for one symbol. It never mutates
// in.Position; the updated state is returned in the Decision.
func (m *Manager) Evaluate(in Input) Decision {
	signal := types.Signal{
		Symbol:    in.Symbol,
		Action:    types.ActionNone,
		Price:     in.Price,
		Timestamp: in.Now,
		Score:     in.Score,
	}

	if in.Position == nil {
		return m.evaluateEntry(in, signal)
	}

	pos := *in.Position
	pos.Symbol = in.Symbol

	// 1. max hold duration beats every other exit
	if m.config.MaxHold > 0 && in.Now.Sub(pos.EntryTime) > m.config.MaxHold {
		return m.exit(pos, signal, types.ActionExpired,
			fmt.Sprintf("Held %s, longer than %s", formatDuration(in.Now.Sub(pos.EntryTime)), formatDuration(m.config.MaxHold)))
	}

	// 2. hard stop loss
	if in.Price <= pos.StopLoss {
		return m.exit(pos, signal, types.ActionStopLoss,
			fmt.Sprintf("Price $%.6g at/below stop loss $%.6g", in.Price, pos.StopLoss))
	}

	// 3. take profit and trailing stop
	pos.HighestPrice = math.Max(pos.HighestPrice, in.Price)

	if !pos.TrailingStopActive {
		if pos.TakeProfit > 0 && in.Price >= pos.TakeProfit {
			if !m.config.TrailingStopEnabled {
				return m.exit(pos, signal, types.ActionTakeProfit,
					fmt.Sprintf("Take profit $%.6g reached", pos.TakeProfit))
			}

			m.UpdateTrailingStop(&pos)
			pos.TrailingStopActive = true
			signal.Action = types.ActionTakeProfit
			signal.Reason = fmt.Sprintf("Take profit $%.6g reached, trailing stop engaged at $%.6g",
				pos.TakeProfit, pos.TrailingStop)
			return m.keep(pos, signal)
		}
	} else {
		m.UpdateTrailingStop(&pos)
		if in.Price < pos.TrailingStop {
			return m.exit(pos, signal, types.ActionTrailingStop,
				fmt.Sprintf("Price $%.6g fell below trailing stop $%.6g (high $%.6g)",
					in.Price, pos.TrailingStop, pos.HighestPrice))
		}
	}

	// 4. indicator driven exit
	if m.scorer.SellTriggered(in.Score) {
		return m.exit(pos, signal, types.ActionSell,
			fmt.Sprintf("Sell score %.1f vs buy score %.1f", in.Score.SellScore, in.Score.BuyScore))
	}

	signal.Action = types.ActionHold
	return m.keep(pos, signal)
}

func (m *Manager) evaluateEntry(in Input, signal types.Signal) Decision {
	if !in.AllowEntry || !m.scorer.BuyTriggered(in.Score) {
		return Decision{Signal: signal}
	}

	stopLoss := m.CalculateStopLoss(in.Price, in.ATR, in.HasATR)
	pos := types.Position{
		Symbol:       in.Symbol,
		EntryPrice:   in.Price,
		EntryTime:    in.Now,
		StopLoss:     stopLoss,
		TakeProfit:   m.CalculateTakeProfit(in.Price, stopLoss),
		HighestPrice: in.Price,
	}

	signal.Action = types.ActionBuy
	signal.Reason = fmt.Sprintf("Buy score %.1f vs sell score %.1f", in.Score.BuyScore, in.Score.SellScore)
	return m.keep(pos, signal)
}

// CalculateStopLoss uses ATR distance in atr mode and falls back to the
// fixed percentage when no usable ATR is available
func (m *Manager) CalculateStopLoss(entryPrice, atr float64, hasATR bool) float64 {
	if m.config.StopMode == "atr" && hasATR && atr > 0 && m.config.ATRMultiplier > 0 {
		stop := entryPrice - m.config.ATRMultiplier*atr
		if stop > 0 {
			return stop
		}
	}
	return entryPrice * (1 - m.config.StopLossPercent/100.0)
}

// CalculateTakeProfit uses the risk/reward ratio against the stop distance
// in atr mode and the fixed percentage otherwise
func (m *Manager) CalculateTakeProfit(entryPrice, stopLoss float64) float64 {
	if m.config.StopMode == "atr" && m.config.RiskReward > 0 {
		return entryPrice + m.config.RiskReward*(entryPrice-stopLoss)
	}
	return entryPrice * (1 + m.config.TakeProfitPercent/100.0)
}

// UpdateTrailingStop ratchets the trailing level from the high-water mark.
// The level never moves down. Returns true when it moved.
func (m *Manager) UpdateTrailingStop(pos *types.Position) bool {
	level := pos.HighestPrice * (1 - m.config.TrailingStopPercent/100.0)
	if level > pos.TrailingStop {
		pos.TrailingStop = level
		return true
	}
	return false
}

func (m *Manager) exit(pos types.Position, signal types.Signal, action types.Action, reason string) Decision {
	signal.Action = action
	signal.Reason = reason
	signal.Closed = true
	signal.EntryPrice = pos.EntryPrice
	signal.PnLPercent = pos.PnLPercent(signal.Price)
	signal.Held = pos.Held(signal.Timestamp)
	signal.StopLoss = pos.StopLoss
	signal.TakeProfit = pos.TakeProfit
	signal.TrailingStop = pos.TrailingStop
	return Decision{Signal: signal}
}

func (m *Manager) keep(pos types.Position, signal types.Signal) Decision {
	signal.EntryPrice = pos.EntryPrice
	signal.StopLoss = pos.StopLoss
	signal.TakeProfit = pos.TakeProfit
	signal.TrailingStop = pos.TrailingStop
	return Decision{Signal: signal, Position: &pos}
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Minute).String()
}
