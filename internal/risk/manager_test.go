package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-signal-bot/internal/config"
	"crypto-signal-bot/internal/strategy"
	"crypto-signal-bot/pkg/types"
)

type fakeScorer struct {
	buy  bool
	sell bool
}

func (f fakeScorer) BuyTriggered(types.ScoreResult) bool  { return f.buy }
func (f fakeScorer) SellTriggered(types.ScoreResult) bool { return f.sell }

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testRiskConfig() types.RiskConfig {
	return types.RiskConfig{
		StopMode:            "percent",
		StopLossPercent:     3,
		TakeProfitPercent:   6,
		ATRMultiplier:       2,
		RiskReward:          2,
		TrailingStopEnabled: true,
		TrailingStopPercent: 3,
		MaxHold:             48 * time.Hour,
	}
}

func openPosition() *types.Position {
	return &types.Position{
		Symbol:       "ABCUSDT",
		EntryPrice:   100,
		EntryTime:    t0,
		StopLoss:     97,
		TakeProfit:   106,
		HighestPrice: 100,
	}
}

func TestEvaluate_BuyOpensPosition(t *testing.T) {
	m := NewManager(testRiskConfig(), fakeScorer{buy: true})

	d := m.Evaluate(Input{
		Symbol:     "ABCUSDT",
		Price:      100,
		Score:      types.ScoreResult{BuyScore: 6, SellScore: 1},
		Now:        t0,
		AllowEntry: true,
	})

	assert.Equal(t, types.ActionBuy, d.Signal.Action)
	require.NotNil(t, d.Position)
	assert.Equal(t, "ABCUSDT", d.Position.Symbol)
	assert.Equal(t, 100.0, d.Position.EntryPrice)
	assert.Equal(t, t0, d.Position.EntryTime)
	assert.InDelta(t, 97, d.Position.StopLoss, 1e-9)
	assert.InDelta(t, 106, d.Position.TakeProfit, 1e-9)
	assert.Equal(t, 100.0, d.Position.HighestPrice)
	assert.False(t, d.Position.TrailingStopActive)
	assert.InDelta(t, 97, d.Signal.StopLoss, 1e-9)
}

func TestEvaluate_NoEntryWithoutTriggerOrOutsideHours(t *testing.T) {
	m := NewManager(testRiskConfig(), fakeScorer{buy: false})
	d := m.Evaluate(Input{Symbol: "ABCUSDT", Price: 100, Now: t0, AllowEntry: true})
	assert.Equal(t, types.ActionNone, d.Signal.Action)
	assert.Nil(t, d.Position)

	m = NewManager(testRiskConfig(), fakeScorer{buy: true})
	d = m.Evaluate(Input{Symbol: "ABCUSDT", Price: 100, Now: t0, AllowEntry: false})
	assert.Equal(t, types.ActionNone, d.Signal.Action)
	assert.Nil(t, d.Position)
}

func TestEvaluate_TakeProfitThenTrailingStop(t *testing.T) {
	m := NewManager(testRiskConfig(), fakeScorer{})
	pos := openPosition()

	d := m.Evaluate(Input{Symbol: "ABCUSDT", Price: 106, Position: pos, Now: t0.Add(time.Hour)})
	assert.Equal(t, types.ActionTakeProfit, d.Signal.Action)
	assert.False(t, d.Signal.Closed)
	require.NotNil(t, d.Position)
	assert.True(t, d.Position.TrailingStopActive)
	assert.InDelta(t, 102.82, d.Position.TrailingStop, 1e-9)

	d = m.Evaluate(Input{Symbol: "ABCUSDT", Price: 110, Position: d.Position, Now: t0.Add(2 * time.Hour)})
	assert.Equal(t, types.ActionHold, d.Signal.Action)
	require.NotNil(t, d.Position)
	assert.Equal(t, 110.0, d.Position.HighestPrice)
	assert.InDelta(t, 106.7, d.Position.TrailingStop, 1e-9)

	d = m.Evaluate(Input{Symbol: "ABCUSDT", Price: 106, Position: d.Position, Now: t0.Add(3 * time.Hour)})
	assert.Equal(t, types.ActionTrailingStop, d.Signal.Action)
	assert.True(t, d.Signal.Closed)
	assert.Nil(t, d.Position)
	assert.Equal(t, 100.0, d.Signal.EntryPrice)
	assert.InDelta(t, 6.0, d.Signal.PnLPercent, 1e-9)
	assert.Equal(t, 3*time.Hour, d.Signal.Held)
}

func TestEvaluate_TakeProfitClosesWithoutTrailing(t *testing.T) {
	cfg := testRiskConfig()
	cfg.TrailingStopEnabled = false
	m := NewManager(cfg, fakeScorer{})

	d := m.Evaluate(Input{Symbol: "ABCUSDT", Price: 107, Position: openPosition(), Now: t0.Add(time.Hour)})

	assert.Equal(t, types.ActionTakeProfit, d.Signal.Action)
	assert.True(t, d.Signal.Closed)
	assert.Nil(t, d.Position)
	assert.InDelta(t, 7.0, d.Signal.PnLPercent, 1e-9)
}

func TestEvaluate_ExpiredBeatsStopLoss(t *testing.T) {
	m := NewManager(testRiskConfig(), fakeScorer{})

	d := m.Evaluate(Input{
		Symbol:   "ABCUSDT",
		Price:    90,
		Position: openPosition(),
		Now:      t0.Add(50 * time.Hour),
	})

	assert.Equal(t, types.ActionExpired, d.Signal.Action)
	assert.True(t, d.Signal.Closed)
	assert.Nil(t, d.Position)
	assert.Equal(t, 50*time.Hour, d.Signal.Held)
	assert.InDelta(t, -10.0, d.Signal.PnLPercent, 1e-9)
}

func TestEvaluate_StopLoss(t *testing.T) {
	m := NewManager(testRiskConfig(), fakeScorer{sell: true})

	d := m.Evaluate(Input{Symbol: "ABCUSDT", Price: 97, Position: openPosition(), Now: t0.Add(time.Hour)})

	assert.Equal(t, types.ActionStopLoss, d.Signal.Action)
	assert.Nil(t, d.Position)
}

func TestEvaluate_SellSignalCloses(t *testing.T) {
	m := NewManager(testRiskConfig(), fakeScorer{sell: true})

	d := m.Evaluate(Input{
		Symbol:   "ABCUSDT",
		Price:    101,
		Score:    types.ScoreResult{SellScore: 5},
		Position: openPosition(),
		Now:      t0.Add(time.Hour),
	})

	assert.Equal(t, types.ActionSell, d.Signal.Action)
	assert.True(t, d.Signal.Closed)
	assert.Nil(t, d.Position)
	assert.InDelta(t, 1.0, d.Signal.PnLPercent, 1e-9)
}

func TestEvaluate_SellNeedsSellSideStrongerWithDefaults(t *testing.T) {
	cfg := config.Defaults()
	m := NewManager(cfg.Risk, strategy.NewEngine(cfg.Strategy))

	d := m.Evaluate(Input{
		Symbol:   "ABCUSDT",
		Price:    101,
		Score:    types.ScoreResult{BuyScore: 7, SellScore: 4},
		Position: openPosition(),
		Now:      t0.Add(time.Hour),
	})
	assert.Equal(t, types.ActionHold, d.Signal.Action)
	assert.False(t, d.Signal.Closed)
	require.NotNil(t, d.Position)

	d = m.Evaluate(Input{
		Symbol:   "ABCUSDT",
		Price:    101,
		Score:    types.ScoreResult{BuyScore: 2, SellScore: 4},
		Position: openPosition(),
		Now:      t0.Add(time.Hour),
	})
	assert.Equal(t, types.ActionSell, d.Signal.Action)
	assert.True(t, d.Signal.Closed)
	assert.Nil(t, d.Position)
}

func TestEvaluate_HoldDoesNotMutateInput(t *testing.T) {
	m := NewManager(testRiskConfig(), fakeScorer{})
	pos := openPosition()

	d := m.Evaluate(Input{Symbol: "ABCUSDT", Price: 103, Position: pos, Now: t0.Add(time.Hour)})

	assert.Equal(t, types.ActionHold, d.Signal.Action)
	require.NotNil(t, d.Position)
	assert.Equal(t, 103.0, d.Position.HighestPrice)
	assert.Equal(t, 100.0, pos.HighestPrice)
}

func TestEvaluate_HighWaterMarkAndTrailingAreMonotonic(t *testing.T) {
	m := NewManager(testRiskConfig(), fakeScorer{})
	pos := openPosition()

	prices := []float64{102, 101, 106, 112, 110, 111, 109.5, 113, 111}
	highest := pos.HighestPrice
	trailing := pos.TrailingStop
	for i, price := range prices {
		d := m.Evaluate(Input{Symbol: "ABCUSDT", Price: price, Position: pos, Now: t0.Add(time.Duration(i+1) * time.Hour)})
		require.NotNil(t, d.Position, "price %v closed the position", price)

		assert.GreaterOrEqual(t, d.Position.HighestPrice, highest)
		assert.GreaterOrEqual(t, d.Position.HighestPrice, price)
		assert.GreaterOrEqual(t, d.Position.TrailingStop, trailing)

		highest = d.Position.HighestPrice
		trailing = d.Position.TrailingStop
		pos = d.Position
	}
	assert.Equal(t, 113.0, highest)
}

func TestCalculateStops_ATRMode(t *testing.T) {
	cfg := testRiskConfig()
	cfg.StopMode = "atr"
	m := NewManager(cfg, fakeScorer{})

	sl := m.CalculateStopLoss(100, 2, true)
	assert.Equal(t, 96.0, sl)
	assert.Equal(t, 108.0, m.CalculateTakeProfit(100, sl))

	// no ATR: percent stop, take profit still from the risk/reward ratio
	sl = m.CalculateStopLoss(100, 0, false)
	assert.InDelta(t, 97, sl, 1e-9)
	assert.InDelta(t, 106, m.CalculateTakeProfit(100, sl), 1e-9)
}

func TestUpdateTrailingStop_NeverMovesDown(t *testing.T) {
	m := NewManager(testRiskConfig(), fakeScorer{})
	pos := &types.Position{HighestPrice: 110, TrailingStop: 108}

	assert.False(t, m.UpdateTrailingStop(pos))
	assert.Equal(t, 108.0, pos.TrailingStop)

	pos.HighestPrice = 120
	assert.True(t, m.UpdateTrailingStop(pos))
	assert.InDelta(t, 116.4, pos.TrailingStop, 1e-9)
}
