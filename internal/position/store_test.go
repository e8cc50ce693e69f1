package position

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-signal-bot/pkg/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "active_buys.json")
	entry := time.Date(2024, 3, 1, 12, 30, 15, 123456789, time.UTC)

	store := Load(path, discardLogger())
	assert.Equal(t, 0, store.Len())

	store.Put(types.Position{
		Symbol:             "ABCUSDT",
		EntryPrice:         0.00012345,
		EntryTime:          entry,
		StopLoss:           0.00011975,
		TakeProfit:         0.00013086,
		HighestPrice:       0.0001301,
		TrailingStopActive: true,
		TrailingStop:       0.0001262,
	})
	store.Put(types.Position{Symbol: "XYZUSDT", EntryPrice: 2, EntryTime: entry, StopLoss: 1.9, TakeProfit: 2.2, HighestPrice: 2})
	require.NoError(t, store.Save())

	reloaded := Load(path, discardLogger())
	require.Equal(t, 2, reloaded.Len())
	assert.Equal(t, []string{"ABCUSDT", "XYZUSDT"}, reloaded.Symbols())

	pos, ok := reloaded.Get("ABCUSDT")
	require.True(t, ok)
	assert.Equal(t, "ABCUSDT", pos.Symbol)
	assert.Equal(t, 0.00012345, pos.EntryPrice)
	assert.Equal(t, 0.00011975, pos.StopLoss)
	assert.Equal(t, 0.00013086, pos.TakeProfit)
	assert.Equal(t, 0.0001301, pos.HighestPrice)
	assert.Equal(t, 0.0001262, pos.TrailingStop)
	assert.True(t, pos.TrailingStopActive)
	assert.True(t, entry.Equal(pos.EntryTime))
}

func TestStore_OnePositionPerSymbol(t *testing.T) {
	store := Load(filepath.Join(t.TempDir(), "p.json"), discardLogger())
	now := time.Now()

	store.Put(types.Position{Symbol: "ABCUSDT", EntryPrice: 1, EntryTime: now})
	store.Put(types.Position{Symbol: "ABCUSDT", EntryPrice: 2, EntryTime: now})

	assert.Equal(t, 1, store.Len())
	pos, _ := store.Get("ABCUSDT")
	assert.Equal(t, 2.0, pos.EntryPrice)

	store.Remove("ABCUSDT")
	_, ok := store.Get("ABCUSDT")
	assert.False(t, ok)
}

func TestLoad_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active_buys.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := Load(path, discardLogger())
	assert.Equal(t, 0, store.Len())
}

func TestLoad_DropsInvalidEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active_buys.json")
	content := `{
    "GOODUSDT": {"entry_price": 10, "entry_time": "2024-03-01T12:00:00Z", "stop_loss": 9.7, "take_profit": 10.6, "highest_price": 0},
    "ZEROUSDT": {"entry_price": 0, "entry_time": "2024-03-01T12:00:00Z"},
    "NOTIMEUSDT": {"entry_price": 5}
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	store := Load(path, discardLogger())
	assert.Equal(t, []string{"GOODUSDT"}, store.Symbols())

	pos, _ := store.Get("GOODUSDT")
	assert.Equal(t, 10.0, pos.HighestPrice, "high-water mark starts at the entry price")
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "active_buys.json")

	store := Load(path, discardLogger())
	store.Put(types.Position{Symbol: "ABCUSDT", EntryPrice: 1, EntryTime: time.Now()})
	require.NoError(t, store.Save())
	require.NoError(t, store.Save())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "active_buys.json", entries[0].Name())
}
