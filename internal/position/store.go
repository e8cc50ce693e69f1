// File: internal/position/store.go
// ============================================
package position

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"

	"crypto-signal-bot/internal/fileutil"
	"crypto-signal-bot/pkg/types"
)

// Store is the symbol -> open position mapping backed by a JSON file.
// One process owns it for the duration of a run; it is not safe for
// concurrent use.
type Store struct {
	path      string
	positions map[string]types.Position
	logger    *slog.Logger
}

// Load reads the position file. A missing file yields an empty store, and so
// does a corrupt one (with a warning): losing track of open positions is
// preferred over refusing to run.
func Load(path string, logger *slog.Logger) *Store {
	s := &Store{
		path:      path,
		positions: make(map[string]types.Position),
		logger:    logger.With(slog.String("component", "position_store")),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("cannot read position file, starting empty",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
		return s
	}

	if len(data) == 0 {
		return s
	}

	var raw map[string]types.Position
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("position file is corrupt, starting empty",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return s
	}

	for symbol, pos := range raw {
		if symbol == "" || pos.EntryPrice <= 0 || pos.EntryTime.IsZero() {
			s.logger.Warn("dropping invalid position entry", slog.String("symbol", symbol))
			continue
		}
		pos.Symbol = symbol
		if pos.HighestPrice < pos.EntryPrice {
			pos.HighestPrice = pos.EntryPrice
		}
		s.positions[symbol] = pos
	}

	s.logger.Info("positions loaded",
		slog.String("path", path),
		slog.Int("count", len(s.positions)),
	)
	return s
}

// Save writes every position to a temp file next to the target and renames
// it into place, so readers never observe a partial file
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.positions, "", "    ")
	if err != nil {
		return fmt.Errorf("position: marshal: %w", err)
	}

	if err := fileutil.WriteAtomic(s.path, data); err != nil {
		return fmt.Errorf("position: save: %w", err)
	}
	return nil
}

func (s *Store) Get(symbol string) (types.Position, bool) {
	pos, ok := s.positions[symbol]
	return pos, ok
}

// Put inserts or replaces the position for pos.Symbol
func (s *Store) Put(pos types.Position) {
	s.positions[pos.Symbol] = pos
}

func (s *Store) Remove(symbol string) {
	delete(s.positions, symbol)
}

func (s *Store) Len() int {
	return len(s.positions)
}

func (s *Store) Path() string {
	return s.path
}

// Symbols returns the symbols with an open position, sorted
func (s *Store) Symbols() []string {
	symbols := make([]string, 0, len(s.positions))
	for symbol := range s.positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// All returns the open positions ordered by symbol
func (s *Store) All() []types.Position {
	all := make([]types.Position, 0, len(s.positions))
	for _, symbol := range s.Symbols() {
		all = append(all, s.positions[symbol])
	}
	return all
}
