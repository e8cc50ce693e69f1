// File: cmd/bot/main.go
// ============================================
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"crypto-signal-bot/internal/config"
	"crypto-signal-bot/internal/position"
	"crypto-signal-bot/pkg/types"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bot",
		Short: "Crypto signal bot with paper positions",
		Long: `bot scores the most liquid Binance pairs with technical indicators,
tracks simulated positions in a JSON file and sends alerts to Telegram.
No orders are ever placed.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override: debug, info, warn, error")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(positionsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Evaluate every candidate symbol once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.cycle(ctx); err != nil {
				return err
			}

			if cfg.Metrics.Textfile != "" {
				if err := a.metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
					logger.Warn("metrics textfile not written", slog.String("error", err.Error()))
				}
			}
			return nil
		},
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run a cycle every schedule.interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if cfg.Metrics.Listen != "" {
				srv := &http.Server{Addr: cfg.Metrics.Listen, Handler: metricsMux(a), ReadHeaderTimeout: 5 * time.Second}
				go func() {
					logger.Info("📊 metrics listening", slog.String("addr", cfg.Metrics.Listen))
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("metrics server failed", slog.String("error", err.Error()))
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			logger.Info("🚀 signal bot watching",
				slog.Duration("interval", cfg.Schedule.Interval),
				slog.String("provider", cfg.Market.Provider),
				slog.String("pairs", cfg.Pairs.Source),
			)

			ticker := time.NewTicker(cfg.Schedule.Interval)
			defer ticker.Stop()

			for {
				if err := a.cycle(ctx); err != nil {
					logger.Error("❌ cycle failed", slog.String("error", err.Error()))
				}
				if cfg.Metrics.Textfile != "" {
					if err := a.metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
						logger.Warn("metrics textfile not written", slog.String("error", err.Error()))
					}
				}

				select {
				case <-ctx.Done():
					logger.Info("👋 signal bot stopped")
					return nil
				case <-ticker.C:
				}
			}
		},
	}
}

func positionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "Print the open paper positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}

			store := position.Load(cfg.Store.Path, logger)
			printPositions(cmd.OutOrStdout(), store.All(), time.Now())
			return nil
		},
	}
}

func metricsMux(a *app) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	return mux
}

// setup loads and validates the config and builds the logger
func setup() (*types.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := config.Validate(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func printPositions(out io.Writer, positions []types.Position, now time.Time) {
	if len(positions) == 0 {
		fmt.Fprintln(out, "No open positions")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tENTRY\tSTOP\tTAKE PROFIT\tHIGH\tTRAILING\tHELD")
	for _, p := range positions {
		trailing := "-"
		if p.TrailingStopActive {
			trailing = fmt.Sprintf("%.6g", p.TrailingStop)
		}
		fmt.Fprintf(w, "%s\t%.6g\t%.6g\t%.6g\t%.6g\t%s\t%s\n",
			p.Symbol, p.EntryPrice, p.StopLoss, p.TakeProfit, p.HighestPrice, trailing,
			p.Held(now).Round(time.Minute))
	}
	w.Flush()
}
