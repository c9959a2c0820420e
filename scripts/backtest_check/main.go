package main

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/anjaninandan001/algo-tinker/internal/backtest"
	"github.com/anjaninandan001/algo-tinker/internal/blocks"
	"github.com/anjaninandan001/algo-tinker/internal/editor"
	"github.com/anjaninandan001/algo-tinker/internal/results"
	"github.com/anjaninandan001/algo-tinker/internal/strategy"
	"github.com/anjaninandan001/algo-tinker/pkg/config"
)

// backtest_check sends a small SMA crossover strategy to the configured
// backtest service and prints the projected report.
//
// Usage:
//
//	go run ./scripts/backtest_check
//
// CHECK_SYMBOL (default DEFAULT_SYMBOL) picks the ticker.

func main() {
	log.Info("=== Backtest service check starting ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	symbol := getenv("CHECK_SYMBOL", cfg.DefaultSymbol)

	var bt backtest.Backtester
	if cfg.BacktestTransport == "grpc" {
		client, err := backtest.NewGRPCClient(cfg.BacktestGRPCAddr)
		if err != nil {
			log.Fatalf("dial %s: %v", cfg.BacktestGRPCAddr, err)
		}
		bt = client
	} else {
		bt = backtest.NewHTTPClient(cfg.BacktestURL, cfg.BacktestTimeout)
	}
	defer bt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := bt.Ping(ctx); err != nil {
		log.Fatalf("ping: %v", err)
	}
	log.Infof("[%s] service reachable", cfg.BacktestTransport)

	store := blocks.NewStore()
	sma := store.Create(blocks.TypeIndicator, blocks.SMA, 0, 0)
	entry := store.Create(blocks.TypeEntry, "", 0, 100)
	id, _ := blocks.Identifier(sma)
	entry.Conditions = []blocks.Condition{{Indicator: id, Operator: blocks.OpGreater, Value: "close"}}

	req := strategy.Complete(strategy.ToRequest(store.All()))
	settings := editor.DefaultSettings(time.Now(), symbol, cfg.DefaultCapital)

	resp, err := bt.Run(ctx, backtest.Request{
		Blocks:    req,
		Symbol:    settings.Symbol,
		StartDate: settings.StartDate.Format(editor.DateLayout),
		EndDate:   settings.EndDate.Format(editor.DateLayout),
		Capital:   settings.Capital,
	})
	if err != nil {
		log.Fatalf("run: %v", err)
	}

	report := results.Project(*resp, settings.StartDate)
	if report.Error != "" {
		log.Fatalf("service error: %s", report.Error)
	}
	for _, m := range report.Metrics {
		log.Infof("%-16s %s", m.Label, m.Value)
	}
	log.Infof("trades=%d skipped=%d equity points=%d", len(report.Trades), report.Skipped, len(report.Equity))
	log.Info("=== Backtest service check finished ===")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
