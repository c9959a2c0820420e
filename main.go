package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/anjaninandan001/algo-tinker/internal/api"
	"github.com/anjaninandan001/algo-tinker/internal/backtest"
	"github.com/anjaninandan001/algo-tinker/internal/editor"
	"github.com/anjaninandan001/algo-tinker/internal/engine"
	"github.com/anjaninandan001/algo-tinker/internal/events"
	"github.com/anjaninandan001/algo-tinker/internal/market"
	"github.com/anjaninandan001/algo-tinker/internal/monitor"
	"github.com/anjaninandan001/algo-tinker/internal/papertrade"
	"github.com/anjaninandan001/algo-tinker/internal/persist"
	"github.com/anjaninandan001/algo-tinker/internal/strategy"
	"github.com/anjaninandan001/algo-tinker/pkg/config"
	"github.com/anjaninandan001/algo-tinker/pkg/db"
	"github.com/anjaninandan001/algo-tinker/pkg/i18n"
	"github.com/anjaninandan001/algo-tinker/pkg/instance"
)

var buildVersion = "dev"

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if lvl, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf(i18n.Get("ConfigLoadFailed"), err)
	}
	i18n.SetLanguage(i18n.Language(cfg.Language))
	log.Info(i18n.Get("Starting"))
	log.Infof(i18n.Get("ConfigLoaded"), cfg.Port)

	dbPath := cfg.DBPath
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			log.Fatalf(i18n.Get("DBInitFailed"), err)
		}
	}
	log.Infof(i18n.Get("UsingDBPath"), dbPath)
	database, err := db.New(dbPath)
	if err != nil {
		log.Fatalf(i18n.Get("DBInitFailed"), err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf(i18n.Get("DBMigrationsFailed"), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore := openStore(ctx, cfg, database)
	defer closeStore()

	bt := openBacktester(ctx, cfg)
	defer bt.Close()

	provider, marketSource := openMarket(cfg)

	bus := events.NewBus()
	metrics := monitor.NewSystemMetrics()
	log.Info(i18n.Get("SystemMetricsInit"))

	sessions := editor.NewManager(cfg.SessionIdleTTL, func() editor.Settings {
		return editor.DefaultSettings(time.Now(), cfg.DefaultSymbol, cfg.DefaultCapital)
	})
	go sessions.Run(ctx, time.Minute, metrics.SetActiveSessions)
	log.Infof(i18n.Get("SessionSweepStarted"), cfg.SessionIdleTTL)

	instanceID := instance.ID()
	log.Infof(i18n.Get("InstanceID"), instanceID)

	paper := papertrade.NewService(database, papertrade.Config{
		StartCash:     decimal.NewFromFloat(cfg.PaperStartCash),
		FallbackPrice: decimal.NewFromFloat(cfg.PaperFallbackPrice),
	})

	eng := engine.NewImpl(engine.Config{
		Sessions:          sessions,
		Backtester:        bt,
		Store:             store,
		Paper:             paper,
		Market:            provider,
		Bus:               bus,
		Metrics:           metrics,
		AutoCompleteRules: cfg.AutoCompleteRules,
		Meta: engine.SystemStatus{
			Version:           buildVersion,
			InstanceID:        instanceID,
			StrategyBackend:   cfg.StrategyBackend,
			BacktestTransport: cfg.BacktestTransport,
			MarketSource:      marketSource,
		},
	})

	syncTemplates(ctx, eng, cfg.TemplatesPath)

	mon := &monitor.Monitor{Bus: bus, Metrics: metrics, Sink: monitor.LogSink{}}
	mon.Start(ctx)

	server := api.NewServer(bus, database, eng, provider, metrics, cfg.JWTSecret, api.Options{
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
	})
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof(i18n.Get("ServerListening"), cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf(i18n.Get("APIServerError"), err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info(i18n.Get("ShuttingDown"))

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnf(i18n.Get("APIServerError"), err)
	}
	log.Info(i18n.Get("ShutdownComplete"))
}

// openStore selects the strategy persistence backend. Redis falls back to
// SQLite when the server cannot be reached at startup.
func openStore(ctx context.Context, cfg *config.Config, database *db.Database) (persist.Store, func()) {
	if cfg.StrategyBackend == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			log.Infof(i18n.Get("StrategyBackend"), "redis")
			return persist.NewRedisStore(rdb, cfg.RedisPrefix), func() { _ = rdb.Close() }
		}
		log.Warnf(i18n.Get("RedisConnectFailed"), cfg.RedisAddr, err)
		_ = rdb.Close()
		cfg.StrategyBackend = "sqlite"
	}
	log.Infof(i18n.Get("StrategyBackend"), "sqlite")
	return persist.NewSQLStore(database), func() {}
}

func openBacktester(ctx context.Context, cfg *config.Config) backtest.Backtester {
	var bt backtest.Backtester
	if cfg.BacktestTransport == "grpc" {
		client, err := backtest.NewGRPCClient(cfg.BacktestGRPCAddr)
		if err != nil {
			log.Fatalf(i18n.Get("BacktestDialFailed"), err)
		}
		log.Infof(i18n.Get("BacktestTransport"), "grpc", cfg.BacktestGRPCAddr)
		bt = client
	} else {
		log.Infof(i18n.Get("BacktestTransport"), "http", cfg.BacktestURL)
		bt = backtest.NewHTTPClient(cfg.BacktestURL, cfg.BacktestTimeout)
	}

	// The service may come up after us; a failed probe is only logged.
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := bt.Ping(probeCtx); err != nil {
		log.Warnf(i18n.Get("BacktestProbeFailed"), err)
	}
	return bt
}

func openMarket(cfg *config.Config) (market.Provider, string) {
	if cfg.UseMockMarket || cfg.MarketAPIKey == "" {
		log.Info(i18n.Get("MockMarketEnabled"))
		return &market.MockProvider{}, "mock"
	}
	log.Infof(i18n.Get("MarketClientEnabled"), cfg.MarketDataURL)
	return market.NewClient(market.Config{
		BaseURL:   cfg.MarketDataURL,
		APIKey:    cfg.MarketAPIKey,
		APISecret: cfg.MarketAPISecret,
	}), cfg.MarketDataURL
}

func syncTemplates(ctx context.Context, eng engine.Service, path string) {
	if path == "" {
		return
	}
	templates, err := strategy.LoadTemplates(path)
	if err != nil {
		log.Warnf(i18n.Get("TemplatesLoadFailed"), err)
		return
	}
	if err := eng.SyncTemplates(ctx, templates); err != nil {
		log.Warnf(i18n.Get("TemplatesLoadFailed"), err)
		return
	}
	log.Infof(i18n.Get("TemplatesSynced"), len(templates), path)
}
