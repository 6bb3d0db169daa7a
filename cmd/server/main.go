// cmd/server runs the backtest HTTP API: candle ingest, indicator and pattern
// queries, strategy CRUD, backtest runs with a WebSocket replay, plus the
// Prometheus metrics and health endpoints on a separate listener.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"trading-backtestv1/config"
	"trading-backtestv1/internal/api"
	"trading-backtestv1/internal/cache"
	"trading-backtestv1/internal/logger"
	"trading-backtestv1/internal/metrics"
	"trading-backtestv1/internal/model"
	"trading-backtestv1/internal/pattern"
	"trading-backtestv1/internal/service"
	"trading-backtestv1/internal/store/clickhouse"
	redisstore "trading-backtestv1/internal/store/redis"
	sqlitestore "trading-backtestv1/internal/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger.Init("backtest-server", logger.ParseLevel(cfg.LogLevel))
	slog.Info("starting", "http_addr", cfg.HTTPAddr, "candle_source", cfg.CandleSource, "redis", cfg.Redis.Enabled)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- Metrics ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := metrics.New(reg)
	health := metrics.NewHealthStatus(cfg.Redis.Enabled)

	// ---- SQLite: strategies, runs and (by default) candles ----
	if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("create data dir failed", "dir", dir, "error", err)
			os.Exit(1)
		}
	}
	db, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath, OnCommit: prom.ObserveCommit})
	if err != nil {
		slog.Error("sqlite init failed", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var (
		candles model.CandleReader = db
		writer  model.CandleWriter = db
	)
	if cfg.CandleSource == "clickhouse" {
		ch, err := clickhouse.New(ctx, cfg.ClickHouse)
		if err != nil {
			slog.Error("clickhouse init failed", "host", cfg.ClickHouse.Host, "error", err)
			os.Exit(1)
		}
		defer ch.Close()
		candles, writer = ch, ch
		slog.Info("candles served from clickhouse", "host", cfg.ClickHouse.Host, "table", cfg.ClickHouse.Table)
	}

	// ---- Redis: cache and pub/sub, optional ----
	var (
		resultCache cache.Cache = cache.NewMemory(cfg.Cache.MaxEntries)
		rdbClient   *redisstore.Client
		rdb         *goredis.Client
	)
	if cfg.Redis.Enabled {
		rdbClient, err = redisstore.New(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			slog.Warn("redis unavailable, using in-memory cache", "addr", cfg.Redis.Addr, "error", err)
		} else {
			defer rdbClient.Close()
			rdb = rdbClient.Redis()
			cb := rdbClient.Breaker()
			logChange := cb.OnStateChange
			cb.OnStateChange = func(from, to redisstore.State) {
				logChange(from, to)
				prom.ObserveBreaker(int(to))
			}
			resultCache = redisstore.NewCache(rdbClient)
			slog.Info("redis cache ready", "addr", cfg.Redis.Addr)
		}
	}
	health.StartLivenessChecker(ctx, rdb, db.DB(), 10*time.Second)

	// ---- Notifiers ----
	notifier, closeNotifier := buildNotifier(cfg.Notify, rdbClient, prom)

	svc := service.New(service.Deps{
		Candles:    candles,
		Writer:     writer,
		Strategies: db,
		Runs:       db,
		Cache:      resultCache,
		Notifier:   notifier,
		Metrics:    prom,
		Health:     health,
	}, service.Options{
		CacheTTL:         cfg.Cache.TTL,
		InitialEquity:    cfg.Backtest.InitialEquity,
		IndicatorWorkers: cfg.Backtest.IndicatorWorkers,
		RunWorkers:       cfg.Backtest.RunWorkers,
		Pattern: pattern.Options{
			PivotLookback: cfg.Pattern.PivotLookback,
			Tolerance:     model.Float(cfg.Pattern.Tolerance),
		},
	})

	// ---- Servers ----
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, reg, health)
	metricsSrv.Start()

	handler := api.NewHandler(svc,
		api.WithHealth(health),
		api.WithMetrics(prom),
		api.WithStreamInterval(cfg.Backtest.StreamInterval),
	)
	httpSrv := api.NewServer(cfg.HTTPAddr, handler)
	httpSrv.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpSrv.Stop(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
	if err := metricsSrv.Stop(shutdownCtx); err != nil {
		slog.Error("metrics shutdown", "error", err)
	}
	closeNotifier()
	slog.Info("stopped")
}
