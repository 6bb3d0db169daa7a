// Package service orchestrates the engines behind the API and the CLI:
// candle loading and ingest, cached indicator and pattern queries, strategy
// CRUD and backtest runs that are persisted, measured and announced.
package service

import (
	"errors"
	"time"

	"trading-backtestv1/internal/backtest"
	"trading-backtestv1/internal/cache"
	"trading-backtestv1/internal/indicator"
	"trading-backtestv1/internal/metrics"
	"trading-backtestv1/internal/model"
	"trading-backtestv1/internal/notification"
	"trading-backtestv1/internal/pattern"
)

// ErrIngestUnsupported is returned by IngestCandles when no writer is wired.
var ErrIngestUnsupported = errors.New("service: candle ingest not configured")

// Deps are the collaborators a Service needs. Candles, Strategies and Runs
// are required; everything else is optional.
type Deps struct {
	Candles    model.CandleReader
	Writer     model.CandleWriter
	Strategies model.StrategyRepository
	Runs       model.RunRepository
	Cache      cache.Cache
	Notifier   notification.Notifier
	Metrics    *metrics.Metrics
	Health     *metrics.HealthStatus
}

// Options tune the engines.
type Options struct {
	CacheTTL         time.Duration
	InitialEquity    float64
	IndicatorWorkers int
	RunWorkers       int
	Pattern          pattern.Options
}

// Service is safe for concurrent use.
type Service struct {
	deps       Deps
	opts       Options
	indicators *indicator.Engine
	backtester *backtest.Engine
}

// New wires a Service.
func New(deps Deps, opts Options) *Service {
	if deps.Cache == nil {
		deps.Cache = cache.Nop{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.RunWorkers < 1 {
		opts.RunWorkers = 1
	}

	var obs indicator.Observer
	if deps.Metrics != nil {
		obs = deps.Metrics
	}
	ind := indicator.NewEngine(opts.IndicatorWorkers, obs)
	return &Service{
		deps:       deps,
		opts:       opts,
		indicators: ind,
		backtester: backtest.NewEngine(ind, opts.InitialEquity),
	}
}

// InitialEquity returns the default starting equity of a run.
func (s *Service) InitialEquity() float64 { return s.backtester.InitialEquity() }
