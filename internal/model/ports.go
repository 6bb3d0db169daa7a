package model

import "context"

// ── Storage Port Interfaces ──
// These decouple the services from concrete storage (SQLite, ClickHouse, Redis).

// CandleReader loads candles for a symbol and timeframe. A zero from/to means unbounded.
type CandleReader interface {
	ReadCandles(ctx context.Context, symbol, timeframe string, from, to int64) ([]Candle, error)
}

// CandleWriter persists validated candles.
type CandleWriter interface {
	WriteCandles(ctx context.Context, symbol, timeframe string, candles []Candle) error
}

// StrategyRepository stores user-defined strategies.
type StrategyRepository interface {
	SaveStrategy(ctx context.Context, s Strategy) (Strategy, error)
	GetStrategy(ctx context.Context, id string) (Strategy, error)
	ListStrategies(ctx context.Context) ([]Strategy, error)
	DeleteStrategy(ctx context.Context, id string) error
}

// RunRepository stores completed backtest results.
type RunRepository interface {
	SaveRun(ctx context.Context, r BacktestResult) (BacktestResult, error)
	GetRun(ctx context.Context, id string) (BacktestResult, error)
	ListRuns(ctx context.Context, strategyID string) ([]BacktestResult, error)
}
