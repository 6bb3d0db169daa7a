// Package backtest drives a compiled strategy bar by bar over a candle store
// and reduces the resulting trades into performance statistics.
package backtest

import (
	"context"
	"fmt"
	"log/slog"

	"trading-backtestv1/internal/indicator"
	"trading-backtestv1/internal/logger"
	"trading-backtestv1/internal/model"
	"trading-backtestv1/internal/strategy"
)

// DefaultInitialEquity is the starting account value when none is configured.
const DefaultInitialEquity = 10000.0

// cancelCheckEvery is how many bars run between context checks.
const cancelCheckEvery = 256

// Engine runs backtests. It holds no per-run state and is safe for
// concurrent use.
type Engine struct {
	indicators    *indicator.Engine
	initialEquity float64
}

// NewEngine creates a backtest engine. initialEquity <= 0 uses the default.
func NewEngine(ind *indicator.Engine, initialEquity float64) *Engine {
	if initialEquity <= 0 {
		initialEquity = DefaultInitialEquity
	}
	if ind == nil {
		ind = indicator.NewEngine(1, nil)
	}
	return &Engine{indicators: ind, initialEquity: initialEquity}
}

// InitialEquity returns the configured starting equity.
func (e *Engine) InitialEquity() float64 { return e.initialEquity }

// Run computes the indicators the plan needs and simulates it over store.
func (e *Engine) Run(ctx context.Context, store *model.CandleStore, plan *strategy.Plan) (model.BacktestResult, error) {
	set, err := e.indicators.Compute(ctx, store, plan.Refs())
	if err != nil {
		return model.BacktestResult{}, fmt.Errorf("backtest indicators: %w", err)
	}
	res, err := Simulate(ctx, store, plan, set, e.initialEquity)
	if err != nil {
		return model.BacktestResult{}, err
	}
	slog.Info("backtest complete", append(logger.LogWithTrace(ctx),
		"strategy", plan.Strategy.Name,
		"key", store.Key(),
		"bars", store.Len(),
		"trades", res.TotalTrades,
		"win_rate", res.WinRate,
		"max_drawdown", res.MaxDrawdown,
	)...)
	return res, nil
}

// Simulate is the single-position state machine. It starts at the first bar
// where every indicator is defined and never reads past the current bar.
//
// While flat, an entry opens at the bar's close when all entry conditions
// hold. While in a position, later bars exit at the take-profit price if the
// high reaches it, else at the stop-loss price if the low reaches it, else at
// the close when any exit condition holds. No entry is evaluated on the bar
// a position closes.
func Simulate(ctx context.Context, store *model.CandleStore, plan *strategy.Plan, set *indicator.Set, initialEquity float64) (model.BacktestResult, error) {
	res := model.BacktestResult{
		Symbol:        store.Symbol(),
		Timeframe:     store.Timeframe(),
		StrategyID:    plan.Strategy.ID,
		Bars:          store.Len(),
		Trades:        []model.Trade{},
		EquityCurve:   []model.EquityPoint{},
		InitialEquity: initialEquity,
		FinalEquity:   initialEquity,
	}

	tp := plan.TakeProfitPercent() / 100
	sl := plan.StopLossPercent() / 100
	risk := plan.RiskPercent() / 100
	equity := initialEquity

	var pos *model.Position
	start := set.Warmup()

	for i := start; i < store.Len(); i++ {
		if (i-start)%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return model.BacktestResult{}, err
			}
		}
		c := store.At(i)

		if pos == nil {
			if plan.EntrySignal(i, set) {
				pos = &model.Position{
					EntryIndex: i,
					EntryTime:  c.Time,
					EntryPrice: c.Close,
					TakeProfit: c.Close * (1 + tp),
					StopLoss:   c.Close * (1 - sl),
				}
			}
			continue
		}
		if i == pos.EntryIndex {
			continue
		}

		var exitPrice float64
		var reason model.ExitReason
		switch {
		case c.High >= pos.TakeProfit:
			exitPrice, reason = pos.TakeProfit, model.ExitTakeProfit
		case c.Low <= pos.StopLoss:
			exitPrice, reason = pos.StopLoss, model.ExitStopLoss
		case plan.ExitSignal(i, set):
			exitPrice, reason = c.Close, model.ExitSignal
		default:
			continue
		}

		pnl := (exitPrice - pos.EntryPrice) / pos.EntryPrice * 100
		res.Trades = append(res.Trades, model.Trade{
			EntryIndex: pos.EntryIndex,
			ExitIndex:  i,
			EntryTime:  pos.EntryTime,
			ExitTime:   c.Time,
			EntryPrice: pos.EntryPrice,
			ExitPrice:  exitPrice,
			PnLPercent: pnl,
			Reason:     reason,
		})
		equity += equity * risk * pnl / 100
		res.EquityCurve = append(res.EquityCurve, model.EquityPoint{Index: i, Time: c.Time, Equity: equity})
		pos = nil
	}

	res.OpenPosition = pos
	res.FinalEquity = equity
	summarize(&res)
	return res, nil
}
