package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trading-backtestv1/internal/backtest"
	"trading-backtestv1/internal/logger"
	"trading-backtestv1/internal/model"
	"trading-backtestv1/internal/notification"
	"trading-backtestv1/internal/strategy"
)

// BacktestRequest selects a strategy and the candles to run it on. Exactly
// one of StrategyID, Strategy or Preset must be set. Symbol and Timeframe
// fall back to the strategy's own.
type BacktestRequest struct {
	StrategyID    string          `json:"strategyId,omitempty"`
	Strategy      *model.Strategy `json:"strategy,omitempty"`
	Preset        string          `json:"preset,omitempty"`
	Symbol        string          `json:"symbol,omitempty"`
	Timeframe     string          `json:"timeframe,omitempty"`
	From          int64           `json:"from,omitempty" validate:"gte=0"`
	To            int64           `json:"to,omitempty" validate:"gte=0"`
	InitialEquity float64         `json:"initialEquity,omitempty" validate:"gte=0"`
	Save          bool            `json:"save"`
}

// Run is a finished backtest with its chart markers.
type Run struct {
	Result  model.BacktestResult `json:"result"`
	Markers []model.ChartMarker  `json:"markers"`
}

// CompareRequest runs several strategies over the same candles.
type CompareRequest struct {
	StrategyIDs []string `json:"strategyIds"`
	Presets     []string `json:"presets"`
	Symbol      string   `json:"symbol" validate:"required"`
	Timeframe   string   `json:"timeframe" validate:"required"`
	From        int64    `json:"from,omitempty" validate:"gte=0"`
	To          int64    `json:"to,omitempty" validate:"gte=0"`
}

// Comparison is one row of a CompareRequest result.
type Comparison struct {
	Strategy string                `json:"strategy"`
	Result   *model.BacktestResult `json:"result,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// RunBacktest resolves and compiles the strategy, runs it, and on success
// persists (when Save is set), records metrics and sends a run-completed
// notification. Notification failures are logged, not returned.
func (s *Service) RunBacktest(ctx context.Context, req BacktestRequest) (Run, error) {
	st, err := s.resolveStrategy(ctx, req)
	if err != nil {
		return Run{}, err
	}
	plan, err := strategy.Compile(st)
	if err != nil {
		return Run{}, err
	}

	r := Range{Symbol: req.Symbol, Timeframe: req.Timeframe, From: req.From, To: req.To}
	if r.Symbol == "" {
		r.Symbol = st.Symbol
	}
	if r.Timeframe == "" {
		r.Timeframe = st.Timeframe
	}
	if r.Symbol == "" || r.Timeframe == "" {
		return Run{}, fmt.Errorf("symbol and timeframe are required: %w", model.ErrMalformedStrategy)
	}

	store, err := s.LoadStore(ctx, r)
	if err != nil {
		return Run{}, err
	}

	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(r.Symbol, time.Now()))
	engine := s.backtester
	if req.InitialEquity > 0 {
		engine = backtest.NewEngine(s.indicators, req.InitialEquity)
	}

	start := time.Now()
	res, err := engine.Run(ctx, store, plan)
	s.observeRun(res, time.Since(start), err)
	if err != nil {
		return Run{}, err
	}

	if req.Save {
		res, err = s.deps.Runs.SaveRun(ctx, res)
		if err != nil {
			return Run{}, fmt.Errorf("save run: %w", err)
		}
	}
	s.notify(ctx, plan.Strategy.Name, res)

	return Run{Result: res, Markers: backtest.Markers(res)}, nil
}

// Compare backtests several strategies over one candle range concurrently.
// A strategy that fails to resolve or compile gets an error row instead of
// failing the whole comparison.
func (s *Service) Compare(ctx context.Context, req CompareRequest) ([]Comparison, error) {
	r := Range{Symbol: req.Symbol, Timeframe: req.Timeframe, From: req.From, To: req.To}
	store, err := s.LoadStore(ctx, r)
	if err != nil {
		return nil, err
	}

	rows := make([]Comparison, 0, len(req.StrategyIDs)+len(req.Presets))
	var plans []*strategy.Plan
	var planRows []int

	add := func(label string, st model.Strategy, err error) {
		if err == nil {
			var plan *strategy.Plan
			if plan, err = strategy.Compile(st); err == nil {
				plans = append(plans, plan)
				planRows = append(planRows, len(rows))
			}
		}
		row := Comparison{Strategy: label}
		if err != nil {
			row.Error = err.Error()
		}
		rows = append(rows, row)
	}
	for _, id := range req.StrategyIDs {
		st, err := s.deps.Strategies.GetStrategy(ctx, id)
		add(id, st, err)
	}
	for _, name := range req.Presets {
		st, ok := strategy.Preset(name)
		var err error
		if !ok {
			err = fmt.Errorf("unknown preset %q: %w", name, model.ErrNotFound)
		}
		add(name, st, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no strategies to compare: %w", model.ErrMalformedStrategy)
	}

	start := time.Now()
	outcomes, err := s.backtester.RunMany(ctx, store, plans, s.opts.RunWorkers)
	if err != nil {
		return nil, err
	}
	for i, o := range outcomes {
		row := &rows[planRows[i]]
		if o.Err != nil {
			row.Error = o.Err.Error()
			continue
		}
		res := o.Result
		row.Result = &res
	}
	slog.Info("comparison complete", "key", store.Key(), "strategies", len(rows), "took", time.Since(start))
	return rows, nil
}

func (s *Service) GetRun(ctx context.Context, id string) (model.BacktestResult, error) {
	return s.deps.Runs.GetRun(ctx, id)
}

// ListRuns returns stored runs, newest first. An empty strategyID lists all.
func (s *Service) ListRuns(ctx context.Context, strategyID string) ([]model.BacktestResult, error) {
	return s.deps.Runs.ListRuns(ctx, strategyID)
}

func (s *Service) resolveStrategy(ctx context.Context, req BacktestRequest) (model.Strategy, error) {
	set := 0
	for _, ok := range []bool{req.StrategyID != "", req.Strategy != nil, req.Preset != ""} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return model.Strategy{}, fmt.Errorf("exactly one of strategyId, strategy or preset is required: %w", model.ErrMalformedStrategy)
	}

	switch {
	case req.StrategyID != "":
		return s.deps.Strategies.GetStrategy(ctx, req.StrategyID)
	case req.Strategy != nil:
		return *req.Strategy, nil
	default:
		st, ok := strategy.Preset(req.Preset)
		if !ok {
			return model.Strategy{}, fmt.Errorf("unknown preset %q: %w", req.Preset, model.ErrNotFound)
		}
		return st, nil
	}
}

func (s *Service) observeRun(res model.BacktestResult, took time.Duration, err error) {
	if s.deps.Health != nil && err == nil {
		s.deps.Health.MarkRun(time.Now())
	}
	m := s.deps.Metrics
	if m == nil {
		return
	}
	if err != nil {
		m.BacktestRunsTotal.WithLabelValues("error").Inc()
		return
	}
	m.BacktestRunsTotal.WithLabelValues("ok").Inc()
	m.BacktestDur.Observe(took.Seconds())
	m.BacktestBars.Observe(float64(res.Bars))
	for _, t := range res.Trades {
		m.TradesTotal.WithLabelValues(string(t.Reason)).Inc()
	}
}

func (s *Service) notify(ctx context.Context, name string, res model.BacktestResult) {
	if s.deps.Notifier == nil {
		return
	}
	// delivery must not be cut short by the request finishing
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := s.deps.Notifier.Send(nctx, notification.RunCompleted(name, res)); err != nil {
		slog.Warn("run notification failed", append(logger.LogWithTrace(ctx), "error", err)...)
	}
}
