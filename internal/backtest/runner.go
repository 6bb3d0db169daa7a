package backtest

import (
	"context"
	"fmt"
	"sync"

	"trading-backtestv1/internal/indicator"
	"trading-backtestv1/internal/model"
	"trading-backtestv1/internal/strategy"
)

// Outcome is the result of one plan in a RunMany batch.
type Outcome struct {
	Plan   *strategy.Plan
	Result model.BacktestResult
	Err    error
}

// RunMany backtests independent plans over the same store. Indicators for
// all plans are computed once; each simulation then runs on its own
// goroutine, at most workers at a time. Outcomes keep the input order.
func (e *Engine) RunMany(ctx context.Context, store *model.CandleStore, plans []*strategy.Plan, workers int) ([]Outcome, error) {
	if workers < 1 {
		workers = 1
	}
	var refs []indicator.Ref
	for _, p := range plans {
		refs = append(refs, p.Refs()...)
	}
	set, err := e.indicators.Compute(ctx, store, refs)
	if err != nil {
		return nil, fmt.Errorf("backtest indicators: %w", err)
	}

	out := make([]Outcome, len(plans))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, p := range plans {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, p *strategy.Plan) {
			defer wg.Done()
			defer func() { <-sem }()
			// each plan starts at its own warm-up, not the union's
			own, err := set.Subset(p.Refs())
			if err == nil {
				out[i].Result, err = Simulate(ctx, store, p, own, e.initialEquity)
			}
			out[i].Plan = p
			out[i].Err = err
		}(i, p)
	}
	wg.Wait()
	return out, nil
}
