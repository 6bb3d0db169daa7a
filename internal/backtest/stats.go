package backtest

import (
	"math"

	"trading-backtestv1/internal/model"
)

// summarize fills the statistics from trades and the equity curve. With no
// trades every statistic stays zero.
func summarize(res *model.BacktestResult) {
	n := len(res.Trades)
	res.TotalTrades = n
	if n == 0 {
		return
	}

	var winSum, lossSum float64
	for _, t := range res.Trades {
		switch {
		case t.Win():
			res.Wins++
			winSum += t.PnLPercent
		case t.Loss():
			res.Losses++
			lossSum += t.PnLPercent
		}
	}

	res.WinRate = float64(res.Wins) / float64(n)
	res.ProfitFactor = profitFactor(res.Wins, winSum, res.Losses, lossSum)
	res.MaxDrawdown = maxDrawdown(res.InitialEquity, res.EquityCurve)
	res.SharpeRatio = sharpe(res.Trades)
	if res.InitialEquity > 0 {
		res.TotalReturn = (res.FinalEquity - res.InitialEquity) / res.InitialEquity * 100
	}
}

// profitFactor is mean win / |mean loss|. Without losses it falls back to
// the mean win so the result stays finite.
func profitFactor(wins int, winSum float64, losses int, lossSum float64) float64 {
	meanWin := 0.0
	if wins > 0 {
		meanWin = winSum / float64(wins)
	}
	if losses == 0 {
		return meanWin
	}
	return meanWin / math.Abs(lossSum/float64(losses))
}

// maxDrawdown is the largest (peak - equity) / peak in percent, with the
// running peak seeded by the initial equity.
func maxDrawdown(initial float64, curve []model.EquityPoint) float64 {
	peak := initial
	dd := 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if d := (peak - p.Equity) / peak * 100; d > dd {
				dd = d
			}
		}
	}
	return dd
}

// sharpe is the per-trade mean return over its population standard deviation.
func sharpe(trades []model.Trade) float64 {
	if len(trades) < 2 {
		return 0
	}
	var mean float64
	for _, t := range trades {
		mean += t.PnLPercent
	}
	mean /= float64(len(trades))
	var ss float64
	for _, t := range trades {
		d := t.PnLPercent - mean
		ss += d * d
	}
	sd := math.Sqrt(ss / float64(len(trades)))
	if sd == 0 {
		return 0
	}
	return mean / sd
}
