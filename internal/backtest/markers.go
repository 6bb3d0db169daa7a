package backtest

import (
	"fmt"

	"trading-backtestv1/internal/model"
)

// Markers derives chart annotations from a result: one entry and one exit
// marker per trade, plus an entry marker for a position still open.
func Markers(res model.BacktestResult) []model.ChartMarker {
	out := make([]model.ChartMarker, 0, 2*len(res.Trades)+1)
	for _, t := range res.Trades {
		out = append(out,
			model.ChartMarker{Time: t.EntryTime, Kind: model.MarkerEntry, Price: t.EntryPrice, Label: "Entry"},
			model.ChartMarker{Time: t.ExitTime, Kind: model.MarkerFor(t.Reason), Price: t.ExitPrice, Label: fmt.Sprintf("%+.2f%%", t.PnLPercent)},
		)
	}
	if p := res.OpenPosition; p != nil {
		out = append(out, model.ChartMarker{Time: p.EntryTime, Kind: model.MarkerEntry, Price: p.EntryPrice, Label: "Entry (open)"})
	}
	return out
}
