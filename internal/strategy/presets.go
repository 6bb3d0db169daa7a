package strategy

import (
	"fmt"
	"sort"

	"trading-backtestv1/internal/model"
)

// SMACrossover buys when the fast SMA crosses above the slow SMA (golden
// cross) and exits on the death cross. The optional RSI filter skips entries
// while RSI(14) is overbought (>70).
func SMACrossover(fast, slow int, rsiFilter bool) model.Strategy {
	fastRef := fmt.Sprintf("SMA_%d", fast)
	slowRef := fmt.Sprintf("SMA_%d", slow)
	s := model.Strategy{
		Name: fmt.Sprintf("SMA Crossover %d/%d", fast, slow),
		Entry: []model.Condition{
			{Indicator: fastRef, Operator: model.OpCrossesAbove, Compare: slowRef},
		},
		Exit: []model.Condition{
			{Indicator: fastRef, Operator: model.OpCrossesBelow, Compare: slowRef},
		},
	}
	if rsiFilter {
		s.Entry = append(s.Entry, model.Condition{Indicator: "RSI_14", Operator: model.OpLessThan, Value: model.Float(70)})
	}
	return s
}

// RSIMeanReversion buys when RSI drops below oversold and exits once it
// rises above overbought.
func RSIMeanReversion(period int, oversold, overbought float64) model.Strategy {
	ref := fmt.Sprintf("RSI_%d", period)
	return model.Strategy{
		Name: fmt.Sprintf("RSI Mean Reversion %d", period),
		Entry: []model.Condition{
			{Indicator: ref, Operator: model.OpLessThan, Value: model.Float(oversold)},
		},
		Exit: []model.Condition{
			{Indicator: ref, Operator: model.OpGreaterThan, Value: model.Float(overbought)},
		},
	}
}

// MACDMomentum buys on a MACD signal-line cross while price is above the
// 200 EMA, and exits on the opposite cross.
func MACDMomentum() model.Strategy {
	return model.Strategy{
		Name: "MACD Momentum",
		Entry: []model.Condition{
			{Indicator: "MACD", Operator: model.OpCrossesAbove, Compare: "MACD_SIGNAL"},
			{Indicator: "CLOSE", Operator: model.OpGreaterThan, Compare: "EMA_200"},
		},
		Exit: []model.Condition{
			{Indicator: "MACD", Operator: model.OpCrossesBelow, Compare: "MACD_SIGNAL"},
		},
	}
}

var presets = map[string]func() model.Strategy{
	"sma_crossover":      func() model.Strategy { return SMACrossover(9, 21, true) },
	"rsi_mean_reversion": func() model.Strategy { return RSIMeanReversion(14, 30, 70) },
	"macd_momentum":      MACDMomentum,
}

// Preset returns a named built-in strategy.
func Preset(name string) (model.Strategy, bool) {
	f, ok := presets[name]
	if !ok {
		return model.Strategy{}, false
	}
	return f(), true
}

// PresetNames lists the built-in strategies.
func PresetNames() []string {
	out := make([]string, 0, len(presets))
	for k := range presets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
