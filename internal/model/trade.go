package model

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitTakeProfit ExitReason = "take_profit"
	ExitStopLoss   ExitReason = "stop_loss"
	ExitSignal     ExitReason = "signal"
)

// Position is the single open long position held during a backtest.
type Position struct {
	EntryIndex int     `json:"entryIndex"`
	EntryTime  int64   `json:"entryTime"`
	EntryPrice float64 `json:"entryPrice"`
	TakeProfit float64 `json:"takeProfit"`
	StopLoss   float64 `json:"stopLoss"`
}

// Trade is a closed position.
type Trade struct {
	EntryIndex int        `json:"entryIndex"`
	ExitIndex  int        `json:"exitIndex"`
	EntryTime  int64      `json:"entryTime"`
	ExitTime   int64      `json:"exitTime"`
	EntryPrice float64    `json:"entryPrice"`
	ExitPrice  float64    `json:"exitPrice"`
	PnLPercent float64    `json:"pnlPercent"`
	Reason     ExitReason `json:"reason"`
}

// Win reports a strictly positive return. Break-even trades are neither wins nor losses.
func (t Trade) Win() bool { return t.PnLPercent > 0 }

// Loss reports a strictly negative return.
func (t Trade) Loss() bool { return t.PnLPercent < 0 }

// EquityPoint is the account value after a closed trade.
type EquityPoint struct {
	Index  int     `json:"index"`
	Time   int64   `json:"time"`
	Equity float64 `json:"equity"`
}

// BacktestResult is the outcome of running one strategy over one candle store.
// WinRate is a fraction in [0,1]; MaxDrawdown is a percentage of peak equity.
type BacktestResult struct {
	RunID         string        `json:"runId,omitempty"`
	StrategyID    string        `json:"strategyId,omitempty"`
	Symbol        string        `json:"symbol"`
	Timeframe     string        `json:"timeframe"`
	Bars          int           `json:"bars"`
	Trades        []Trade       `json:"trades"`
	EquityCurve   []EquityPoint `json:"equityCurve"`
	OpenPosition  *Position     `json:"openPosition,omitempty"`
	TotalTrades   int           `json:"totalTrades"`
	Wins          int           `json:"wins"`
	Losses        int           `json:"losses"`
	WinRate       float64       `json:"winRate"`
	ProfitFactor  float64       `json:"profitFactor"`
	MaxDrawdown   float64       `json:"maxDrawdown"`
	SharpeRatio   float64       `json:"sharpeRatio"`
	TotalReturn   float64       `json:"totalReturn"`
	InitialEquity float64       `json:"initialEquity"`
	FinalEquity   float64       `json:"finalEquity"`
}

// MarkerKind tags a chart marker.
type MarkerKind string

const (
	MarkerEntry      MarkerKind = "entry"
	MarkerTakeProfit MarkerKind = "take_profit"
	MarkerStopLoss   MarkerKind = "stop_loss"
	MarkerSignalExit MarkerKind = "signal_exit"
)

// MarkerFor maps an exit reason to its chart marker kind.
func MarkerFor(r ExitReason) MarkerKind {
	switch r {
	case ExitTakeProfit:
		return MarkerTakeProfit
	case ExitStopLoss:
		return MarkerStopLoss
	default:
		return MarkerSignalExit
	}
}

// ChartMarker is a point to draw on a price chart.
type ChartMarker struct {
	Time  int64      `json:"time"`
	Kind  MarkerKind `json:"kind"`
	Price float64    `json:"price"`
	Label string     `json:"label,omitempty"`
}
