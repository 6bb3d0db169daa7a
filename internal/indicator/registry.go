package indicator

import (
	"sort"

	"trading-backtestv1/internal/model"
)

// computeFunc is a pure transform from a candle store to one aligned series.
type computeFunc func(s *model.CandleStore, period int) Series

type kindSpec struct {
	periodic      bool
	defaultPeriod int
	compute       computeFunc
}

// Default parameters for multi-output indicators.
const (
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignalLen   = 9
	BollingerPeriod = 20
	BollingerMult   = 2.0
	StochPeriod     = 14
)

var registry = map[Kind]kindSpec{
	KindOpen:   {compute: func(s *model.CandleStore, _ int) Series { return s.Opens() }},
	KindHigh:   {compute: func(s *model.CandleStore, _ int) Series { return s.Highs() }},
	KindLow:    {compute: func(s *model.CandleStore, _ int) Series { return s.Lows() }},
	KindClose:  {compute: func(s *model.CandleStore, _ int) Series { return s.Closes() }},
	KindVolume: {compute: func(s *model.CandleStore, _ int) Series { return s.Volumes() }},

	KindSMA: {periodic: true, defaultPeriod: 20, compute: func(s *model.CandleStore, p int) Series { return SMAOf(s.Closes(), p) }},
	KindEMA: {periodic: true, defaultPeriod: 20, compute: func(s *model.CandleStore, p int) Series { return EMAOf(s.Closes(), p) }},
	KindRSI: {periodic: true, defaultPeriod: 14, compute: func(s *model.CandleStore, p int) Series { return RSIOf(s.Closes(), p) }},

	KindMACD:       {compute: func(s *model.CandleStore, _ int) Series { return defaultMACD(s).Line }},
	KindMACDSignal: {compute: func(s *model.CandleStore, _ int) Series { return defaultMACD(s).Signal }},
	KindMACDHist:   {compute: func(s *model.CandleStore, _ int) Series { return defaultMACD(s).Histogram }},

	KindBBUpper:  {periodic: true, defaultPeriod: BollingerPeriod, compute: func(s *model.CandleStore, p int) Series { return BollingerOf(s.Closes(), p, BollingerMult).Upper }},
	KindBBMiddle: {periodic: true, defaultPeriod: BollingerPeriod, compute: func(s *model.CandleStore, p int) Series { return BollingerOf(s.Closes(), p, BollingerMult).Middle }},
	KindBBLower:  {periodic: true, defaultPeriod: BollingerPeriod, compute: func(s *model.CandleStore, p int) Series { return BollingerOf(s.Closes(), p, BollingerMult).Lower }},
	KindBBWidth:  {periodic: true, defaultPeriod: BollingerPeriod, compute: func(s *model.CandleStore, p int) Series { return BollingerOf(s.Closes(), p, BollingerMult).Bandwidth }},

	KindStochRSI: {periodic: true, defaultPeriod: 14, compute: func(s *model.CandleStore, p int) Series { return StochRSIOf(s.Closes(), p, StochPeriod) }},
	KindATR:      {periodic: true, defaultPeriod: 14, compute: func(s *model.CandleStore, p int) Series { return ATROf(s.Candles(), p) }},

	KindTenkan:  {compute: func(s *model.CandleStore, _ int) Series { return IchimokuOf(s.Candles()).Tenkan }},
	KindKijun:   {compute: func(s *model.CandleStore, _ int) Series { return IchimokuOf(s.Candles()).Kijun }},
	KindSenkouA: {compute: func(s *model.CandleStore, _ int) Series { return IchimokuOf(s.Candles()).SenkouA }},
	KindSenkouB: {compute: func(s *model.CandleStore, _ int) Series { return IchimokuOf(s.Candles()).SenkouB }},
	KindCloud:   {compute: func(s *model.CandleStore, _ int) Series { return IchimokuOf(s.Candles()).CloudSeries() }},
}

func defaultMACD(s *model.CandleStore) MACD {
	return MACDOf(s.Closes(), MACDFast, MACDSlow, MACDSignalLen)
}

// Kinds lists every supported indicator kind.
func Kinds() []Kind {
	out := make([]Kind, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ComputeRef evaluates a single reference against the store.
func ComputeRef(s *model.CandleStore, r Ref) (Series, error) {
	spec, ok := registry[r.Kind]
	if !ok {
		return nil, unknownKind(r.Kind)
	}
	return spec.compute(s, r.Period), nil
}
