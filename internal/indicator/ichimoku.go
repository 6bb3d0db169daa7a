package indicator

import (
	"math"

	"trading-backtestv1/internal/model"
)

// Standard Ichimoku lookbacks.
const (
	TenkanPeriod  = 9
	KijunPeriod   = 26
	SenkouBPeriod = 52
)

// Ichimoku components are aligned to the source bars; the senkou spans are
// not shifted forward.
type Ichimoku struct {
	Tenkan  Series            `json:"tenkan"`
	Kijun   Series            `json:"kijun"`
	SenkouA Series            `json:"senkouA"`
	SenkouB Series            `json:"senkouB"`
	Cloud   []model.Direction `json:"cloud"`
}

func IchimokuOf(candles []model.Candle) Ichimoku {
	n := len(candles)
	ich := Ichimoku{
		Tenkan:  midpoint(candles, TenkanPeriod),
		Kijun:   midpoint(candles, KijunPeriod),
		SenkouA: undefined(n),
		SenkouB: midpoint(candles, SenkouBPeriod),
		Cloud:   make([]model.Direction, n),
	}
	for i := 0; i < n; i++ {
		ich.SenkouA[i] = (ich.Tenkan[i] + ich.Kijun[i]) / 2 // NaN propagates
		ich.Cloud[i] = model.Neutral
		a, okA := ich.SenkouA.At(i)
		b, okB := ich.SenkouB.At(i)
		if !okA || !okB {
			continue
		}
		if a > b {
			ich.Cloud[i] = model.Bullish
		} else {
			ich.Cloud[i] = model.Bearish
		}
	}
	return ich
}

// CloudSeries encodes the cloud direction as +1 (bullish), -1 (bearish) or
// undefined before both spans exist, so conditions can compare against 0.
func (ich Ichimoku) CloudSeries() Series {
	out := undefined(len(ich.Cloud))
	for i, d := range ich.Cloud {
		switch d {
		case model.Bullish:
			out[i] = 1
		case model.Bearish:
			out[i] = -1
		}
	}
	return out
}

// midpoint is (highest high + lowest low) / 2 over the trailing period.
func midpoint(candles []model.Candle, period int) Series {
	out := undefined(len(candles))
	for i := period - 1; i < len(candles); i++ {
		hi, lo := math.Inf(-1), math.Inf(1)
		for _, c := range candles[i-period+1 : i+1] {
			hi = math.Max(hi, c.High)
			lo = math.Min(lo, c.Low)
		}
		out[i] = (hi + lo) / 2
	}
	return out
}
