package indicator

import (
	"math"

	"trading-backtestv1/internal/model"
)

// TrueRange returns the per-bar true range. Bar 0 has no previous close and
// uses high - low.
func TrueRange(candles []model.Candle) Series {
	tr := make(Series, len(candles))
	for i, c := range candles {
		if i == 0 {
			tr[i] = c.High - c.Low
			continue
		}
		prev := candles[i-1].Close
		tr[i] = math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prev), math.Abs(c.Low-prev)))
	}
	return tr
}

// ATROf is the simple average of the trailing period true ranges.
func ATROf(candles []model.Candle, period int) Series {
	return SMAOf(TrueRange(candles), period)
}
