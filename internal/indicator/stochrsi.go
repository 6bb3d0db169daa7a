package indicator

import "math"

// StochRSIOf normalises RSI(rsiPeriod) within its trailing stochPeriod window
// to 0..100. A flat window yields 50.
func StochRSIOf(closes []float64, rsiPeriod, stochPeriod int) Series {
	out := undefined(len(closes))
	if rsiPeriod < 1 || stochPeriod < 1 || rsiPeriod >= len(closes) || stochPeriod > len(closes) {
		return out
	}
	rsi := RSIOf(closes, rsiPeriod)
	start := rsiPeriod + stochPeriod - 1
	for i := start; i < len(closes); i++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range rsi[i-stochPeriod+1 : i+1] {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if hi == lo {
			out[i] = 50
			continue
		}
		out[i] = (rsi[i] - lo) / (hi - lo) * 100
	}
	return out
}
