package indicator

// MACD holds the three aligned MACD outputs.
type MACD struct {
	Line      Series `json:"line"`
	Signal    Series `json:"signal"`
	Histogram Series `json:"histogram"`
}

// MACDOf computes EMA(fast) - EMA(slow), its EMA(signal) and the histogram.
// With first-value seeding every output is defined from bar 0.
func MACDOf(closes []float64, fast, slow, signal int) MACD {
	n := len(closes)
	if fast < 1 || slow < 1 || signal < 1 {
		return MACD{Line: undefined(n), Signal: undefined(n), Histogram: undefined(n)}
	}
	f := EMAOf(closes, fast)
	s := EMAOf(closes, slow)
	line := make(Series, n)
	for i := range line {
		line[i] = f[i] - s[i]
	}
	sig := EMAOf(line, signal)
	hist := make(Series, n)
	for i := range hist {
		hist[i] = line[i] - sig[i]
	}
	return MACD{Line: line, Signal: sig, Histogram: hist}
}
