package indicator

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/markcheno/go-talib"

	"trading-backtestv1/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

func assertUndefined(t *testing.T, label string, s Series, upTo int) {
	t.Helper()
	for i := 0; i < upTo && i < len(s); i++ {
		if !math.IsNaN(s[i]) {
			t.Errorf("%s[%d] = %v, want undefined", label, i, s[i])
		}
	}
}

func randomWalk(n int, seed int64) []float64 {
	r := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	p := 100.0
	for i := range out {
		p += r.NormFloat64()
		if p < 1 {
			p = 1
		}
		out[i] = p
	}
	return out
}

func storeFromCloses(t *testing.T, closes []float64) *model.CandleStore {
	t.Helper()
	candles := make([]model.Candle, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		candles[i] = model.Candle{
			Time:  int64(i * 60),
			Open:  open,
			High:  math.Max(open, c) + 0.5,
			Low:   math.Min(open, c) - 0.5,
			Close: c,
		}
	}
	s, err := model.NewCandleStore("TEST", "1m", candles)
	if err != nil {
		t.Fatalf("NewCandleStore: %v", err)
	}
	return s
}

// ────────────────────────────────────────────────────────────
// SMA
// ────────────────────────────────────────────────────────────

func TestSMA_Correctness_Period3(t *testing.T) {
	// (100+102+104)/3 = 102, (102+104+103)/3 = 103, (104+103+105)/3 = 104
	got := SMAOf([]float64{100, 102, 104, 103, 105}, 3)
	assertUndefined(t, "SMA(3)", got, 2)
	for i, want := range map[int]float64{2: 102, 3: 103, 4: 104} {
		assertClose(t, "SMA(3)", got[i], want, 1e-9)
	}
}

func TestSMA_StreamingReady(t *testing.T) {
	sma := NewSMA(5)
	for i, p := range []float64{10, 11, 12, 13, 14, 15} {
		sma.Update(p)
		if want := i >= 4; sma.Ready() != want {
			t.Errorf("value %d: Ready()=%v, want %v", i, sma.Ready(), want)
		}
	}
	assertClose(t, "SMA(5)", sma.Value(), 13, 1e-9)

	sma.Reset()
	if sma.Ready() || !math.IsNaN(sma.Value()) {
		t.Error("Reset did not clear state")
	}
}

func TestSMA_MatchesTalib(t *testing.T) {
	closes := randomWalk(300, 7)
	for _, period := range []int{2, 5, 20, 50} {
		got := SMAOf(closes, period)
		want := talib.Sma(closes, period)
		assertUndefined(t, "SMA", got, period-1)
		for i := period - 1; i < len(closes); i++ {
			assertClose(t, "SMA vs talib", got[i], want[i], 1e-6)
		}
	}
}

// ────────────────────────────────────────────────────────────
// EMA
// ────────────────────────────────────────────────────────────

func TestEMA_SeededWithFirstValue(t *testing.T) {
	// k = 2/(3+1) = 0.5
	// ema0 = 10, ema1 = 12*0.5 + 10*0.5 = 11, ema2 = 14*0.5 + 11*0.5 = 12.5
	got := EMAOf([]float64{10, 12, 14}, 3)
	assertClose(t, "EMA[0]", got[0], 10, 1e-12)
	assertClose(t, "EMA[1]", got[1], 11, 1e-12)
	assertClose(t, "EMA[2]", got[2], 12.5, 1e-12)
}

func TestEMA_ConstantSeriesEqualsConstant(t *testing.T) {
	closes := make([]float64, 500)
	for i := range closes {
		closes[i] = 42.5
	}
	ema := EMAOf(closes, 20)
	sma := SMAOf(closes, 20)
	assertClose(t, "EMA(20) constant", ema.Last(), 42.5, 1e-9)
	assertClose(t, "EMA vs SMA", ema.Last(), sma.Last(), 1e-9)
}

func TestEMA_SkipsLeadingNaN(t *testing.T) {
	got := EMAOf([]float64{math.NaN(), math.NaN(), 5, 7}, 3)
	assertUndefined(t, "EMA", got, 2)
	assertClose(t, "EMA[2]", got[2], 5, 1e-12)
	assertClose(t, "EMA[3]", got[3], 6, 1e-12)
}

// ────────────────────────────────────────────────────────────
// RSI
// ────────────────────────────────────────────────────────────

func TestRSI_HandComputed(t *testing.T) {
	// period 2; deltas: +2, -1, +3
	// seed: avgGain = 1, avgLoss = 0.5 → RSI[2] = 100 - 100/3 = 66.6667
	// next: avgGain = (1*1 + 3)/2 = 2, avgLoss = 0.25 → RSI[3] = 100 - 100/9 = 88.8889
	got := RSIOf([]float64{10, 12, 11, 14}, 2)
	assertUndefined(t, "RSI", got, 2)
	assertClose(t, "RSI[2]", got[2], 66.666667, 1e-5)
	assertClose(t, "RSI[3]", got[3], 88.888889, 1e-5)
}

func TestRSI_SaturatesWithoutLosses(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	got := RSIOf(closes, 14)
	for i := 14; i < len(got); i++ {
		if got[i] != 100 {
			t.Fatalf("RSI[%d] = %v, want 100", i, got[i])
		}
	}
}

func TestRSI_Bounded(t *testing.T) {
	up := make([]float64, 100)
	down := make([]float64, 100)
	flat := make([]float64, 100)
	for i := range up {
		up[i] = float64(10 + i)
		down[i] = float64(200 - i)
		flat[i] = 50
	}
	paths := map[string][]float64{
		"up":     up,
		"down":   down,
		"flat":   flat,
		"random": randomWalk(1000, 11),
	}
	for name, closes := range paths {
		for i, v := range RSIOf(closes, 14) {
			if math.IsNaN(v) {
				continue
			}
			if v < 0 || v > 100 {
				t.Errorf("%s: RSI[%d] = %v out of [0,100]", name, i, v)
			}
		}
	}
}

func TestRSI_MatchesTalib(t *testing.T) {
	closes := randomWalk(400, 3)
	got := RSIOf(closes, 14)
	want := talib.Rsi(closes, 14)
	for i := 14; i < len(closes); i++ {
		assertClose(t, "RSI vs talib", got[i], want[i], 1e-6)
	}
}

// ────────────────────────────────────────────────────────────
// Multi-output indicators
// ────────────────────────────────────────────────────────────

func TestBollinger_PopulationStdDev(t *testing.T) {
	closes := randomWalk(200, 5)
	bb := BollingerOf(closes, 20, 2)
	sd := talib.StdDev(closes, 20, 1)
	assertUndefined(t, "BB upper", bb.Upper, 19)
	for i := 19; i < len(closes); i++ {
		assertClose(t, "BB upper", bb.Upper[i], bb.Middle[i]+2*sd[i], 1e-6)
		assertClose(t, "BB lower", bb.Lower[i], bb.Middle[i]-2*sd[i], 1e-6)
		assertClose(t, "BB width", bb.Bandwidth[i], (bb.Upper[i]-bb.Lower[i])/bb.Middle[i]*100, 1e-9)
	}
}

func TestMACD_Relations(t *testing.T) {
	closes := randomWalk(120, 9)
	m := MACDOf(closes, 12, 26, 9)
	fast, slow := EMAOf(closes, 12), EMAOf(closes, 26)
	sig := EMAOf(m.Line, 9)
	for i := range closes {
		assertClose(t, "MACD line", m.Line[i], fast[i]-slow[i], 1e-12)
		assertClose(t, "MACD signal", m.Signal[i], sig[i], 1e-12)
		assertClose(t, "MACD hist", m.Histogram[i], m.Line[i]-m.Signal[i], 1e-12)
	}
	assertClose(t, "MACD[0]", m.Line[0], 0, 1e-12)
}

func TestStochRSI(t *testing.T) {
	closes := randomWalk(200, 13)
	got := StochRSIOf(closes, 14, 14)
	assertUndefined(t, "StochRSI", got, 27)
	for i := 27; i < len(got); i++ {
		if got[i] < 0 || got[i] > 100 {
			t.Errorf("StochRSI[%d] = %v out of range", i, got[i])
		}
	}

	rising := make([]float64, 40)
	for i := range rising {
		rising[i] = float64(i + 1)
	}
	flat := StochRSIOf(rising, 14, 14)
	for i := 27; i < len(flat); i++ {
		if flat[i] != 50 {
			t.Errorf("flat RSI window: StochRSI[%d] = %v, want 50", i, flat[i])
		}
	}
}

func TestATR(t *testing.T) {
	candles := []model.Candle{
		{Open: 10, High: 12, Low: 9, Close: 11},  // TR = 3
		{Open: 11, High: 14, Low: 11, Close: 13}, // TR = max(3, 3, 0) = 3
		{Open: 13, High: 13, Low: 8, Close: 9},   // TR = max(5, 0, 5) = 5
		{Open: 9, High: 10, Low: 9, Close: 10},   // TR = max(1, 1, 0) = 1
	}
	tr := TrueRange(candles)
	for i, want := range []float64{3, 3, 5, 1} {
		assertClose(t, "TR", tr[i], want, 1e-12)
	}
	atr := ATROf(candles, 2)
	assertUndefined(t, "ATR", atr, 1)
	assertClose(t, "ATR[1]", atr[1], 3, 1e-12)
	assertClose(t, "ATR[2]", atr[2], 4, 1e-12)
	assertClose(t, "ATR[3]", atr[3], 3, 1e-12)
}

func TestIchimoku(t *testing.T) {
	n := 60
	candles := make([]model.Candle, n)
	for i := range candles {
		p := float64(100 + i)
		candles[i] = model.Candle{Open: p, High: p + 1, Low: p - 1, Close: p}
	}
	ich := IchimokuOf(candles)
	assertUndefined(t, "tenkan", ich.Tenkan, TenkanPeriod-1)
	assertUndefined(t, "senkouB", ich.SenkouB, SenkouBPeriod-1)

	// At bar 59: tenkan window 51..59 → (160+150)/2 = 155, kijun window 34..59 → (160+133)/2 = 146.5
	assertClose(t, "tenkan", ich.Tenkan[59], 155, 1e-12)
	assertClose(t, "kijun", ich.Kijun[59], 146.5, 1e-12)
	assertClose(t, "senkouA", ich.SenkouA[59], (155+146.5)/2, 1e-12)
	// senkouB window 8..59 → (160+107)/2 = 133.5
	assertClose(t, "senkouB", ich.SenkouB[59], 133.5, 1e-12)

	if ich.Cloud[59] != model.Bullish {
		t.Errorf("cloud = %s, want bullish in an uptrend", ich.Cloud[59])
	}
	if ich.Cloud[10] != model.Neutral {
		t.Errorf("cloud before warm-up = %s, want neutral", ich.Cloud[10])
	}

	cloud := ich.CloudSeries()
	assertUndefined(t, "cloud", cloud, SenkouBPeriod-1)
	assertClose(t, "cloud", cloud[59], 1, 0)
}

func TestSeries_JSONNullForUndefined(t *testing.T) {
	s := Series{math.NaN(), 1.5, math.NaN(), 3}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[null,1.5,null,3]" {
		t.Errorf("Marshal = %s", data)
	}

	var back Series
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if len(back) != 4 || !math.IsNaN(back[0]) || back[1] != 1.5 || back[3] != 3 {
		t.Errorf("Unmarshal = %v", back)
	}
}
