package pattern

import (
	"math"
	"testing"

	"trading-backtestv1/internal/model"
)

func bar(o, h, l, c float64) model.Candle {
	return model.Candle{Open: o, High: h, Low: l, Close: c}
}

func withTimes(cs []model.Candle) []model.Candle {
	for i := range cs {
		cs[i].Time = int64(i * 60)
	}
	return cs
}

type hit struct {
	kind  string
	index int
}

func hits(ms []model.PatternMatch) []hit {
	out := make([]hit, len(ms))
	for i, m := range ms {
		out[i] = hit{m.Kind, m.Index}
	}
	return out
}

func assertHits(t *testing.T, got []model.PatternMatch, want ...hit) {
	t.Helper()
	g := hits(got)
	if len(g) != len(want) {
		t.Fatalf("got %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Errorf("match %d = %v, want %v", i, g[i], want[i])
		}
	}
}

// ────────────────────────────────────────────────────────────
// Candlesticks
// ────────────────────────────────────────────────────────────

func TestCandlesticks_Doji(t *testing.T) {
	candles := withTimes([]model.Candle{
		bar(100, 105, 95, 104),    // body 0.4 of range
		bar(104, 106, 102, 104.1), // body 0.025 of range
		bar(104, 108, 103, 107),   // same direction as bar 1, no engulfing
	})
	got := Candlesticks(candles)
	assertHits(t, got, hit{KindDoji, 1})
	if got[0].Direction != model.Neutral {
		t.Errorf("doji direction = %s", got[0].Direction)
	}
	if got[0].Confidence <= 0 || got[0].Confidence > 1 {
		t.Errorf("confidence %v out of (0,1]", got[0].Confidence)
	}
}

func TestCandlesticks_Hammer(t *testing.T) {
	candles := withTimes([]model.Candle{
		bar(100, 101, 99, 100.5),   // lower shadow exactly 2x body: not a hammer
		bar(100, 100.6, 96, 100.5), // lower 4.0 > 1.0, upper 0.1 < 0.25
		bar(100.5, 102, 100, 101.8),
	})
	got := Candlesticks(candles)
	assertHits(t, got, hit{KindHammer, 1})
	if got[0].Direction != model.Bullish {
		t.Errorf("hammer direction = %s", got[0].Direction)
	}
}

func TestCandlesticks_ShootingStar(t *testing.T) {
	candles := withTimes([]model.Candle{
		bar(100, 104, 99.9, 100.5), // upper 3.5 > 1.0, lower 0.1 < 0.25
	})
	assertHits(t, Candlesticks(candles), hit{KindShootingStar, 0})
}

func TestCandlesticks_Engulfing(t *testing.T) {
	candles := withTimes([]model.Candle{
		bar(102, 102.5, 99.5, 100), // bearish, body 2
		bar(99.5, 104, 99, 103.5),  // bullish, body 4 > 3
		bar(103.5, 104, 96.8, 97),  // bearish, body 6.5 > 6
	})
	got := Candlesticks(candles)
	assertHits(t, got, hit{KindBullishEngulfing, 1}, hit{KindBearishEngulfing, 2})
	if got[0].Direction != model.Bullish || got[1].Direction != model.Bearish {
		t.Errorf("directions = %s, %s", got[0].Direction, got[1].Direction)
	}
}

func TestCandlesticks_EngulfingNeedsStrictRatio(t *testing.T) {
	candles := withTimes([]model.Candle{
		bar(102, 102.5, 99.5, 100), // body 2
		bar(99.5, 103, 99, 102.5),  // body 3 == 1.5x, not engulfing
	})
	if got := Candlesticks(candles); len(got) != 0 {
		t.Fatalf("unexpected matches %v", hits(got))
	}
}

// ────────────────────────────────────────────────────────────
// Pivots
// ────────────────────────────────────────────────────────────

func flatBars(prices ...float64) []model.Candle {
	cs := make([]model.Candle, len(prices))
	for i, p := range prices {
		cs[i] = model.Candle{Time: int64(i * 60), Open: p, High: p, Low: p, Close: p}
	}
	return cs
}

func TestFractalPivots(t *testing.T) {
	got := FractalPivots(flatBars(1, 3, 2, 5, 1, 4, 0.5), 1)
	want := []Pivot{
		{Index: 1, Price: 3, High: true},
		{Index: 2, Price: 2},
		{Index: 3, Price: 5, High: true},
		{Index: 4, Price: 1},
		{Index: 5, Price: 4, High: true},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i].Index != want[i].Index || got[i].Price != want[i].Price || got[i].High != want[i].High {
			t.Errorf("pivot %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if FractalPivots(flatBars(1, 2), 1) != nil {
		t.Error("expected nil for too few bars")
	}
}

func TestZigZag_KeepsExtremes(t *testing.T) {
	in := []Pivot{
		{Index: 0, Price: 10, High: true},
		{Index: 1, Price: 12, High: true},
		{Index: 2, Price: 5},
		{Index: 3, Price: 4},
		{Index: 4, Price: 8, High: true},
	}
	got := ZigZag(in)
	wantIdx := []int{1, 3, 4}
	if len(got) != len(wantIdx) {
		t.Fatalf("got %+v", got)
	}
	for i, idx := range wantIdx {
		if got[i].Index != idx {
			t.Errorf("zigzag[%d].Index = %d, want %d", i, got[i].Index, idx)
		}
		if i > 0 && got[i].High == got[i-1].High {
			t.Errorf("zigzag not alternating at %d", i)
		}
	}
}

// ────────────────────────────────────────────────────────────
// Harmonics
// ────────────────────────────────────────────────────────────

// gartleyPath walks X=100 → A=200 → B=137 → C=168.5 → D=143.741 with four
// bars per leg, giving AB=0.63, BC=0.5, CD=0.786.
func gartleyPath() []float64 {
	legs := []float64{120, 100, 200, 137, 168.5, 143.741, 160}
	prices := []float64{legs[0]}
	for i := 1; i < len(legs); i++ {
		for k := 1; k <= 4; k++ {
			prices = append(prices, legs[i-1]+(legs[i]-legs[i-1])*float64(k)/4)
		}
	}
	return prices
}

func TestMatchHarmonics_Gartley(t *testing.T) {
	zz := []Pivot{
		{Index: 0, Price: 100},
		{Index: 1, Price: 200, High: true},
		{Index: 2, Price: 137},
		{Index: 3, Price: 168.5, High: true},
		{Index: 4, Price: 143.741},
	}
	got := MatchHarmonics(zz, 0.1)
	if len(got) != 1 || got[0].Kind != KindGartley {
		t.Fatalf("expected a single Gartley, got %+v", got)
	}
	m := got[0]
	if m.Index != 4 || m.Direction != model.Bullish {
		t.Errorf("match at %d dir %s", m.Index, m.Direction)
	}
	if math.Abs(m.AB-0.63) > 1e-9 || math.Abs(m.BC-0.5) > 1e-9 || math.Abs(m.CD-0.786) > 1e-9 {
		t.Errorf("ratios = %v %v %v", m.AB, m.BC, m.CD)
	}
	if m.Confidence <= 0 || m.Confidence > 1 {
		t.Errorf("confidence = %v", m.Confidence)
	}
}

func TestMatchHarmonics_BearishCrab(t *testing.T) {
	// X=200 high, A=100 low, B=150 (AB 0.5), C=125 (BC 0.5), D=200 (CD 3.0)
	zz := []Pivot{
		{Index: 0, Price: 200, High: true},
		{Index: 1, Price: 100},
		{Index: 2, Price: 150, High: true},
		{Index: 3, Price: 125},
		{Index: 4, Price: 200, High: true},
	}
	got := MatchHarmonics(zz, 0.1)
	if len(got) != 1 || got[0].Kind != KindCrab || got[0].Direction != model.Bearish {
		t.Fatalf("expected a bearish Crab, got %+v", got)
	}
}

func TestMatchHarmonics_NoMatchOnNoise(t *testing.T) {
	zz := []Pivot{
		{Index: 0, Price: 100},
		{Index: 1, Price: 101, High: true},
		{Index: 2, Price: 50},
		{Index: 3, Price: 51, High: true},
		{Index: 4, Price: 50.5},
	}
	if got := MatchHarmonics(zz, 0.1); len(got) != 0 {
		t.Fatalf("unexpected matches %+v", got)
	}
}

// ────────────────────────────────────────────────────────────
// Elliott
// ────────────────────────────────────────────────────────────

func TestWaves_FlatExtendsCurrentWave(t *testing.T) {
	got := Waves([]float64{1, 2, 2, 3, 2})
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got[0].Direction != model.Bullish || got[0].StartIndex != 0 || got[0].EndIndex != 3 || got[0].Magnitude != 2 {
		t.Errorf("wave 0 = %+v", got[0])
	}
	if got[1].Direction != model.Bearish || got[1].StartIndex != 3 || got[1].EndIndex != 4 {
		t.Errorf("wave 1 = %+v", got[1])
	}
}

func TestCountElliott_Impulse(t *testing.T) {
	// w1 +10, w2 -5, w3 +20 (> 16.18), w4 -5, w5 +10
	ec, ok := CountElliott([]float64{100, 110, 105, 125, 120, 130})
	if !ok {
		t.Fatal("expected a count")
	}
	if !ec.Impulse() || ec.Structure != "5-3-5-3-5" {
		t.Errorf("label = %s %s", ec.Label, ec.Structure)
	}
	if math.Abs(ec.Target-146.18) > 1e-9 {
		t.Errorf("target = %v, want 146.18", ec.Target)
	}
}

func TestCountElliott_Corrective(t *testing.T) {
	// w1 -10, w2 +5, w3 -12 (< 16.18), w4 +4, w5 -6
	ec, ok := CountElliott([]float64{100, 90, 95, 83, 87, 81})
	if !ok {
		t.Fatal("expected a count")
	}
	if ec.Impulse() {
		t.Error("expected corrective")
	}
	if math.Abs(ec.Target-(81-1.618*6)) > 1e-9 {
		t.Errorf("target = %v", ec.Target)
	}
	if _, ok := CountElliott([]float64{1, 2, 1}); ok {
		t.Error("expected no count for fewer than five waves")
	}
}

// ────────────────────────────────────────────────────────────
// Detect
// ────────────────────────────────────────────────────────────

func TestDetect_MergesAndOrders(t *testing.T) {
	store, err := model.NewCandleStore("TEST", "1h", flatBars(gartleyPath()...))
	if err != nil {
		t.Fatal(err)
	}
	rep, err := Analyze(store, Options{})
	if err != nil {
		t.Fatal(err)
	}
	assertHits(t, rep.Matches, hit{KindGartley, 20}, hit{KindElliottCorrective, 24})
	if len(rep.Pivots) != 5 {
		t.Errorf("pivots = %+v", rep.Pivots)
	}
	if rep.Elliott == nil || rep.Elliott.Impulse() {
		t.Errorf("elliott = %+v", rep.Elliott)
	}
}

func TestDetect_ZeroToleranceIsExact(t *testing.T) {
	store, err := model.NewCandleStore("TEST", "1h", flatBars(gartleyPath()...))
	if err != nil {
		t.Fatal(err)
	}
	// AB is 0.63 against a 0.618 target, so only the default tolerance accepts it.
	rep, err := Analyze(store, Options{Tolerance: model.Float(0)})
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Harmonics) != 0 {
		t.Fatalf("exact matching accepted %+v", rep.Harmonics)
	}
	if len(rep.Pivots) != 5 {
		t.Errorf("pivots = %+v", rep.Pivots)
	}
}

func TestOptions_ResolvedAndMerge(t *testing.T) {
	o, err := Options{}.Resolved()
	if err != nil {
		t.Fatal(err)
	}
	if o.PivotLookback != 3 || o.Tolerance == nil || *o.Tolerance != 0.1 {
		t.Errorf("defaults = %d %v", o.PivotLookback, o.Tolerance)
	}

	zero := Options{Tolerance: model.Float(0)}
	if o, _ = zero.Resolved(); *o.Tolerance != 0 {
		t.Errorf("explicit zero tolerance became %v", *o.Tolerance)
	}
	if *zero.Tolerance != 0 {
		t.Error("Resolved mutated its receiver")
	}

	base := Options{PivotLookback: 5, Tolerance: model.Float(0.05)}
	m := base.Merge(Options{Tolerance: model.Float(0)})
	if m.PivotLookback != 5 || *m.Tolerance != 0 {
		t.Errorf("merge = %d %v", m.PivotLookback, *m.Tolerance)
	}
	if m = base.Merge(Options{PivotLookback: 2}); m.PivotLookback != 2 || *m.Tolerance != 0.05 {
		t.Errorf("merge = %d %v", m.PivotLookback, *m.Tolerance)
	}

	if _, err := (Options{Tolerance: model.Float(-1)}).Resolved(); err == nil {
		t.Error("negative tolerance accepted")
	}
}

func TestDetect_SkipFamilies(t *testing.T) {
	store, _ := model.NewCandleStore("TEST", "1h", flatBars(gartleyPath()...))
	got, err := Detect(store, Options{SkipHarmonics: true, SkipElliott: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("flat bars should produce no candlestick matches, got %v", hits(got))
	}
}
