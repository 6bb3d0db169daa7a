package pattern

import (
	"math"

	"trading-backtestv1/internal/model"
)

// Band is an inclusive ratio interval.
type Band struct {
	Min, Max float64
}

func (b Band) contains(r float64) bool { return r >= b.Min && r <= b.Max }

// deviation is 0 at the band centre and 1 at its edges.
func (b Band) deviation(r float64) float64 {
	half := (b.Max - b.Min) / 2
	if half == 0 {
		return 0
	}
	return math.Abs(r-(b.Min+b.Max)/2) / half
}

// Harmonic is a named set of XABCD ratio bands. A zero-width band is a point
// target that gets widened by the detector tolerance.
type Harmonic struct {
	Kind       string
	AB, BC, CD Band
}

func point(x float64) Band { return Band{x, x} }

// Harmonics are the supported patterns.
var Harmonics = []Harmonic{
	{Kind: KindGartley, AB: point(0.618), BC: Band{0.382, 0.886}, CD: point(0.786)},
	{Kind: KindButterfly, AB: point(0.786), BC: Band{0.382, 0.886}, CD: Band{1.618, 2.24}},
	{Kind: KindBat, AB: Band{0.382, 0.5}, BC: Band{0.382, 0.886}, CD: Band{1.618, 2.618}},
	{Kind: KindCrab, AB: Band{0.382, 0.618}, BC: Band{0.382, 0.886}, CD: Band{2.24, 3.618}},
}

func (h Harmonic) widen(tol float64) Harmonic {
	w := func(b Band) Band {
		if b.Min == b.Max {
			return Band{b.Min - tol, b.Max + tol}
		}
		return b
	}
	return Harmonic{Kind: h.Kind, AB: w(h.AB), BC: w(h.BC), CD: w(h.CD)}
}

// HarmonicMatch is a harmonic detection with its swing points and ratios.
type HarmonicMatch struct {
	model.PatternMatch
	X  Pivot   `json:"x"`
	A  Pivot   `json:"a"`
	B  Pivot   `json:"b"`
	C  Pivot   `json:"c"`
	D  Pivot   `json:"d"`
	AB float64 `json:"ab"`
	BC float64 `json:"bc"`
	CD float64 `json:"cd"`
}

// Ratios returns the XABCD retracement ratios, or ok=false if a leg is flat.
func Ratios(x, a, b, c, d float64) (ab, bc, cd float64, ok bool) {
	xa, abLeg, bcLeg := math.Abs(a-x), math.Abs(b-a), math.Abs(c-b)
	if xa == 0 || abLeg == 0 || bcLeg == 0 {
		return 0, 0, 0, false
	}
	return abLeg / xa, bcLeg / abLeg, math.Abs(d-c) / bcLeg, true
}

// MatchHarmonics checks every window of five consecutive zig-zag pivots
// against each harmonic. The match is reported at D's bar and is bullish
// when D is a swing low.
func MatchHarmonics(zz []Pivot, tolerance float64) []HarmonicMatch {
	var out []HarmonicMatch
	for i := 0; i+4 < len(zz); i++ {
		x, a, b, c, d := zz[i], zz[i+1], zz[i+2], zz[i+3], zz[i+4]
		ab, bc, cd, ok := Ratios(x.Price, a.Price, b.Price, c.Price, d.Price)
		if !ok {
			continue
		}
		dir := model.Bullish
		if d.High {
			dir = model.Bearish
		}
		for _, h := range Harmonics {
			w := h.widen(tolerance)
			if !w.AB.contains(ab) || !w.BC.contains(bc) || !w.CD.contains(cd) {
				continue
			}
			dev := (w.AB.deviation(ab) + w.BC.deviation(bc) + w.CD.deviation(cd)) / 3
			out = append(out, HarmonicMatch{
				PatternMatch: model.PatternMatch{
					Kind:       h.Kind,
					Index:      d.Index,
					Time:       d.Time,
					Direction:  dir,
					Confidence: clamp01(1 - dev/2),
				},
				X: x, A: a, B: b, C: c, D: d,
				AB: ab, BC: bc, CD: cd,
			})
		}
	}
	return out
}
