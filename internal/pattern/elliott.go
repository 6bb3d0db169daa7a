package pattern

import (
	"math"

	"trading-backtestv1/internal/model"
)

const (
	impulseRatio   = 1.618
	extensionRatio = 1.618
)

// Wave is a maximal monotonic run of closes.
type Wave struct {
	Direction  model.Direction `json:"direction"`
	StartIndex int             `json:"startIndex"`
	EndIndex   int             `json:"endIndex"`
	StartPrice float64         `json:"startPrice"`
	EndPrice   float64         `json:"endPrice"`
	Magnitude  float64         `json:"magnitude"`
}

// Waves splits closes into runs, starting a new wave whenever the sign of
// consecutive deltas flips. Unchanged closes extend the current wave.
func Waves(closes []float64) []Wave {
	var out []Wave
	var cur *Wave
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta == 0 {
			if cur != nil {
				cur.EndIndex = i
			}
			continue
		}
		dir := model.Bullish
		if delta < 0 {
			dir = model.Bearish
		}
		if cur == nil || cur.Direction != dir {
			out = append(out, Wave{Direction: dir, StartIndex: i - 1, StartPrice: closes[i-1]})
			cur = &out[len(out)-1]
		}
		cur.EndIndex = i
		cur.EndPrice = closes[i]
		cur.Magnitude = math.Abs(cur.EndPrice - cur.StartPrice)
	}
	return out
}

// ElliottCount labels the last five waves.
type ElliottCount struct {
	Label     string  `json:"label"` // "Impulse" or "Corrective"
	Structure string  `json:"structure,omitempty"`
	Waves     []Wave  `json:"waves"`
	Target    float64 `json:"target"`
}

// Impulse reports whether the count was labelled an impulse.
func (e ElliottCount) Impulse() bool { return e.Label == "Impulse" }

// CountElliott labels the last five waves of closes. It returns false when
// fewer than five waves exist.
func CountElliott(closes []float64) (ElliottCount, bool) {
	waves := Waves(closes)
	if len(waves) < 5 {
		return ElliottCount{}, false
	}
	last5 := append([]Wave(nil), waves[len(waves)-5:]...)
	w1, w3, w5 := last5[0], last5[2], last5[4]

	ec := ElliottCount{Label: "Corrective", Waves: last5}
	if w3.Magnitude > impulseRatio*w1.Magnitude {
		ec.Label = "Impulse"
		ec.Structure = "5-3-5-3-5"
	}
	sign := 1.0
	if w5.Direction == model.Bearish {
		sign = -1
	}
	ec.Target = w5.EndPrice + sign*extensionRatio*w5.Magnitude
	return ec, true
}

func (e ElliottCount) match(candles []model.Candle) model.PatternMatch {
	w1, w3, w5 := e.Waves[0], e.Waves[2], e.Waves[4]
	m := model.PatternMatch{
		Kind:       KindElliottCorrective,
		Index:      w5.EndIndex,
		Time:       candles[w5.EndIndex].Time,
		Direction:  w5.Direction,
		Confidence: 0.5,
	}
	if e.Impulse() {
		m.Kind = KindElliottImpulse
		m.Direction = w1.Direction
		m.Confidence = clamp01(w3.Magnitude / (2 * impulseRatio * w1.Magnitude))
	}
	return m
}
