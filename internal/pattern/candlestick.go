// Package pattern detects candlestick, harmonic and Elliott-wave structures
// in a candle store. Detectors are pure and never modify their input.
package pattern

import (
	"trading-backtestv1/internal/model"
)

// Pattern kinds reported in model.PatternMatch.Kind.
const (
	KindDoji              = "Doji"
	KindHammer            = "Hammer"
	KindShootingStar      = "ShootingStar"
	KindBullishEngulfing  = "BullishEngulfing"
	KindBearishEngulfing  = "BearishEngulfing"
	KindGartley           = "Gartley"
	KindButterfly         = "Butterfly"
	KindBat               = "Bat"
	KindCrab              = "Crab"
	KindElliottImpulse    = "ElliottImpulse"
	KindElliottCorrective = "ElliottCorrective"
)

// ----- Tunable thresholds -----

const (
	dojiMaxBodyPct   = 0.10 // body / range
	shadowBodyRatio  = 2.0  // dominant shadow > 2x body
	oppositeMaxRatio = 0.5  // opposite shadow < 0.5x body
	engulfBodyRatio  = 1.5  // body > 1.5x previous body
)

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func isDoji(c model.Candle) (bool, float64) {
	r := c.Range()
	if r <= 0 {
		return false, 0
	}
	pct := c.Body() / r
	if pct >= dojiMaxBodyPct {
		return false, 0
	}
	return true, clamp01(1 - pct/dojiMaxBodyPct)
}

func isHammer(c model.Candle) (bool, float64) {
	body := c.Body()
	if c.LowerShadow() <= shadowBodyRatio*body || c.UpperShadow() >= oppositeMaxRatio*body {
		return false, 0
	}
	return true, clamp01(c.LowerShadow() / c.Range())
}

func isShootingStar(c model.Candle) (bool, float64) {
	body := c.Body()
	if c.UpperShadow() <= shadowBodyRatio*body || c.LowerShadow() >= oppositeMaxRatio*body {
		return false, 0
	}
	return true, clamp01(c.UpperShadow() / c.Range())
}

// engulfing reports the direction of an engulfing pair ending at cur.
func engulfing(prev, cur model.Candle) (model.Direction, float64) {
	if cur.Body() <= engulfBodyRatio*prev.Body() {
		return "", 0
	}
	conf := clamp01(cur.Body() / (2 * engulfBodyRatio * prev.Body()))
	switch {
	case prev.Bearish() && cur.Bullish():
		return model.Bullish, conf
	case prev.Bullish() && cur.Bearish():
		return model.Bearish, conf
	}
	return "", 0
}

// Candlesticks scans every bar for single- and two-bar patterns.
func Candlesticks(candles []model.Candle) []model.PatternMatch {
	var out []model.PatternMatch
	emit := func(kind string, i int, dir model.Direction, conf float64) {
		out = append(out, model.PatternMatch{
			Kind: kind, Index: i, Time: candles[i].Time, Direction: dir, Confidence: conf,
		})
	}
	for i, c := range candles {
		if ok, conf := isDoji(c); ok {
			emit(KindDoji, i, model.Neutral, conf)
		}
		if ok, conf := isHammer(c); ok {
			emit(KindHammer, i, model.Bullish, conf)
		}
		if ok, conf := isShootingStar(c); ok {
			emit(KindShootingStar, i, model.Bearish, conf)
		}
		if i == 0 {
			continue
		}
		switch dir, conf := engulfing(candles[i-1], c); dir {
		case model.Bullish:
			emit(KindBullishEngulfing, i, dir, conf)
		case model.Bearish:
			emit(KindBearishEngulfing, i, dir, conf)
		}
	}
	return out
}
