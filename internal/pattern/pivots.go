package pattern

import "trading-backtestv1/internal/model"

// Pivot is a swing high or low.
type Pivot struct {
	Index int     `json:"index"`
	Time  int64   `json:"time"`
	Price float64 `json:"price"`
	High  bool    `json:"high"`
}

// FractalPivots finds bars whose high (low) is not exceeded by any bar within
// lookback bars on either side. A bar that is both is treated as a high.
func FractalPivots(candles []model.Candle, lookback int) []Pivot {
	if lookback < 1 || len(candles) < 2*lookback+1 {
		return nil
	}
	out := make([]Pivot, 0, len(candles)/5)
	for i := lookback; i < len(candles)-lookback; i++ {
		hi, lo := true, true
		for j := i - lookback; j <= i+lookback; j++ {
			if candles[j].High > candles[i].High {
				hi = false
			}
			if candles[j].Low < candles[i].Low {
				lo = false
			}
			if !hi && !lo {
				break
			}
		}
		if hi {
			out = append(out, Pivot{Index: i, Time: candles[i].Time, Price: candles[i].High, High: true})
		} else if lo {
			out = append(out, Pivot{Index: i, Time: candles[i].Time, Price: candles[i].Low})
		}
	}
	return out
}

// ZigZag compresses pivots into a strictly alternating high/low sequence.
// Runs of the same type keep the most extreme point.
func ZigZag(pivots []Pivot) []Pivot {
	out := make([]Pivot, 0, len(pivots))
	for _, p := range pivots {
		if len(out) == 0 {
			out = append(out, p)
			continue
		}
		last := &out[len(out)-1]
		if last.High != p.High {
			out = append(out, p)
			continue
		}
		if (p.High && p.Price > last.Price) || (!p.High && p.Price < last.Price) {
			*last = p
		}
	}
	return out
}
