package indicator

import "math"

// Bollinger holds the bands and bandwidth (percent of the middle band).
type Bollinger struct {
	Upper     Series `json:"upper"`
	Middle    Series `json:"middle"`
	Lower     Series `json:"lower"`
	Bandwidth Series `json:"bandwidth"`
}

// BollingerOf uses the population standard deviation of the trailing window.
func BollingerOf(closes []float64, period int, mult float64) Bollinger {
	n := len(closes)
	b := Bollinger{Upper: undefined(n), Middle: SMAOf(closes, period), Lower: undefined(n), Bandwidth: undefined(n)}
	if period < 1 {
		return b
	}
	for i := period - 1; i < n; i++ {
		mid := b.Middle[i]
		var ss float64
		for _, v := range closes[i-period+1 : i+1] {
			d := v - mid
			ss += d * d
		}
		sigma := math.Sqrt(ss / float64(period))
		b.Upper[i] = mid + mult*sigma
		b.Lower[i] = mid - mult*sigma
		if mid != 0 {
			b.Bandwidth[i] = (b.Upper[i] - b.Lower[i]) / mid * 100
		}
	}
	return b
}
