package indicator

import "math"

// EMA calculates Exponential Moving Average.
// It is seeded with the first value, so it is defined from the first bar and
// does not converge over the first period bars.
type EMA struct {
	period     int
	multiplier float64
	current    float64
	count      int
}

// NewEMA creates a new EMA indicator with the given period.
func NewEMA(period int) *EMA {
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
		current:    math.NaN(),
	}
}

func (e *EMA) Name() string { return "EMA" }

func (e *EMA) Update(v float64) {
	e.count++
	if e.count == 1 {
		e.current = v
		return
	}
	// EMA = (Price * multiplier) + (EMA_prev * (1 - multiplier))
	e.current = (v * e.multiplier) + (e.current * (1 - e.multiplier))
}

func (e *EMA) Value() float64 { return e.current }
func (e *EMA) Ready() bool    { return e.count >= 1 }

// Reset clears the EMA state for reuse.
func (e *EMA) Reset() {
	e.current = math.NaN()
	e.count = 0
}

// EMAOf returns the exponential moving average of values. Leading NaN values
// are skipped and the average is seeded with the first defined value.
func EMAOf(values []float64, period int) Series {
	if period < 1 {
		return undefined(len(values))
	}
	return stream(NewEMA(period), values)
}
