// Package indicator provides technical indicator calculations over candle data.
//
// Streaming indicators implement the Indicator interface and are fed one
// value at a time. Batch functions return a Series aligned to the input,
// with NaN marking the warm-up prefix where the lookback is not yet filled.
package indicator

import (
	"encoding/json"
	"math"
)

// Indicator is the interface for streaming indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA", "EMA").
	Name() string

	// Update feeds the next value and recalculates.
	Update(v float64)

	// Value returns the current calculated value. Returns NaN if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool
}

// Series is an indicator time series aligned to a candle store.
// Undefined bars hold NaN; Series values are never patched in place.
type Series []float64

// At returns the value at bar i and whether it is defined.
func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s) || math.IsNaN(s[i]) {
		return math.NaN(), false
	}
	return s[i], true
}

// FirstDefined returns the first defined index, or len(s) if none is.
func (s Series) FirstDefined() int {
	for i, v := range s {
		if !math.IsNaN(v) {
			return i
		}
	}
	return len(s)
}

// Last returns the last value, NaN for an empty series.
func (s Series) Last() float64 {
	if len(s) == 0 {
		return math.NaN()
	}
	return s[len(s)-1]
}

// MarshalJSON encodes undefined bars as null.
func (s Series) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(s))
	for i := range s {
		if !math.IsNaN(s[i]) && !math.IsInf(s[i], 0) {
			out[i] = &s[i]
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes null as NaN.
func (s *Series) UnmarshalJSON(data []byte) error {
	var in []*float64
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := make(Series, len(in))
	for i, v := range in {
		if v == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *v
		}
	}
	*s = out
	return nil
}

func undefined(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// stream runs a streaming indicator over values and collects a Series.
// NaN inputs leave the indicator untouched and yield NaN.
func stream(ind Indicator, values []float64) Series {
	out := undefined(len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		ind.Update(v)
		if ind.Ready() {
			out[i] = ind.Value()
		}
	}
	return out
}
