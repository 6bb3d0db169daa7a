package model

import "fmt"

// CandleStore is an ordered, validated, read-only candle sequence for one
// symbol and timeframe. It is never mutated after construction; Append
// returns a new store.
type CandleStore struct {
	symbol    string
	timeframe string
	candles   []Candle
}

// NewCandleStore validates and copies candles. Times must be strictly increasing.
func NewCandleStore(symbol, timeframe string, candles []Candle) (*CandleStore, error) {
	cp := make([]Candle, len(candles))
	copy(cp, candles)
	if err := validateSequence(cp, 0); err != nil {
		return nil, err
	}
	return &CandleStore{symbol: symbol, timeframe: timeframe, candles: cp}, nil
}

func validateSequence(candles []Candle, offset int) error {
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("candle %d: %w", offset+i, err)
		}
		if i > 0 && c.Time <= candles[i-1].Time {
			return fmt.Errorf("candle %d: %w: time %d not after %d",
				offset+i, ErrInvalidCandle, c.Time, candles[i-1].Time)
		}
	}
	return nil
}

// Append returns a new store with more candles added after the existing ones.
func (s *CandleStore) Append(more ...Candle) (*CandleStore, error) {
	merged := make([]Candle, 0, len(s.candles)+len(more))
	merged = append(merged, s.candles...)
	merged = append(merged, more...)
	if err := validateSequence(merged[len(s.candles):], len(s.candles)); err != nil {
		return nil, err
	}
	if len(s.candles) > 0 && len(more) > 0 && more[0].Time <= s.candles[len(s.candles)-1].Time {
		return nil, fmt.Errorf("candle %d: %w: time %d not after %d",
			len(s.candles), ErrInvalidCandle, more[0].Time, s.candles[len(s.candles)-1].Time)
	}
	return &CandleStore{symbol: s.symbol, timeframe: s.timeframe, candles: merged}, nil
}

func (s *CandleStore) Symbol() string    { return s.symbol }
func (s *CandleStore) Timeframe() string { return s.timeframe }
func (s *CandleStore) Len() int          { return len(s.candles) }

// At returns the candle at bar i. It panics on out-of-range like a slice index.
func (s *CandleStore) At(i int) Candle { return s.candles[i] }

// Key returns "symbol:timeframe".
func (s *CandleStore) Key() string { return s.symbol + ":" + s.timeframe }

// FirstTime returns the time of the first candle, or 0 for an empty store.
func (s *CandleStore) FirstTime() int64 {
	if len(s.candles) == 0 {
		return 0
	}
	return s.candles[0].Time
}

// LastTime returns the time of the last candle, or 0 for an empty store.
func (s *CandleStore) LastTime() int64 {
	if len(s.candles) == 0 {
		return 0
	}
	return s.candles[len(s.candles)-1].Time
}

// Candles returns a copy of the underlying candles.
func (s *CandleStore) Candles() []Candle {
	cp := make([]Candle, len(s.candles))
	copy(cp, s.candles)
	return cp
}

func (s *CandleStore) Opens() []float64   { return s.column(func(c Candle) float64 { return c.Open }) }
func (s *CandleStore) Highs() []float64   { return s.column(func(c Candle) float64 { return c.High }) }
func (s *CandleStore) Lows() []float64    { return s.column(func(c Candle) float64 { return c.Low }) }
func (s *CandleStore) Closes() []float64  { return s.column(func(c Candle) float64 { return c.Close }) }
func (s *CandleStore) Volumes() []float64 { return s.column(func(c Candle) float64 { return c.Volume }) }

func (s *CandleStore) column(f func(Candle) float64) []float64 {
	out := make([]float64, len(s.candles))
	for i, c := range s.candles {
		out[i] = f(c)
	}
	return out
}
