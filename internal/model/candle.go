package model

import (
	"fmt"
	"math"
)

// Candle is one OHLCV bar. Time is the bucket start in unix seconds.
type Candle struct {
	Time   int64   `json:"time" yaml:"time"`
	Open   float64 `json:"open" yaml:"open"`
	High   float64 `json:"high" yaml:"high"`
	Low    float64 `json:"low" yaml:"low"`
	Close  float64 `json:"close" yaml:"close"`
	Volume float64 `json:"volume" yaml:"volume"`
}

// Validate checks the OHLC invariants. Invalid candles are rejected, never coerced.
func (c Candle) Validate() error {
	for _, p := range [...]struct {
		name string
		v    float64
	}{{"open", c.Open}, {"high", c.High}, {"low", c.Low}, {"close", c.Close}} {
		if math.IsNaN(p.v) || math.IsInf(p.v, 0) || p.v <= 0 {
			return fmt.Errorf("%w: %s must be a positive finite price, got %v", ErrInvalidCandle, p.name, p.v)
		}
	}
	if math.IsNaN(c.Volume) || math.IsInf(c.Volume, 0) || c.Volume < 0 {
		return fmt.Errorf("%w: volume must be non-negative, got %v", ErrInvalidCandle, c.Volume)
	}
	if c.High < c.Low {
		return fmt.Errorf("%w: high %v < low %v", ErrInvalidCandle, c.High, c.Low)
	}
	if c.High < math.Max(c.Open, c.Close) {
		return fmt.Errorf("%w: high %v below body", ErrInvalidCandle, c.High)
	}
	if c.Low > math.Min(c.Open, c.Close) {
		return fmt.Errorf("%w: low %v above body", ErrInvalidCandle, c.Low)
	}
	return nil
}

// Body returns |close - open|.
func (c Candle) Body() float64 { return math.Abs(c.Close - c.Open) }

// Range returns high - low.
func (c Candle) Range() float64 { return c.High - c.Low }

// UpperShadow returns the wick above the body.
func (c Candle) UpperShadow() float64 { return c.High - math.Max(c.Open, c.Close) }

// LowerShadow returns the wick below the body.
func (c Candle) LowerShadow() float64 { return math.Min(c.Open, c.Close) - c.Low }

// Bullish reports close > open.
func (c Candle) Bullish() bool { return c.Close > c.Open }

// Bearish reports close < open.
func (c Candle) Bearish() bool { return c.Close < c.Open }
