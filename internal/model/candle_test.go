package model

import (
	"errors"
	"math"
	"testing"
)

func TestCandleValidate(t *testing.T) {
	tests := []struct {
		name    string
		c       Candle
		wantErr bool
	}{
		{"valid", Candle{Time: 1, Open: 100, High: 105, Low: 95, Close: 102, Volume: 10}, false},
		{"flat bar", Candle{Time: 1, Open: 100, High: 100, Low: 100, Close: 100}, false},
		{"high below low", Candle{Time: 1, Open: 100, High: 90, Low: 95, Close: 100}, true},
		{"high below close", Candle{Time: 1, Open: 100, High: 101, Low: 95, Close: 102}, true},
		{"low above open", Candle{Time: 1, Open: 94, High: 105, Low: 95, Close: 102}, true},
		{"zero price", Candle{Time: 1, Open: 0, High: 105, Low: 0, Close: 102}, true},
		{"negative volume", Candle{Time: 1, Open: 100, High: 105, Low: 95, Close: 102, Volume: -1}, true},
		{"nan close", Candle{Time: 1, Open: 100, High: 105, Low: 95, Close: math.NaN()}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err=%v, wantErr=%v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidCandle) {
				t.Errorf("error %v does not wrap ErrInvalidCandle", err)
			}
		})
	}
}

func TestCandleParts(t *testing.T) {
	c := Candle{Open: 100, High: 110, Low: 90, Close: 104}
	if c.Body() != 4 || c.Range() != 20 || c.UpperShadow() != 6 || c.LowerShadow() != 10 {
		t.Errorf("parts = body %v range %v upper %v lower %v", c.Body(), c.Range(), c.UpperShadow(), c.LowerShadow())
	}
	if !c.Bullish() || c.Bearish() {
		t.Error("expected bullish candle")
	}
}

func TestNewCandleStore(t *testing.T) {
	in := []Candle{
		{Time: 0, Open: 100, High: 105, Low: 95, Close: 102},
		{Time: 60, Open: 102, High: 103, Low: 98, Close: 99},
	}
	s, err := NewCandleStore("BTCUSDT", "1m", in)
	if err != nil {
		t.Fatalf("NewCandleStore: %v", err)
	}
	in[0].Close = 1 // caller mutation must not leak into the store
	if s.At(0).Close != 102 {
		t.Errorf("store shares caller slice: close=%v", s.At(0).Close)
	}
	if s.Len() != 2 || s.FirstTime() != 0 || s.LastTime() != 60 || s.Key() != "BTCUSDT:1m" {
		t.Errorf("unexpected accessors: len=%d first=%d last=%d key=%s", s.Len(), s.FirstTime(), s.LastTime(), s.Key())
	}
	closes := s.Closes()
	closes[0] = 0
	if s.At(0).Close != 102 {
		t.Error("Closes() returned a shared slice")
	}
}

func TestNewCandleStore_RejectsNonIncreasingTime(t *testing.T) {
	_, err := NewCandleStore("X", "1m", []Candle{
		{Time: 10, Open: 1, High: 1, Low: 1, Close: 1},
		{Time: 10, Open: 1, High: 1, Low: 1, Close: 1},
	})
	if !errors.Is(err, ErrInvalidCandle) {
		t.Fatalf("expected ErrInvalidCandle, got %v", err)
	}
}

func TestCandleStoreAppend(t *testing.T) {
	s, _ := NewCandleStore("X", "1m", []Candle{{Time: 1, Open: 1, High: 2, Low: 1, Close: 2}})

	next, err := s.Append(Candle{Time: 2, Open: 2, High: 3, Low: 2, Close: 3})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if s.Len() != 1 || next.Len() != 2 {
		t.Errorf("Append mutated original: old=%d new=%d", s.Len(), next.Len())
	}

	if _, err := next.Append(Candle{Time: 2, Open: 2, High: 3, Low: 2, Close: 3}); !errors.Is(err, ErrInvalidCandle) {
		t.Errorf("expected ErrInvalidCandle for stale time, got %v", err)
	}
}

func TestOperatorValid(t *testing.T) {
	for _, op := range []Operator{OpGreaterThan, OpLessThan, OpEquals, OpCrossesAbove, OpCrossesBelow} {
		if !op.Valid() {
			t.Errorf("%s should be valid", op)
		}
	}
	if Operator("between").Valid() {
		t.Error("unknown operator reported valid")
	}
	if !OpCrossesBelow.Edge() || OpEquals.Edge() {
		t.Error("Edge() misclassified")
	}
}
