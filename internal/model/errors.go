package model

import "errors"

var (
	// ErrInvalidCandle is returned when a candle violates the OHLC invariants
	// or the sequence is not strictly increasing in time.
	ErrInvalidCandle = errors.New("invalid candle data")

	// ErrMalformedStrategy is returned when a strategy fails validation.
	ErrMalformedStrategy = errors.New("malformed strategy")

	// ErrUnknownIndicator is returned for indicator references outside the supported set.
	ErrUnknownIndicator = errors.New("unknown indicator")

	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = errors.New("not found")
)
