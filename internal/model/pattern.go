package model

// Direction is the bias of a detected pattern.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Neutral Direction = "neutral"
)

// PatternMatch is a single detection. Confidence is in [0,1].
type PatternMatch struct {
	Kind       string    `json:"kind"`
	Index      int       `json:"index"`
	Time       int64     `json:"time"`
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"`
}
