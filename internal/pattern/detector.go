package pattern

import (
	"fmt"
	"sort"

	"github.com/creasty/defaults"

	"trading-backtestv1/internal/model"
)

// Options tunes detection. A zero lookback or a nil tolerance takes the
// default; an explicit zero tolerance matches ratio targets exactly.
type Options struct {
	PivotLookback int      `json:"pivotLookback" default:"3"`
	Tolerance     *float64 `json:"tolerance" default:"0.1"`

	SkipCandlesticks bool `json:"skipCandlesticks"`
	SkipHarmonics    bool `json:"skipHarmonics"`
	SkipElliott      bool `json:"skipElliott"`
}

// Report is the full detector output. Matches merges every family, ordered
// by bar index then kind.
type Report struct {
	Matches   []model.PatternMatch `json:"matches"`
	Pivots    []Pivot              `json:"pivots,omitempty"`
	Harmonics []HarmonicMatch      `json:"harmonics,omitempty"`
	Elliott   *ElliottCount        `json:"elliott,omitempty"`
}

// Resolved returns o with defaults applied and validates the result.
func (o Options) Resolved() (Options, error) {
	if o.Tolerance != nil {
		o.Tolerance = model.Float(*o.Tolerance)
	}
	if err := defaults.Set(&o); err != nil {
		return Options{}, fmt.Errorf("pattern options: %w", err)
	}
	if o.PivotLookback < 1 || *o.Tolerance < 0 {
		return Options{}, fmt.Errorf("pattern options: lookback %d tolerance %v out of range", o.PivotLookback, *o.Tolerance)
	}
	return o, nil
}

// Merge overlays the fields set in over onto o.
func (o Options) Merge(over Options) Options {
	if over.PivotLookback > 0 {
		o.PivotLookback = over.PivotLookback
	}
	if over.Tolerance != nil {
		o.Tolerance = model.Float(*over.Tolerance)
	}
	o.SkipCandlesticks = over.SkipCandlesticks
	o.SkipHarmonics = over.SkipHarmonics
	o.SkipElliott = over.SkipElliott
	return o
}

// Analyze runs every enabled detector over the store.
func Analyze(store *model.CandleStore, opts Options) (Report, error) {
	opts, err := opts.Resolved()
	if err != nil {
		return Report{}, err
	}

	candles := store.Candles()
	rep := Report{Matches: []model.PatternMatch{}}

	if !opts.SkipCandlesticks {
		rep.Matches = append(rep.Matches, Candlesticks(candles)...)
	}
	if !opts.SkipHarmonics {
		rep.Pivots = ZigZag(FractalPivots(candles, opts.PivotLookback))
		rep.Harmonics = MatchHarmonics(rep.Pivots, *opts.Tolerance)
		for _, h := range rep.Harmonics {
			rep.Matches = append(rep.Matches, h.PatternMatch)
		}
	}
	if !opts.SkipElliott {
		if ec, ok := CountElliott(store.Closes()); ok {
			rep.Elliott = &ec
			rep.Matches = append(rep.Matches, ec.match(candles))
		}
	}

	sort.SliceStable(rep.Matches, func(i, j int) bool {
		if rep.Matches[i].Index != rep.Matches[j].Index {
			return rep.Matches[i].Index < rep.Matches[j].Index
		}
		return rep.Matches[i].Kind < rep.Matches[j].Kind
	})
	return rep, nil
}

// Detect returns only the merged matches.
func Detect(store *model.CandleStore, opts Options) ([]model.PatternMatch, error) {
	rep, err := Analyze(store, opts)
	if err != nil {
		return nil, err
	}
	return rep.Matches, nil
}
