package indicator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"trading-backtestv1/internal/model"
)

// Observer receives per-indicator computation timings.
type Observer interface {
	ObserveIndicator(name string, d time.Duration)
}

// Engine computes a set of indicator references over a candle store.
// Each reference is independent, so work fans out across up to Workers
// goroutines. The store is only read.
type Engine struct {
	workers  int
	observer Observer
}

// NewEngine creates an engine. workers < 1 computes sequentially; obs may be nil.
func NewEngine(workers int, obs Observer) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{workers: workers, observer: obs}
}

// Compute evaluates refs and returns an immutable Set keyed by Ref.Name().
// Duplicate references are computed once.
func (e *Engine) Compute(ctx context.Context, store *model.CandleStore, refs []Ref) (*Set, error) {
	uniq := make([]Ref, 0, len(refs))
	seen := make(map[string]bool, len(refs))
	for _, r := range refs {
		if _, ok := registry[r.Kind]; !ok {
			return nil, unknownKind(r.Kind)
		}
		if !seen[r.Name()] {
			seen[r.Name()] = true
			uniq = append(uniq, r)
		}
	}

	results := make([]Series, len(uniq))
	errs := make([]error, len(uniq))
	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup

	for i, r := range uniq {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, r Ref) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if p := recover(); p != nil {
					errs[i] = fmt.Errorf("indicator %s: %v", r.Name(), p)
				}
			}()
			start := time.Now()
			results[i] = registry[r.Kind].compute(store, r.Period)
			if e.observer != nil {
				e.observer.ObserveIndicator(string(r.Kind), time.Since(start))
			}
		}(i, r)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	set := &Set{bars: store.Len(), series: make(map[string]Series, len(uniq)), refs: uniq}
	for i, r := range uniq {
		set.series[r.Name()] = results[i]
	}
	slog.Debug("indicators computed",
		"key", store.Key(),
		"bars", store.Len(),
		"count", len(uniq),
	)
	return set, nil
}

// ComputeNames parses names and computes them.
func (e *Engine) ComputeNames(ctx context.Context, store *model.CandleStore, names []string) (*Set, error) {
	refs := make([]Ref, 0, len(names))
	for _, n := range names {
		r, err := ParseRef(n)
		if err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return e.Compute(ctx, store, refs)
}

// Set is the read-only result of one Compute call.
type Set struct {
	bars   int
	refs   []Ref
	series map[string]Series
}

// Bars is the length every series in the set shares.
func (s *Set) Bars() int { return s.bars }

// Refs lists the computed references in computation order.
func (s *Set) Refs() []Ref { return append([]Ref(nil), s.refs...) }

// Get returns the series for a reference.
func (s *Set) Get(r Ref) (Series, bool) {
	v, ok := s.series[r.Name()]
	return v, ok
}

// Value returns r at bar i and whether it is defined.
func (s *Set) Value(r Ref, i int) (float64, bool) {
	v, ok := s.series[r.Name()]
	if !ok {
		return 0, false
	}
	return v.At(i)
}

// Names lists the computed references in sorted order.
func (s *Set) Names() []string {
	out := make([]string, 0, len(s.series))
	for k := range s.series {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Copy returns the series keyed by name. The slices are copies.
func (s *Set) Copy() map[string]Series {
	out := make(map[string]Series, len(s.series))
	for k, v := range s.series {
		cp := make(Series, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// Subset returns a Set restricted to refs. Every ref must be present.
func (s *Set) Subset(refs []Ref) (*Set, error) {
	out := &Set{bars: s.bars, series: make(map[string]Series, len(refs))}
	for _, r := range refs {
		v, ok := s.series[r.Name()]
		if !ok {
			return nil, fmt.Errorf("indicator %s not computed", r.Name())
		}
		if _, dup := out.series[r.Name()]; !dup {
			out.series[r.Name()] = v
			out.refs = append(out.refs, r)
		}
	}
	return out, nil
}

// Warmup is the first bar at which every series in the set is defined,
// or Bars() when some series never becomes defined.
func (s *Set) Warmup() int {
	w := 0
	for _, v := range s.series {
		if f := v.FirstDefined(); f > w {
			w = f
		}
	}
	return w
}

func unknownKind(k Kind) error {
	return fmt.Errorf("%w: %q", model.ErrUnknownIndicator, k)
}
