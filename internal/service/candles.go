package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"trading-backtestv1/internal/cache"
	"trading-backtestv1/internal/indicator"
	"trading-backtestv1/internal/model"
	"trading-backtestv1/internal/pattern"
)

// Range selects a candle series and an optional time window. Zero bounds
// are open.
type Range struct {
	Symbol    string `json:"symbol" query:"symbol" validate:"required"`
	Timeframe string `json:"timeframe" query:"timeframe" validate:"required"`
	From      int64  `json:"from,omitempty" query:"from" validate:"gte=0"`
	To        int64  `json:"to,omitempty" query:"to" validate:"gte=0"`
}

// IndicatorResult is the response of an indicator query.
type IndicatorResult struct {
	Symbol    string                      `json:"symbol"`
	Timeframe string                      `json:"timeframe"`
	Times     []int64                     `json:"times"`
	Series    map[string]indicator.Series `json:"series"`
	Warmup    int                         `json:"warmup"`
}

// PatternResult is the response of a pattern query.
type PatternResult struct {
	Symbol    string         `json:"symbol"`
	Timeframe string         `json:"timeframe"`
	Bars      int            `json:"bars"`
	Report    pattern.Report `json:"report"`
}

// LoadStore reads a candle range into a validated CandleStore. An empty
// range is ErrNotFound.
func (s *Service) LoadStore(ctx context.Context, r Range) (*model.CandleStore, error) {
	candles, err := s.deps.Candles.ReadCandles(ctx, r.Symbol, r.Timeframe, r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("load candles %s:%s: %w", r.Symbol, r.Timeframe, err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("candles %s:%s: %w", r.Symbol, r.Timeframe, model.ErrNotFound)
	}
	return model.NewCandleStore(r.Symbol, r.Timeframe, candles)
}

// IngestCandles validates candles, writes them and drops every cached
// response for the series. Candles are sorted by time first; duplicates and
// invalid bars reject the whole batch.
func (s *Service) IngestCandles(ctx context.Context, symbol, timeframe string, candles []model.Candle) (int, error) {
	if s.deps.Writer == nil {
		return 0, ErrIngestUnsupported
	}
	sorted := append([]model.Candle(nil), candles...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
	if _, err := model.NewCandleStore(symbol, timeframe, sorted); err != nil {
		return 0, err
	}

	if err := s.deps.Writer.WriteCandles(ctx, symbol, timeframe, sorted); err != nil {
		return 0, fmt.Errorf("write candles: %w", err)
	}
	if err := s.deps.Cache.Invalidate(ctx, seriesPrefix(symbol, timeframe)); err != nil {
		slog.Warn("cache invalidate failed", "symbol", symbol, "timeframe", timeframe, "error", err)
	}
	slog.Info("candles ingested", "symbol", symbol, "timeframe", timeframe, "count", len(sorted))
	return len(sorted), nil
}

// Indicators computes the named indicators over a candle range. Results are
// cached per series, window, last candle time and indicator list.
func (s *Service) Indicators(ctx context.Context, r Range, names []string) (IndicatorResult, error) {
	refs := make([]indicator.Ref, 0, len(names))
	for _, n := range names {
		ref, err := indicator.ParseRef(n)
		if err != nil {
			return IndicatorResult{}, err
		}
		refs = append(refs, ref)
	}
	if len(refs) == 0 {
		return IndicatorResult{}, fmt.Errorf("no indicators requested: %w", model.ErrUnknownIndicator)
	}

	store, err := s.LoadStore(ctx, r)
	if err != nil {
		return IndicatorResult{}, err
	}

	canon := make([]string, len(refs))
	for i, ref := range refs {
		canon[i] = ref.Name()
	}
	sort.Strings(canon)
	key := cacheKey(store, r, "ind", strings.Join(canon, ","))

	var out IndicatorResult
	if s.cached(ctx, key, &out) {
		return out, nil
	}

	set, err := s.indicators.Compute(ctx, store, refs)
	if err != nil {
		return IndicatorResult{}, err
	}
	times := make([]int64, store.Len())
	for i := range times {
		times[i] = store.At(i).Time
	}
	out = IndicatorResult{
		Symbol:    store.Symbol(),
		Timeframe: store.Timeframe(),
		Times:     times,
		Series:    set.Copy(),
		Warmup:    set.Warmup(),
	}
	s.store(ctx, key, out)
	return out, nil
}

// Patterns runs the pattern detector over a candle range. Fields set in opts
// override the service defaults; nil uses the defaults.
func (s *Service) Patterns(ctx context.Context, r Range, opts *pattern.Options) (PatternResult, error) {
	o := s.opts.Pattern
	if opts != nil {
		o = o.Merge(*opts)
	}
	o, err := o.Resolved()
	if err != nil {
		return PatternResult{}, err
	}
	store, err := s.LoadStore(ctx, r)
	if err != nil {
		return PatternResult{}, err
	}
	key := cacheKey(store, r, "pat", fmt.Sprintf("%d:%g:%t%t%t",
		o.PivotLookback, *o.Tolerance, o.SkipCandlesticks, o.SkipHarmonics, o.SkipElliott))

	var out PatternResult
	if s.cached(ctx, key, &out) {
		return out, nil
	}

	report, err := pattern.Analyze(store, o)
	if err != nil {
		return PatternResult{}, err
	}
	out = PatternResult{Symbol: store.Symbol(), Timeframe: store.Timeframe(), Bars: store.Len(), Report: report}
	s.store(ctx, key, out)
	return out, nil
}

func (s *Service) cached(ctx context.Context, key string, dest any) bool {
	err := s.deps.Cache.Get(ctx, key, dest)
	result := "hit"
	switch {
	case err == nil:
	case errors.Is(err, cache.ErrCacheMiss):
		result = "miss"
	default:
		result = "error"
		slog.Debug("cache get failed", "key", key, "error", err)
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.CacheRequests.WithLabelValues(result).Inc()
	}
	return err == nil
}

func (s *Service) store(ctx context.Context, key string, v any) {
	if err := s.deps.Cache.Set(ctx, key, v, s.opts.CacheTTL); err != nil {
		slog.Debug("cache set failed", "key", key, "error", err)
	}
}

func seriesPrefix(symbol, timeframe string) string {
	return symbol + ":" + timeframe + ":"
}

// cacheKey is "{symbol}:{timeframe}:{lastTime}:{bars}:{from}-{to}:{kind}:{detail}".
// Any change to the series changes the last time or the bar count.
func cacheKey(store *model.CandleStore, r Range, kind, detail string) string {
	return fmt.Sprintf("%s%d:%d:%d-%d:%s:%s",
		seriesPrefix(store.Symbol(), store.Timeframe()), store.LastTime(), store.Len(), r.From, r.To, kind, detail)
}
