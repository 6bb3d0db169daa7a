package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"trading-backtestv1/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{DBPath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func candlesAt(times ...int64) []model.Candle {
	out := make([]model.Candle, len(times))
	for i, ts := range times {
		p := float64(100 + i)
		out[i] = model.Candle{Time: ts, Open: p, High: p + 1, Low: p - 1, Close: p + 0.5, Volume: 10}
	}
	return out
}

func TestCandles_WriteReadOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.WriteCandles(ctx, "BTCUSDT", "1h", candlesAt(300, 100, 200)); err != nil {
		t.Fatalf("WriteCandles: %v", err)
	}
	if err := s.WriteCandles(ctx, "ETHUSDT", "1h", candlesAt(100)); err != nil {
		t.Fatal(err)
	}

	got, err := s.ReadCandles(ctx, "BTCUSDT", "1h", 0, 0)
	if err != nil {
		t.Fatalf("ReadCandles: %v", err)
	}
	if len(got) != 3 || got[0].Time != 100 || got[1].Time != 200 || got[2].Time != 300 {
		t.Fatalf("unexpected order: %+v", got)
	}

	bounded, _ := s.ReadCandles(ctx, "BTCUSDT", "1h", 150, 250)
	if len(bounded) != 1 || bounded[0].Time != 200 {
		t.Errorf("bounded read = %+v", bounded)
	}

	last, _ := s.LastTimestamp(ctx, "BTCUSDT", "1h")
	if last != 300 {
		t.Errorf("LastTimestamp = %d", last)
	}
	none, _ := s.LastTimestamp(ctx, "XRPUSDT", "1h")
	if none != 0 {
		t.Errorf("LastTimestamp for missing series = %d", none)
	}

	series, _ := s.Series(ctx)
	if len(series) != 2 {
		t.Errorf("Series = %v", series)
	}
}

func TestCandles_UpsertReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := candlesAt(100)
	_ = s.WriteCandles(ctx, "X", "1m", c)
	c[0].Close = 100.9
	_ = s.WriteCandles(ctx, "X", "1m", c)

	got, _ := s.ReadCandles(ctx, "X", "1m", 0, 0)
	if len(got) != 1 || got[0].Close != 100.9 {
		t.Errorf("upsert failed: %+v", got)
	}
}

func TestRun_FlushesOnClose(t *testing.T) {
	s := newTestStore(t)
	ch := make(chan CandleRow, 10)
	for _, c := range candlesAt(1, 2, 3) {
		ch <- CandleRow{Symbol: "X", Timeframe: "1m", Candle: c}
	}
	close(ch)

	if n := s.Run(context.Background(), ch); n != 3 {
		t.Errorf("Run wrote %d rows, want 3", n)
	}
	got, _ := s.ReadCandles(context.Background(), "X", "1m", 0, 0)
	if len(got) != 3 {
		t.Errorf("read %d rows", len(got))
	}
}

func TestStrategies_CRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	st := model.Strategy{
		Name:  "rsi",
		Entry: []model.Condition{{Indicator: "RSI_14", Operator: model.OpLessThan, Value: model.Float(30)}},
	}
	saved, err := s.SaveStrategy(ctx, st)
	if err != nil {
		t.Fatalf("SaveStrategy: %v", err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Fatalf("expected ID and CreatedAt, got %+v", saved)
	}

	got, err := s.GetStrategy(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetStrategy: %v", err)
	}
	if got.Name != "rsi" || len(got.Entry) != 1 || *got.Entry[0].Value != 30 {
		t.Errorf("round trip = %+v", got)
	}

	saved.Name = "rsi v2"
	if _, err := s.SaveStrategy(ctx, saved); err != nil {
		t.Fatal(err)
	}
	list, _ := s.ListStrategies(ctx)
	if len(list) != 1 || list[0].Name != "rsi v2" {
		t.Errorf("list = %+v", list)
	}

	if err := s.DeleteStrategy(ctx, saved.ID); err != nil {
		t.Fatalf("DeleteStrategy: %v", err)
	}
	if _, err := s.GetStrategy(ctx, saved.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteStrategy(ctx, saved.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestRuns_SaveListGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.SaveRun(ctx, model.BacktestResult{StrategyID: "a", Symbol: "X", Timeframe: "1h", TotalTrades: 1})
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	time.Sleep(time.Millisecond)
	_, _ = s.SaveRun(ctx, model.BacktestResult{StrategyID: "b", Symbol: "X", Timeframe: "1h"})
	time.Sleep(time.Millisecond)
	third, _ := s.SaveRun(ctx, model.BacktestResult{StrategyID: "a", Symbol: "X", Timeframe: "1h", TotalTrades: 3})

	runs, err := s.ListRuns(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].RunID != third.RunID || runs[1].RunID != first.RunID {
		t.Errorf("runs for a = %+v", runs)
	}
	all, _ := s.ListRuns(ctx, "")
	if len(all) != 3 {
		t.Errorf("all runs = %d", len(all))
	}

	got, err := s.GetRun(ctx, first.RunID)
	if err != nil || got.TotalTrades != 1 {
		t.Errorf("GetRun = %+v, %v", got, err)
	}
	if _, err := s.GetRun(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_OnCommit(t *testing.T) {
	var rows int
	s, err := New(Config{
		DBPath:   filepath.Join(t.TempDir(), "commit.db"),
		OnCommit: func(n int, _ time.Duration) { rows += n },
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.WriteCandles(context.Background(), "X", "1m", candlesAt(1, 2)); err != nil {
		t.Fatal(err)
	}
	if rows != 2 {
		t.Errorf("OnCommit saw %d rows, want 2", rows)
	}
}
