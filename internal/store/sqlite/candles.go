package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"trading-backtestv1/internal/model"
)

const (
	defaultBatchSize  = 500
	defaultFlushDelay = 200 * time.Millisecond
)

// CandleRow is a candle tagged with its series, as streamed into Run.
type CandleRow struct {
	Symbol    string
	Timeframe string
	model.Candle
}

// WriteCandles upserts candles in batched transactions.
func (s *Store) WriteCandles(ctx context.Context, symbol, timeframe string, candles []model.Candle) error {
	rows := make([]CandleRow, len(candles))
	for i, c := range candles {
		rows[i] = CandleRow{Symbol: symbol, Timeframe: timeframe, Candle: c}
	}
	for start := 0; start < len(rows); start += defaultBatchSize {
		end := min(start+defaultBatchSize, len(rows))
		if err := s.insertBatch(ctx, rows[start:end]); err != nil {
			return fmt.Errorf("sqlite insert candles: %w", err)
		}
	}
	return nil
}

// Run reads candles from ch and inserts them in batched transactions.
// Flushes every batch size candles OR every flush delay, whichever first.
// Blocks until ctx is cancelled or ch is closed, and returns the number of
// rows written.
func (s *Store) Run(ctx context.Context, ch <-chan CandleRow) int {
	batch := make([]CandleRow, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()
	written := 0

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		// ctx may already be cancelled; the final flush still has to land
		if err := s.insertBatch(context.WithoutCancel(ctx), batch); err != nil {
			slog.Error("sqlite batch insert failed", "rows", len(batch), "error", err)
		} else {
			written += len(batch)
			slog.Debug("sqlite batch committed", "rows", len(batch), "took", time.Since(start))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return written

		case row, ok := <-ch:
			if !ok {
				flush()
				return written
			}
			batch = append(batch, row)
			if len(batch) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

// insertBatch inserts a batch of candles in a single transaction.
func (s *Store) insertBatch(ctx context.Context, rows []CandleRow) error {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (symbol, timeframe, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Symbol, r.Timeframe, r.Time, r.Open, r.High, r.Low, r.Close, r.Volume); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	if s.onCommit != nil {
		s.onCommit(len(rows), time.Since(start))
	}
	return nil
}

// ReadCandles returns candles ordered by time ascending. Zero bounds are open.
func (s *Store) ReadCandles(ctx context.Context, symbol, timeframe string, from, to int64) ([]model.Candle, error) {
	q := `
		SELECT ts, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND timeframe = ? AND ts >= ?`
	args := []any{symbol, timeframe, from}
	if to > 0 {
		q += ` AND ts <= ?`
		args = append(args, to)
	}
	q += ` ORDER BY ts ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()

	candles := make([]model.Candle, 0, 256)
	for rows.Next() {
		var c model.Candle
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan candles: %w", err)
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// LastTimestamp returns the last stored candle time for a series, or 0.
func (s *Store) LastTimestamp(ctx context.Context, symbol, timeframe string) (int64, error) {
	var ts sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(ts) FROM candles WHERE symbol = ? AND timeframe = ?`,
		symbol, timeframe,
	).Scan(&ts)
	if err != nil {
		return 0, err
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// Series lists the stored symbol/timeframe pairs.
func (s *Store) Series(ctx context.Context) ([][2]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol, timeframe FROM candles ORDER BY symbol, timeframe`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query series: %w", err)
	}
	defer rows.Close()

	var out [][2]string
	for rows.Next() {
		var sym, tf string
		if err := rows.Scan(&sym, &tf); err != nil {
			return nil, err
		}
		out = append(out, [2]string{sym, tf})
	}
	return out, rows.Err()
}
