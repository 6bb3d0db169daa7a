package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trading-backtestv1/internal/model"
)

// SaveRun stores a backtest result, assigning a run ID when empty.
func (s *Store) SaveRun(ctx context.Context, r model.BacktestResult) (model.BacktestResult, error) {
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return model.BacktestResult{}, fmt.Errorf("marshal run: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO backtest_runs (id, strategy_id, symbol, timeframe, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.RunID, r.StrategyID, r.Symbol, r.Timeframe, string(data), time.Now().UnixNano(),
	)
	if err != nil {
		return model.BacktestResult{}, fmt.Errorf("sqlite save run: %w", err)
	}
	return r, nil
}

// GetRun loads a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (model.BacktestResult, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM backtest_runs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BacktestResult{}, fmt.Errorf("run %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.BacktestResult{}, fmt.Errorf("sqlite get run: %w", err)
	}
	var r model.BacktestResult
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return model.BacktestResult{}, fmt.Errorf("unmarshal run: %w", err)
	}
	return r, nil
}

// ListRuns returns runs newest first, optionally filtered by strategy.
func (s *Store) ListRuns(ctx context.Context, strategyID string) ([]model.BacktestResult, error) {
	q := `SELECT data FROM backtest_runs`
	var args []any
	if strategyID != "" {
		q += ` WHERE strategy_id = ?`
		args = append(args, strategyID)
	}
	q += ` ORDER BY created_at DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite list runs: %w", err)
	}
	defer rows.Close()

	out := []model.BacktestResult{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("sqlite scan run: %w", err)
		}
		var r model.BacktestResult
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
