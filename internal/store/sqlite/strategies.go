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

// SaveStrategy inserts or replaces a strategy, assigning an ID when empty.
func (s *Store) SaveStrategy(ctx context.Context, st model.Strategy) (model.Strategy, error) {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	data, err := json.Marshal(st)
	if err != nil {
		return model.Strategy{}, fmt.Errorf("marshal strategy: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO strategies (id, name, data, created_at) VALUES (?, ?, ?, ?)`,
		st.ID, st.Name, string(data), st.CreatedAt.Unix(),
	)
	if err != nil {
		return model.Strategy{}, fmt.Errorf("sqlite save strategy: %w", err)
	}
	return st, nil
}

// GetStrategy loads a strategy by ID.
func (s *Store) GetStrategy(ctx context.Context, id string) (model.Strategy, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM strategies WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Strategy{}, fmt.Errorf("strategy %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Strategy{}, fmt.Errorf("sqlite get strategy: %w", err)
	}
	var st model.Strategy
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return model.Strategy{}, fmt.Errorf("unmarshal strategy: %w", err)
	}
	return st, nil
}

// ListStrategies returns all strategies, oldest first.
func (s *Store) ListStrategies(ctx context.Context) ([]model.Strategy, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM strategies ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite list strategies: %w", err)
	}
	defer rows.Close()

	out := []model.Strategy{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("sqlite scan strategy: %w", err)
		}
		var st model.Strategy
		if err := json.Unmarshal([]byte(data), &st); err != nil {
			return nil, fmt.Errorf("unmarshal strategy: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// DeleteStrategy removes a strategy. Its past runs are kept.
func (s *Store) DeleteStrategy(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM strategies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite delete strategy: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("strategy %s: %w", id, model.ErrNotFound)
	}
	return nil
}
